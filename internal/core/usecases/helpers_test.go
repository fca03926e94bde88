package usecases_test

import (
	"context"
	"testing"
	"time"

	"github.com/samirrijal/hafasgo/internal/core/usecases"
	"github.com/samirrijal/hafasgo/internal/hafas"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

// --- Mock Transport ---

type mockTransport struct {
	requestFn func(ctx context.Context, req hafas.Request) (*raw.Object, error)
	calls     []hafas.Request
}

func (m *mockTransport) Request(ctx context.Context, req hafas.Request) (*raw.Object, error) {
	m.calls = append(m.calls, req)
	if m.requestFn != nil {
		return m.requestFn(ctx, req)
	}
	return raw.New(), nil
}

// respond returns a transport that answers every request with fixture.
func respond(t *testing.T, fixture string) *mockTransport {
	t.Helper()
	res := decode(t, fixture)
	return &mockTransport{
		requestFn: func(ctx context.Context, req hafas.Request) (*raw.Object, error) {
			return res, nil
		},
	}
}

func decode(t *testing.T, s string) *raw.Object {
	t.Helper()
	o, err := raw.Decode([]byte(s))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return o
}

var berlin, _ = time.LoadLocation("Europe/Berlin")

// fixedNow is the clock every test client runs on: Monday 2024-01-15 10:00 in Berlin.
var fixedNow = time.Date(2024, 1, 15, 10, 0, 0, 0, berlin)

func testProfile(t *testing.T, features hafas.Features) *hafas.Profile {
	t.Helper()
	p, err := hafas.NewProfile(hafas.Profile{
		Name:     "test",
		Timezone: "Europe/Berlin",
		Endpoint: "https://hafas.example.org/gate",
		Products: []hafas.Product{
			{ID: "suburban", Mode: "train", Name: "S-Bahn", Bitmasks: []int{1}, Default: true},
			{ID: "subway", Mode: "train", Name: "U-Bahn", Bitmasks: []int{2}, Default: true},
			{ID: "bus", Mode: "bus", Name: "Bus", Bitmasks: []int{8}, Default: true},
		},
		Features: features,
	})
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	return p
}

func newClient(t *testing.T, features hafas.Features, tr *mockTransport) *usecases.Client {
	t.Helper()
	return usecases.NewClient(testProfile(t, features), tr,
		usecases.WithClock(func() time.Time { return fixedNow }),
		usecases.WithRetryInterval(time.Millisecond),
	)
}

func allFeatures() hafas.Features {
	return hafas.Features{
		Trip: true, TripsByName: true, Radar: true, RefreshJourney: true,
		ReachableFrom: true, Remarks: true, Lines: true, ServerInfo: true,
		Subscriptions: true, JourneysOutFrwd: true, JourneysWalkingSpeed: true,
		DeparturesGetPasslist: true, DeparturesStbFltrEquiv: true,
	}
}

const stopsCommon = `"common": {
	"prodL": [{"name": "S1", "cls": 1, "prodCtx": {"num": "12345", "lineId": "s1"}}],
	"locL": [
		{"type": "S", "name": "Alexanderplatz", "lid": "A=1@O=Alexanderplatz@L=900100003@", "extId": "900100003", "crd": {"x": 13411267, "y": 52521512}},
		{"type": "S", "name": "Ostkreuz", "lid": "A=1@O=Ostkreuz@L=900120003@", "extId": "900120003", "crd": {"x": 13469354, "y": 52503209}},
		{"type": "S", "name": "Warschauer Str.", "lid": "A=1@O=Warschauer Str.@L=900120004@", "extId": "900120004", "crd": {"x": 13449157, "y": 52505772}}
	]
}`
