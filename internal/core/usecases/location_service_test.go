package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/core/usecases"
	"github.com/samirrijal/hafasgo/internal/hafas"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

func TestLocations(t *testing.T) {
	tr := respond(t, `{
		"match": {"locL": [
			{"type": "S", "name": "Alexanderplatz", "extId": "900100003", "crd": {"x": 13411267, "y": 52521512}},
			{"type": "A", "name": "Alexanderstr. 1", "lid": "A=2@O=Alexanderstr. 1@X=13418000@Y=52519000@"},
			{"type": "P", "name": "Fernsehturm", "extId": "900980123", "crd": {"x": 13409400, "y": 52520800}}
		]}
	}`)
	c := newClient(t, hafas.Features{}, tr)

	locs, err := c.Locations(context.Background(), "Alex", usecases.DefaultLocationsOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(locs) != 3 {
		t.Fatalf("expected 3 locations, got %d", len(locs))
	}
	kinds := []domain.LocationKind{domain.KindStop, domain.KindAddress, domain.KindPOI}
	for i, want := range kinds {
		if locs[i].Kind != want {
			t.Errorf("locs[%d].Kind = %s, want %s", i, locs[i].Kind, want)
		}
	}

	input := tr.calls[0].Req["input"].(map[string]any)
	loc := input["loc"].(map[string]any)
	if loc["name"] != "Alex?" || loc["type"] != "ALL" || input["maxLoc"] != 5 {
		t.Errorf("input = %v", input)
	}
}

func TestLocations_TypeSelection(t *testing.T) {
	tr := respond(t, `{}`)
	c := newClient(t, hafas.Features{}, tr)

	opt := usecases.DefaultLocationsOptions()
	opt.Fuzzy = false
	opt.POI = false
	if _, err := c.Locations(context.Background(), "Alex", opt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loc := tr.calls[0].Req["input"].(map[string]any)["loc"].(map[string]any)
	if loc["type"] != "SA" || loc["name"] != "Alex" {
		t.Errorf("loc = %v", loc)
	}
}

func TestLocations_Validation(t *testing.T) {
	c := newClient(t, hafas.Features{}, &mockTransport{})

	if _, err := c.Locations(context.Background(), "", usecases.DefaultLocationsOptions()); !errors.Is(err, hafas.ErrValidation) {
		t.Errorf("empty query: err = %v", err)
	}
	opt := usecases.DefaultLocationsOptions()
	opt.Results = 0
	if _, err := c.Locations(context.Background(), "Alex", opt); !errors.Is(err, hafas.ErrValidation) {
		t.Errorf("zero results: err = %v", err)
	}
}

func TestStop_NotFound(t *testing.T) {
	c := newClient(t, hafas.Features{}, respond(t, `{"locL": []}`))

	_, err := c.Stop(context.Background(), "123", usecases.DefaultStopOptions())
	var he *hafas.Error
	if !errors.As(err, &he) || he.Code != hafas.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if he.IsHafasError {
		t.Error("a missing stop is not an upstream error")
	}
}

func TestStop(t *testing.T) {
	tr := respond(t, `{"locL": [{"type": "S", "name": "Alexanderplatz", "extId": "0900100003", "isMainMast": true}]}`)
	c := newClient(t, hafas.Features{}, tr)

	stop, err := c.Stop(context.Background(), "900100003", usecases.DefaultStopOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stop.ID != "900100003" || stop.Kind != domain.KindStation {
		t.Errorf("stop = %+v", stop)
	}
	if tr.calls[0].Meth != "LocDetails" {
		t.Errorf("meth = %s", tr.calls[0].Meth)
	}
}

const nearbyFixture = `{"locL": [
	{"type": "S", "name": "Alexanderplatz", "extId": "900100003", "crd": {"x": 13411267, "y": 52521512}, "dist": 50},
	{"type": "S", "name": "Spandauer Str.", "extId": "900100015", "crd": {"x": 13405000, "y": 52521000}}
]}`

func TestNearby_FillsDistance(t *testing.T) {
	c := newClient(t, hafas.Features{}, respond(t, nearbyFixture))

	locs, err := c.Nearby(context.Background(), domain.GeoPoint{Lat: 52.52, Lon: 13.405}, usecases.DefaultNearbyOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(locs) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(locs))
	}
	if locs[0].Distance == nil || *locs[0].Distance != 50 {
		t.Errorf("upstream distance = %v", locs[0].Distance)
	}
	// 0.001° of latitude is about 111 m.
	if d := locs[1].Distance; d == nil || *d < 105 || *d > 117 {
		t.Errorf("computed distance = %v", d)
	}
}

func TestNearby_CapsResults(t *testing.T) {
	c := newClient(t, hafas.Features{}, respond(t, nearbyFixture))

	opt := usecases.DefaultNearbyOptions()
	opt.Results = 1
	locs, err := c.Nearby(context.Background(), domain.GeoPoint{Lat: 52.52, Lon: 13.405}, opt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(locs) != 1 || locs[0].ID != "900100003" {
		t.Errorf("locs = %+v", locs)
	}
}

func TestNearby_ClosestFirst(t *testing.T) {
	c := newClient(t, hafas.Features{}, respond(t, `{"locL": [
		{"type": "S", "name": "Ostkreuz", "extId": "900120003", "crd": {"x": 13469354, "y": 52503209}, "dist": 900},
		{"type": "P", "name": "Somewhere", "extId": "1"},
		{"type": "S", "name": "Alexanderplatz", "extId": "900100003", "crd": {"x": 13411267, "y": 52521512}, "dist": 50}
	]}`))

	opt := usecases.DefaultNearbyOptions()
	opt.POI = true
	locs, err := c.Nearby(context.Background(), domain.GeoPoint{Lat: 52.52, Lon: 13.405}, opt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(locs) != 3 {
		t.Fatalf("expected 3 locations, got %d", len(locs))
	}
	if locs[0].Name != "Alexanderplatz" || locs[1].Name != "Ostkreuz" || locs[2].Distance != nil {
		t.Errorf("order = %q, %q, %q", locs[0].Name, locs[1].Name, locs[2].Name)
	}
}

func TestNearby_InvalidPoint(t *testing.T) {
	tr := &mockTransport{}
	c := newClient(t, hafas.Features{}, tr)

	_, err := c.Nearby(context.Background(), domain.GeoPoint{Lat: 91, Lon: 13.4}, usecases.DefaultNearbyOptions())
	if !errors.Is(err, hafas.ErrValidation) {
		t.Errorf("err = %v", err)
	}
	if len(tr.calls) != 0 {
		t.Error("request sent for an invalid point")
	}
}

var torstr = &domain.Location{
	Kind:    domain.KindAddress,
	Address: "Torstr. 49, 10119 Berlin",
	Coord:   &domain.GeoPoint{Lat: 52.5298, Lon: 13.4069},
}

const reachableFixture = `{
	` + stopsCommon + `,
	"posL": [
		{"locX": 0, "dur": 10},
		{"locX": 1, "dur": 5},
		{"locX": 2, "dur": 10}
	]
}`

func TestReachableFrom_RetriesUntilPositions(t *testing.T) {
	tr := &mockTransport{}
	tr.requestFn = func(ctx context.Context, req hafas.Request) (*raw.Object, error) {
		if len(tr.calls) < 3 {
			return raw.Decode([]byte(`{}`))
		}
		return raw.Decode([]byte(reachableFixture))
	}
	c := newClient(t, allFeatures(), tr)

	groups, err := c.ReachableFrom(context.Background(), torstr, usecases.DefaultReachableFromOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tr.calls) != 3 {
		t.Errorf("expected 3 requests, got %d", len(tr.calls))
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %+v", groups)
	}
	if groups[0].Duration != 5 || len(groups[0].Stations) != 1 || groups[0].Stations[0].Name != "Ostkreuz" {
		t.Errorf("first group = %+v", groups[0])
	}
	if groups[1].Duration != 10 || len(groups[1].Stations) != 2 || groups[1].Stations[0].Name != "Alexanderplatz" {
		t.Errorf("second group = %+v", groups[1])
	}
}

func TestReachableFrom_GivesUp(t *testing.T) {
	tr := respond(t, `{}`)
	c := newClient(t, allFeatures(), tr)

	_, err := c.ReachableFrom(context.Background(), torstr, usecases.DefaultReachableFromOptions())
	if !errors.Is(err, hafas.ErrInvalidResponse) {
		t.Errorf("err = %v", err)
	}
	if len(tr.calls) != 4 {
		t.Errorf("expected 4 attempts, got %d", len(tr.calls))
	}
}

func TestReachableFrom_RetryHint(t *testing.T) {
	tests := map[string]struct {
		code  string
		calls int
	}{
		"retryable":     {"H9250", 4},
		"not retryable": {"H890", 1},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			tr := &mockTransport{
				requestFn: func(ctx context.Context, req hafas.Request) (*raw.Object, error) {
					return nil, hafas.NewError(tt.code, "")
				},
			}
			c := newClient(t, allFeatures(), tr)

			_, err := c.ReachableFrom(context.Background(), torstr, usecases.DefaultReachableFromOptions())
			var he *hafas.Error
			if !errors.As(err, &he) || he.HafasCode != tt.code {
				t.Errorf("err = %v", err)
			}
			if len(tr.calls) != tt.calls {
				t.Errorf("expected %d attempts, got %d", tt.calls, len(tr.calls))
			}
		})
	}
}

func TestReachableFrom_Validation(t *testing.T) {
	c := newClient(t, allFeatures(), &mockTransport{})
	_, err := c.ReachableFrom(context.Background(), domain.StationRef("1"), usecases.DefaultReachableFromOptions())
	if !errors.Is(err, hafas.ErrValidation) {
		t.Errorf("err = %v", err)
	}

	c = newClient(t, hafas.Features{}, &mockTransport{})
	_, err = c.ReachableFrom(context.Background(), torstr, usecases.DefaultReachableFromOptions())
	if !errors.Is(err, hafas.ErrUnsupported) {
		t.Errorf("err = %v", err)
	}
}
