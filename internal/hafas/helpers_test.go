package hafas_test

import (
	"testing"
	"time"

	"github.com/samirrijal/hafasgo/internal/hafas"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

var berlin, _ = time.LoadLocation("Europe/Berlin")

func testProfile(t *testing.T, parsers hafas.Parsers) *hafas.Profile {
	t.Helper()
	p, err := hafas.NewProfile(hafas.Profile{
		Name:     "test",
		Timezone: "Europe/Berlin",
		Endpoint: "https://hafas.example.org/gate",
		Products: []hafas.Product{
			{ID: "suburban", Mode: "train", Name: "S-Bahn", Bitmasks: []int{1}, Default: true},
			{ID: "subway", Mode: "train", Name: "U-Bahn", Bitmasks: []int{2}, Default: true},
			{ID: "bus", Mode: "bus", Name: "Bus", Bitmasks: []int{8}, Default: true},
			{ID: "ferry", Mode: "watercraft", Name: "Fähre", Bitmasks: []int{16}},
		},
		Parsers: parsers,
	})
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	return p
}

func decode(t *testing.T, s string) *raw.Object {
	t.Helper()
	o, err := raw.Decode([]byte(s))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return o
}

// resolve decodes a fixture and runs the common-table resolver over it.
func resolve(t *testing.T, p *hafas.Profile, opt hafas.Options, fixture string) (*hafas.Context, *raw.Object) {
	t.Helper()
	res := decode(t, fixture)
	ctx := hafas.NewContext(p, opt)
	hafas.ResolveCommon(ctx, res)
	return ctx, res
}

func at(t *testing.T, date, clock string) time.Time {
	t.Helper()
	v, err := time.ParseInLocation("20060102150405", date+clock, berlin)
	if err != nil {
		t.Fatalf("parse %s %s: %v", date, clock, err)
	}
	return v
}

func sameTime(got *time.Time, want time.Time) bool {
	return got != nil && got.Equal(want)
}
