package usecases_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/samirrijal/hafasgo/internal/core/usecases"
	"github.com/samirrijal/hafasgo/internal/hafas"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

const boardFixture = `{
	` + stopsCommon + `,
	"jnyL": [
		{"jid": "1|2", "date": "20240115", "prodX": 0, "dirTxt": "Ostkreuz",
		 "stbStop": {"locX": 0, "dTimeS": "101000", "dPlatfS": "2"}},
		{"jid": "1|1", "date": "20240115", "prodX": 0, "dirTxt": "Warschauer Str.",
		 "stbStop": {"locX": 0, "dTimeS": "100500", "dTimeR": "100700"}}
	]
}`

func TestDepartures_SortedByTime(t *testing.T) {
	tr := respond(t, boardFixture)
	c := newClient(t, hafas.Features{}, tr)

	deps, err := c.Departures(context.Background(), "900100003", usecases.DefaultDeparturesOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deps) != 2 {
		t.Fatalf("expected 2 departures, got %d", len(deps))
	}
	if deps[0].TripID != "1|1" || deps[1].TripID != "1|2" {
		t.Errorf("order = %s, %s", deps[0].TripID, deps[1].TripID)
	}
	if deps[0].Delay == nil || *deps[0].Delay != 120 {
		t.Errorf("delay = %v", deps[0].Delay)
	}
	if deps[0].Line == nil || deps[0].Line != deps[1].Line {
		t.Error("expected both departures to share the S1 line")
	}
	if deps[0].Stop == nil || deps[0].Stop.Name != "Alexanderplatz" {
		t.Errorf("stop = %+v", deps[0].Stop)
	}
}

func TestDepartures_Request(t *testing.T) {
	tr := respond(t, boardFixture)
	c := newClient(t, hafas.Features{}, tr)

	opt := usecases.DefaultDeparturesOptions()
	opt.Direction = "900120003"
	opt.Line = "s1"
	if _, err := c.Departures(context.Background(), "900100003", opt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tr.calls) != 1 {
		t.Fatalf("expected 1 request, got %d", len(tr.calls))
	}
	req := tr.calls[0]
	if req.Meth != "StationBoard" {
		t.Errorf("meth = %s", req.Meth)
	}
	q := req.Req
	if q["type"] != "DEP" || q["dur"] != 10 || q["date"] != "20240115" || q["time"] != "100000" {
		t.Errorf("req = %v", q)
	}
	if loc := q["stbLoc"].(map[string]any); loc["lid"] != "A=1@L=900100003@" {
		t.Errorf("stbLoc = %v", loc)
	}
	if _, ok := q["dirLoc"]; !ok {
		t.Error("expected dirLoc")
	}
	if filters := q["jnyFltrL"].([]any); len(filters) != 2 {
		t.Errorf("jnyFltrL = %v", filters)
	}
	if _, ok := q["getPasslist"]; ok {
		t.Error("getPasslist sent to a profile without support")
	}
}

func TestArrivals_RequestType(t *testing.T) {
	tr := respond(t, `{"jnyL": []}`)
	c := newClient(t, hafas.Features{}, tr)

	arrs, err := c.Arrivals(context.Background(), "900100003", usecases.DefaultDeparturesOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(arrs) != 0 {
		t.Errorf("expected no arrivals, got %d", len(arrs))
	}
	if tr.calls[0].Req["type"] != "ARR" {
		t.Errorf("type = %v", tr.calls[0].Req["type"])
	}
}

func TestDepartures_Validation(t *testing.T) {
	tests := map[string]struct {
		station string
		mutate  func(*usecases.DeparturesOptions)
		want    error
	}{
		"empty station":     {station: "", want: hafas.ErrValidation},
		"negative duration": {station: "1", mutate: func(o *usecases.DeparturesOptions) { o.Duration = -1 }, want: hafas.ErrValidation},
		"unknown product":   {station: "1", mutate: func(o *usecases.DeparturesOptions) { o.Products = map[string]bool{"zeppelin": true} }, want: hafas.ErrValidation},
		"stopovers":         {station: "1", mutate: func(o *usecases.DeparturesOptions) { o.Stopovers = true }, want: hafas.ErrUnsupported},
		"related stations":  {station: "1", mutate: func(o *usecases.DeparturesOptions) { o.IncludeRelatedStations = false }, want: hafas.ErrUnsupported},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			tr := &mockTransport{}
			c := newClient(t, hafas.Features{}, tr)
			opt := usecases.DefaultDeparturesOptions()
			if tt.mutate != nil {
				tt.mutate(&opt)
			}
			_, err := c.Departures(context.Background(), tt.station, opt)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if len(tr.calls) != 0 {
				t.Error("request sent despite invalid input")
			}
		})
	}
}

func TestDepartures_PasslistFeature(t *testing.T) {
	tr := respond(t, `{"jnyL": []}`)
	c := newClient(t, allFeatures(), tr)

	opt := usecases.DefaultDeparturesOptions()
	opt.Stopovers = true
	opt.IncludeRelatedStations = false
	if _, err := c.Departures(context.Background(), "900100003", opt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q := tr.calls[0].Req
	if q["getPasslist"] != true || q["stbFltrEquiv"] != true {
		t.Errorf("req = %v", q)
	}
}

func TestDepartures_TransportError(t *testing.T) {
	tr := &mockTransport{
		requestFn: func(ctx context.Context, req hafas.Request) (*raw.Object, error) {
			return nil, hafas.NewError("SQ001", "")
		},
	}
	c := newClient(t, hafas.Features{}, tr)

	_, err := c.Departures(context.Background(), "900100003", usecases.DefaultDeparturesOptions())
	var he *hafas.Error
	if !errors.As(err, &he) {
		t.Fatalf("expected *hafas.Error, got %v", err)
	}
	if he.Code != hafas.CodeServerError {
		t.Errorf("code = %s", he.Code)
	}
	if !strings.HasPrefix(err.Error(), "StationBoard: ") {
		t.Errorf("error not wrapped with the method: %v", err)
	}
}
