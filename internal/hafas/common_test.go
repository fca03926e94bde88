package hafas_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/hafas"
)

const boardFixture = `{
	"common": {
		"opL": [{"name": "BVG"}, {"name": "  "}],
		"icoL": [{"res": "prod_bus", "txtS": "Bus"}, {"res": "Empty"}],
		"prodL": [
			{"name": "M41", "cls": 8, "oprX": 0, "icoX": 0, "prodCtx": {"num": "12345", "lineId": "M41", "admin": "BVB___"}}
		],
		"locL": [
			{"type": "S", "name": "Hauptbahnhof", "lid": "A=1@O=Hauptbahnhof@X=13369549@Y=52525589@L=900003201@", "extId": "900003201", "crd": {"x": 13369549, "y": 52525589}, "pCls": 9},
			{"type": "S", "name": "Hauptbahnhof (tief)", "extId": "0900003202", "crd": {"x": 13369000, "y": 52525000}, "mMastLocX": 0}
		],
		"remL": [{"type": "A", "code": "bf", "txtN": " barrier-free "}]
	},
	"jnyL": [
		{"jid": "1|1|0|86|15012024", "date": "20240115", "prodX": 0, "dirTxt": "Sonnenallee",
		 "stbStop": {"locX": 0, "dTimeS": "101500", "dTimeR": "102000", "dPlatfS": "3", "dPlatfR": "4"},
		 "msgL": [{"type": "REM", "remX": 0}]},
		{"jid": "1|2|0|86|15012024", "date": "20240115", "prodX": 0, "dirTxt": "Sonnenallee",
		 "stbStop": {"locX": 1, "dTimeS": "100500", "dTimeR": "100700", "dCncl": true, "dPlatfS": "1"}},
		{"jid": "1|3|0|86|15012024", "date": "20240115", "prodX": 99,
		 "stbStop": {"locX": 0, "dTimeS": "103000"}}
	]
}`

func TestResolveCommon_SharesEntities(t *testing.T) {
	p := testProfile(t, hafas.Parsers{})
	ctx, res := resolve(t, p, hafas.DefaultOptions(), boardFixture)

	jnyL := res.Objs("jnyL")
	d0 := p.Parsers.Departure(ctx, jnyL[0])
	d1 := p.Parsers.Departure(ctx, jnyL[1])

	if d0.Line == nil || d0.Line != d1.Line {
		t.Fatal("both departures should point at the same parsed line")
	}
	if d0.Line != ctx.Common.Lines[0] {
		t.Error("departure line should be the common table entry")
	}
	if d0.Line.Operator == nil || d0.Line.Operator != ctx.Common.Operators[0] {
		t.Error("line operator should be the common operator")
	}
	if d0.Line.Icon == nil || d0.Line.Icon.Title != "Bus" {
		t.Errorf("line icon = %+v", d0.Line.Icon)
	}
}

func TestResolveCommon_UnresolvableIndex(t *testing.T) {
	p := testProfile(t, hafas.Parsers{})
	ctx, res := resolve(t, p, hafas.DefaultOptions(), boardFixture)

	d := p.Parsers.Departure(ctx, res.Objs("jnyL")[2])
	if d.Line != nil {
		t.Errorf("line for index 99 = %+v, want nil", d.Line)
	}
	if got := ctx.Common.Dropped["**.prodX"]; got != 1 {
		t.Errorf("dropped **.prodX = %d, want 1", got)
	}
}

func TestResolveCommon_RejectedEntriesKeepAlignment(t *testing.T) {
	p := testProfile(t, hafas.Parsers{})
	ctx, _ := resolve(t, p, hafas.DefaultOptions(), boardFixture)

	if len(ctx.Common.Operators) != 2 || ctx.Common.Operators[1] != nil {
		t.Errorf("operators = %+v, want blank name rejected in place", ctx.Common.Operators)
	}
	if len(ctx.Common.Icons) != 2 || ctx.Common.Icons[1] != nil {
		t.Errorf("icons = %+v, want Empty icon rejected in place", ctx.Common.Icons)
	}
}

func TestResolveCommon_MainMast(t *testing.T) {
	p := testProfile(t, hafas.Parsers{})
	ctx, _ := resolve(t, p, hafas.DefaultOptions(), boardFixture)

	platform := ctx.Common.Locations[1]
	if platform.ID != "900003202" {
		t.Errorf("id = %q, leading zeros should be stripped", platform.ID)
	}
	if platform.Station == nil {
		t.Fatal("main mast should be spliced as station")
	}
	if platform.Station.Kind != domain.KindStation || platform.Station.ID != "900003201" {
		t.Errorf("station = %+v", platform.Station)
	}
	if platform.Station == ctx.Common.Locations[0] {
		t.Error("station should be a copy, not the table entry")
	}
	if ctx.Common.Locations[0].Kind != domain.KindStop {
		t.Error("the main mast entry itself must not change kind")
	}
}

const subStopFixture = `{
	"common": {
		"prodL": [{"name": "S1", "cls": 1}],
		"locL": [
			{"type": "S", "name": "Ostkreuz", "extId": "900120003", "crd": {"x": 13469354, "y": 52503209}, "isMainMast": true, "stopLocL": [1]},
			{"type": "S", "name": "Ostkreuz (Ringbahn)", "extId": "900120103", "crd": {"x": 13469000, "y": 52503000}, "mMastLocX": 0}
		]
	},
	"jnyL": [
		{"jid": "1|9|0|86|15012024", "date": "20240115", "prodX": 0, "dirTxt": "Ring",
		 "stbStop": {"locX": 1, "dTimeS": "100500"}}
	]
}`

func TestResolveCommon_SubStopAfterMainMastIsAcyclic(t *testing.T) {
	p := testProfile(t, hafas.Parsers{})
	ctx, res := resolve(t, p, hafas.DefaultOptions(), subStopFixture)

	mast := ctx.Common.Locations[0]
	if len(mast.Stops) != 1 || mast.Stops[0] != ctx.Common.Locations[1] {
		t.Fatalf("main mast stops = %+v", mast.Stops)
	}

	d := p.Parsers.Departure(ctx, res.Objs("jnyL")[0])
	if d.Stop == nil || d.Stop.Station == nil || d.Stop.Station.ID != "900120003" {
		t.Fatalf("stop = %+v", d.Stop)
	}
	if d.Stop.Station.Stops != nil {
		t.Errorf("embedded station lists its stops: %+v", d.Stop.Station.Stops)
	}

	if _, err := json.Marshal(d); err != nil {
		t.Fatalf("marshal departure: %v", err)
	}
	if _, err := json.Marshal(mast); err != nil {
		t.Fatalf("marshal main mast: %v", err)
	}
}

func TestResolveCommon_IsIdempotent(t *testing.T) {
	p := testProfile(t, hafas.Parsers{})
	res := decode(t, boardFixture)
	before, _ := json.Marshal(res)

	parse := func() []*domain.Departure {
		ctx := hafas.NewContext(p, hafas.DefaultOptions())
		hafas.ResolveCommon(ctx, res)
		var out []*domain.Departure
		for _, d := range res.Objs("jnyL") {
			out = append(out, p.Parsers.Departure(ctx, d))
		}
		return out
	}
	first, second := parse(), parse()

	if !reflect.DeepEqual(first, second) {
		t.Error("resolving the same response twice gave different results")
	}
	after, _ := json.Marshal(res)
	if string(before) != string(after) {
		t.Error("resolver modified the raw response")
	}
}

func TestResolveCommon_RemarksGatedByOption(t *testing.T) {
	p := testProfile(t, hafas.Parsers{})
	opt := hafas.DefaultOptions()
	opt.Remarks = false
	ctx, res := resolve(t, p, opt, boardFixture)

	if len(ctx.Common.Hints) != 0 {
		t.Errorf("hints parsed with remarks off: %d", len(ctx.Common.Hints))
	}
	if d := p.Parsers.Departure(ctx, res.Objs("jnyL")[0]); len(d.Remarks) != 0 {
		t.Errorf("remarks = %+v", d.Remarks)
	}
}

func TestResolveCommon_PolylineGroupFirstExisting(t *testing.T) {
	p := testProfile(t, hafas.Parsers{})
	opt := hafas.DefaultOptions()
	opt.Polylines = true
	ctx, res := resolve(t, p, opt, `{
		"common": {"polyL": [{"crdEncYX": ""}, {"crdEncYX": "_p~iF~ps|U_ulLnnqC"}]},
		"jny": {"polyG": {"polyXL": [7, 0, 1]}}
	}`)

	got := ctx.Links(res.Obj("jny")).Polyline
	if got == nil || got != ctx.Common.Polylines[1] {
		t.Fatalf("polyline = %+v, want the first resolvable entry", got)
	}
	if len(got.Features) != 2 {
		t.Errorf("features = %d, want 2", len(got.Features))
	}
}

func TestCommonLinks_NeverNil(t *testing.T) {
	var c *hafas.Common
	if c.Links(nil) == nil {
		t.Fatal("Links on nil common returned nil")
	}
	p := testProfile(t, hafas.Parsers{})
	ctx, _ := resolve(t, p, hafas.DefaultOptions(), `{}`)
	if ctx.Links(decode(t, `{}`)) == nil {
		t.Fatal("Links for an unknown object returned nil")
	}
}
