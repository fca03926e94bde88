package hafas_test

import (
	"testing"

	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/hafas"
)

func TestParseDeparture(t *testing.T) {
	p := testProfile(t, hafas.Parsers{})
	ctx, res := resolve(t, p, hafas.DefaultOptions(), boardFixture)

	d := p.Parsers.Departure(ctx, res.Objs("jnyL")[0])
	if d.TripID != "1|1|0|86|15012024" || d.Direction != "Sonnenallee" {
		t.Errorf("departure = %+v", d)
	}
	if d.Stop != ctx.Common.Locations[0] {
		t.Error("stop should be the common location")
	}
	if !sameTime(d.When, at(t, "20240115", "102000")) || !sameTime(d.PlannedWhen, at(t, "20240115", "101500")) {
		t.Errorf("when = %v, planned = %v", d.When, d.PlannedWhen)
	}
	if d.Delay == nil || *d.Delay != 300 {
		t.Errorf("delay = %v", d.Delay)
	}
	if d.Platform != "4" || d.PlannedPlatform != "3" {
		t.Errorf("platform = %q/%q", d.Platform, d.PlannedPlatform)
	}
	if len(d.Remarks) != 1 || d.Remarks[0].Text != "barrier-free" {
		t.Errorf("remarks = %+v", d.Remarks)
	}
}

func TestParseDeparture_Cancelled(t *testing.T) {
	p := testProfile(t, hafas.Parsers{})
	ctx, res := resolve(t, p, hafas.DefaultOptions(), boardFixture)

	d := p.Parsers.Departure(ctx, res.Objs("jnyL")[1])
	if !d.Cancelled || d.When != nil {
		t.Errorf("cancelled = %v, when = %v", d.Cancelled, d.When)
	}
	if !sameTime(d.PlannedWhen, at(t, "20240115", "100500")) || !sameTime(d.PrognosedWhen, at(t, "20240115", "100700")) {
		t.Errorf("planned = %v, prognosed = %v", d.PlannedWhen, d.PrognosedWhen)
	}
	if d.Delay == nil || *d.Delay != 120 {
		t.Errorf("delay = %v", d.Delay)
	}
	if d.Platform != "" || d.PlannedPlatform != "1" {
		t.Errorf("platform = %q/%q", d.Platform, d.PlannedPlatform)
	}
}

func TestParseArrival(t *testing.T) {
	p := testProfile(t, hafas.Parsers{})
	opt := hafas.DefaultOptions()
	opt.Stopovers = true
	ctx, res := resolve(t, p, opt, `{
		"common": {
			"locL": [{"type": "S", "name": "A", "extId": "1"}, {"type": "S", "name": "B", "extId": "2"}, {"type": "S", "name": "C", "extId": "3"}]
		},
		"jnyL": [{
			"jid": "1|9|0|86|15012024", "date": "20240115", "dirTxt": "C",
			"stbStop": {"locX": 2, "aTimeS": "110000", "aPlatfS": "2", "dTimeS": "110500"},
			"stopL": [
				{"locX": 1, "aTimeS": "103000", "dTimeS": "103000", "dInS": false, "aOutS": false},
				{"locX": 2, "aTimeS": "110000"},
				{"locX": 0, "dTimeS": "100000"}
			]
		}]
	}`)

	a := p.Parsers.Arrival(ctx, res.Objs("jnyL")[0])
	if a.Direction != "" {
		t.Errorf("direction = %q, arrivals have none", a.Direction)
	}
	if !sameTime(a.When, at(t, "20240115", "110000")) || a.Platform != "2" {
		t.Errorf("arrival = %+v", a)
	}
	if a.NextStopovers != nil {
		t.Error("arrivals carry previous stopovers only")
	}
	if len(a.PreviousStopovers) != 2 {
		t.Fatalf("previous stopovers = %d, want 2", len(a.PreviousStopovers))
	}
	if a.PreviousStopovers[0].Stop.ID != "1" || a.PreviousStopovers[1].Stop.ID != "3" {
		t.Error("stopovers should be sorted by time")
	}
}

func TestSortBoard(t *testing.T) {
	p := testProfile(t, hafas.Parsers{})
	ctx, res := resolve(t, p, hafas.DefaultOptions(), boardFixture)

	var board []*domain.Departure
	for _, d := range res.Objs("jnyL") {
		board = append(board, p.Parsers.Departure(ctx, d))
	}
	board = append([]*domain.Departure{{TripID: "no-time"}}, board...)
	hafas.SortBoard(board)

	want := []string{"1|2|0|86|15012024", "1|1|0|86|15012024", "1|3|0|86|15012024", "no-time"}
	for i, id := range want {
		if board[i].TripID != id {
			t.Errorf("board[%d] = %s, want %s", i, board[i].TripID, id)
		}
	}
}

func TestSortStopovers_MissingTimeKeepsOrder(t *testing.T) {
	ten, nine := at(t, "20240115", "100000"), at(t, "20240115", "090000")
	stopovers := []*domain.Stopover{
		{Departure: &ten},
		{},
		{PlannedArrival: &nine},
	}
	hafas.SortStopovers(stopovers)
	if stopovers[0].Departure != &ten {
		t.Error("a list with a timeless stopover must not be reordered")
	}

	stopovers = []*domain.Stopover{{Departure: &ten}, {PlannedArrival: &nine}}
	hafas.SortStopovers(stopovers)
	if stopovers[0].PlannedArrival != &nine {
		t.Error("stopovers should be sorted by time")
	}
}
