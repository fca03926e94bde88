package hafas

import (
	"encoding/hex"
	"time"

	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

func parseJourneyLeg(ctx *Context, pt *raw.Object, date string) *domain.Leg {
	dep, arr, jny := pt.Obj("dep"), pt.Obj("arr"), pt.Obj("jny")
	aCncl, dCncl := arr.Truthy("aCncl"), dep.Truthy("dCncl")

	leg := &domain.Leg{
		Origin:      ctx.Links(dep).Location,
		Destination: ctx.Links(arr).Location,
		Cancelled:   aCncl || dCncl,
	}

	a := when(ctx, arr, "a", date, aCncl)
	leg.Arrival, leg.PlannedArrival, leg.PrognosedArrival, leg.ArrivalDelay = a.When, a.Planned, a.Prognosed, a.Delay
	d := when(ctx, dep, "d", date, dCncl)
	leg.Departure, leg.PlannedDeparture, leg.PrognosedDeparture, leg.DepartureDelay = d.When, d.Planned, d.Prognosed, d.Delay

	if r, ok := jny.Bool("isRchbl"); ok {
		leg.Reachable = &r
	}

	if ctx.Opt.Polylines {
		if pl := ctx.Links(jny).Polyline; pl != nil {
			leg.Polyline = pl
		} else if poly := jny.Obj("poly"); poly != nil {
			leg.Polyline = ctx.Profile.Parsers.Polyline(ctx, poly)
		}
	}

	switch pt.String("type") {
	case "WALK", "TRSF", "DEVI":
		leg.Public = true
		leg.Walking = true
		gis := pt.Obj("gis")
		if dist, ok := gis.Int("dist"); ok && dist != 0 {
			leg.Distance = &dist
		}
		if t := pt.String("type"); t == "TRSF" || t == "DEVI" {
			leg.Transfer = true
		}
		if ctx.Opt.Remarks {
			AttributeRemarks(ctx, leg, gis.Objs("msgL"))
		}

	case "JNY":
		leg.TripID = jny.String("jid")
		leg.Line = ctx.Links(jny).Line
		if dir := jny.String("dirTxt"); dir != "" {
			leg.Direction = ctx.Profile.Parsers.StationName(ctx, dir)
		}

		arrPl := platform(ctx, arr, "a", aCncl)
		leg.ArrivalPlatform, leg.PlannedArrivalPlatform, leg.PrognosedArrivalPlatform = arrPl.Platform, arrPl.Planned, arrPl.Prognosed
		depPl := platform(ctx, dep, "d", dCncl)
		leg.DeparturePlatform, leg.PlannedDeparturePlatform, leg.PrognosedDeparturePlatform = depPl.Platform, depPl.Planned, depPl.Prognosed

		if _, ok := jny.Arr("stopL"); ctx.Opt.Stopovers && ok {
			leg.Stopovers = parseStopovers(ctx, jny.Objs("stopL"), date)
			// Remark ranges may start or end at a pass-by stop, so filter afterwards.
			if ctx.Opt.Remarks {
				AttributeRemarks(ctx, leg, jny.Objs("msgL"))
			}
			leg.Stopovers = WithoutPassBy(leg.Stopovers)
			SortStopovers(leg.Stopovers)
		}

		freq := jny.Obj("freq")
		minC, okMin := freq.Int("minC")
		maxC, okMax := freq.Int("maxC")
		if okMin && okMax && minC != 0 && maxC != 0 {
			leg.Cycle = parseCycle(freq)
		}

		for _, alt := range freq.Objs("jnyL") {
			leg.Alternatives = append(leg.Alternatives, parseAlternative(ctx, alt, date))
		}
	}

	return leg
}

func parseAlternative(ctx *Context, a *raw.Object, date string) *domain.Alternative {
	var st0 *raw.Object
	if stops := a.Objs("stopL"); len(stops) > 0 {
		st0 = stops[0]
	}
	t := when(ctx, st0, "d", date, st0.Truthy("dCncl"))
	return &domain.Alternative{
		TripID:    a.String("jid"),
		Line:      ctx.Links(a).Line,
		Direction: a.String("dirTxt"),
		When:      t.When,
		Planned:   t.Planned,
		Delay:     t.Delay,
	}
}

func parseJourney(ctx *Context, j *raw.Object) *domain.Journey {
	date := j.String("date")
	res := &domain.Journey{
		Type:         "journey",
		Legs:         []*domain.Leg{},
		RefreshToken: j.String("ctxRecon"),
	}
	for _, sec := range j.Objs("secL") {
		if leg := ctx.Profile.Parsers.JourneyLeg(ctx, sec, date); leg != nil {
			res.Legs = append(res.Legs, leg)
		}
	}

	freq := j.Obj("freq")
	minC, _ := freq.Int("minC")
	maxC, _ := freq.Int("maxC")
	if minC != 0 || maxC != 0 {
		res.Cycle = parseCycle(freq)
	}

	if ctx.Opt.Remarks {
		res.Remarks = remarksOf(ctx, j.Objs("msgL"))
	}

	if ctx.Opt.ScheduledDays {
		if bitmap := j.Obj("sDays").String("sDaysB"); bitmap != "" {
			res.ScheduledDays = ScheduledDays(ctx.Profile, bitmap, ctx.now())
		}
	}
	return res
}

// ScheduledDays expands a hex day bitmap, one bit per day starting on
// January 1st of now's year in the profile's timezone, into ISO date → bool.
func ScheduledDays(p *Profile, bitmap string, now time.Time) map[string]bool {
	bytes, err := hex.DecodeString(bitmap)
	if err != nil {
		return nil
	}
	loc := p.Location()
	d := time.Date(now.In(loc).Year(), time.January, 1, 0, 0, 0, 0, loc)
	out := make(map[string]bool, len(bytes)*8)
	for _, b := range bytes {
		for i := 0; i < 8; i++ {
			out[d.Format("2006-01-02")] = b&(1<<(7-i)) != 0
			d = d.AddDate(0, 0, 1)
		}
	}
	return out
}

// parseTrip treats a JourneyDetails record as one leg from its first to its last stop.
func parseTrip(ctx *Context, t *raw.Object) *domain.Trip {
	stops := t.Objs("stopL")
	if len(stops) == 0 {
		return nil
	}
	pseudo := raw.New().
		With("type", "JNY").
		With("dep", stops[0]).
		With("arr", stops[len(stops)-1]).
		With("jny", t)

	leg := ctx.Profile.Parsers.JourneyLeg(ctx, pseudo, t.String("date"))
	if leg == nil {
		return nil
	}
	trip := &domain.Trip{ID: leg.TripID, Leg: *leg}
	trip.TripID = ""
	trip.Reachable = nil
	return trip
}

// parseCycle reads a freq record; minC and maxC are minutes.
func parseCycle(freq *raw.Object) *domain.Cycle {
	c := &domain.Cycle{}
	if m, ok := freq.Int("minC"); ok && m != 0 {
		secs := m * 60
		c.Min = &secs
	}
	if m, ok := freq.Int("maxC"); ok && m != 0 {
		secs := m * 60
		c.Max = &secs
	}
	if n, ok := freq.Int("numC"); ok && n != 0 {
		c.Nr = &n
	}
	return c
}
