package hafas

import (
	"sort"
	"time"

	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

func parseStopover(ctx *Context, st *raw.Object, date string) *domain.Stopover {
	aCncl, dCncl := st.Truthy("aCncl"), st.Truthy("dCncl")
	arr := when(ctx, st, "a", date, aCncl)
	arrPl := platform(ctx, st, "a", aCncl)
	dep := when(ctx, st, "d", date, dCncl)
	depPl := platform(ctx, st, "d", dCncl)

	s := &domain.Stopover{
		Stop: ctx.Links(st).Location,

		Arrival:                  arr.When,
		PlannedArrival:           arr.Planned,
		PrognosedArrival:         arr.Prognosed,
		ArrivalDelay:             arr.Delay,
		ArrivalPlatform:          arrPl.Platform,
		PlannedArrivalPlatform:   arrPl.Planned,
		PrognosedArrivalPlatform: arrPl.Prognosed,

		Departure:                  dep.When,
		PlannedDeparture:           dep.Planned,
		PrognosedDeparture:         dep.Prognosed,
		DepartureDelay:             dep.Delay,
		DeparturePlatform:          depPl.Platform,
		PlannedDeparturePlatform:   depPl.Planned,
		PrognosedDeparturePlatform: depPl.Prognosed,

		Cancelled: aCncl || dCncl,
	}

	// Boarding and alighting both explicitly disallowed: the vehicle passes by.
	dIn, dInOK := st.Bool("dInS")
	aOut, aOutOK := st.Bool("aOutS")
	s.PassBy = dInOK && aOutOK && !dIn && !aOut

	if ctx.Opt.Remarks {
		s.Remarks = remarksOf(ctx, st.Objs("msgL"))
	}
	return s
}

func parseStopovers(ctx *Context, stops []*raw.Object, date string) []*domain.Stopover {
	out := make([]*domain.Stopover, 0, len(stops))
	for _, st := range stops {
		if s := ctx.Profile.Parsers.Stopover(ctx, st, date); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// WithoutPassBy drops stopovers the vehicle does not halt at.
func WithoutPassBy(stopovers []*domain.Stopover) []*domain.Stopover {
	out := make([]*domain.Stopover, 0, len(stopovers))
	for _, s := range stopovers {
		if !s.PassBy {
			out = append(out, s)
		}
	}
	return out
}

func stopoverTime(s *domain.Stopover) *time.Time {
	for _, t := range []*time.Time{s.Departure, s.PlannedDeparture, s.Arrival, s.PlannedArrival} {
		if t != nil {
			return t
		}
	}
	return nil
}

// SortStopovers orders stopovers by realized, else planned, time. A list in
// which some stopover has no time at all keeps its upstream order.
func SortStopovers(stopovers []*domain.Stopover) {
	for _, s := range stopovers {
		if stopoverTime(s) == nil {
			return
		}
	}
	sort.SliceStable(stopovers, func(i, j int) bool {
		return stopoverTime(stopovers[i]).Before(*stopoverTime(stopovers[j]))
	})
}
