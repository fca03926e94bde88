package hafas

import (
	"sort"
	"time"

	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

const (
	prefixArrival   = "a"
	prefixDeparture = "d"
)

// boardEntryParser parses StationBoard entries; prefix selects the
// arrival ("a") or departure ("d") fields of the stbStop record.
func boardEntryParser(prefix string) func(*Context, *raw.Object) *domain.Departure {
	return func(ctx *Context, d *raw.Object) *domain.Departure {
		stb := d.Obj("stbStop")
		date := d.String("date")
		cancelled := stb.Truthy(prefix + "Cncl")

		t := when(ctx, stb, prefix, date, cancelled)
		pl := platform(ctx, stb, prefix, cancelled)

		res := &domain.Departure{
			TripID: d.String("jid"),
			Stop:   ctx.Links(stb).Location,

			When:          t.When,
			PlannedWhen:   t.Planned,
			PrognosedWhen: t.Prognosed,
			Delay:         t.Delay,

			Platform:          pl.Platform,
			PlannedPlatform:   pl.Planned,
			PrognosedPlatform: pl.Prognosed,

			Line:      ctx.Links(d).Line,
			Cancelled: cancelled,
		}

		if dir := d.String("dirTxt"); prefix == prefixDeparture && dir != "" {
			res.Direction = ctx.Profile.Parsers.StationName(ctx, dir)
		}

		if ctx.Opt.Remarks {
			refs := append(d.Objs("remL"), d.Objs("msgL")...)
			res.Remarks = remarksOf(ctx, refs)
		}

		if ctx.Opt.Stopovers {
			if _, ok := d.Arr("stopL"); ok {
				stopovers := WithoutPassBy(parseStopovers(ctx, d.Objs("stopL"), date))
				SortStopovers(stopovers)
				if prefix == prefixArrival {
					res.PreviousStopovers = stopovers
				} else {
					res.NextStopovers = stopovers
				}
			}
		}
		return res
	}
}

func boardTime(d *domain.Departure) *time.Time {
	if d.When != nil {
		return d.When
	}
	return d.PlannedWhen
}

// SortBoard orders station board entries by realized, else planned, time.
// Entries without any time go last.
func SortBoard(entries []*domain.Departure) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := boardTime(entries[i]), boardTime(entries[j])
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.Before(*b)
	})
}
