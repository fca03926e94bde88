package hafas

import (
	"math"
	"strconv"
	"time"

	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

// Times is a normalized planned/realized time pair.
// When is nil for a cancelled stop; Planned, Prognosed and Delay are still set.
type Times struct {
	When      *time.Time
	Planned   *time.Time
	Prognosed *time.Time
	// Delay is in seconds, nil when there is no realtime data.
	Delay *int
}

// Platforms is a normalized planned/realized platform pair.
type Platforms struct {
	Platform  string
	Planned   string
	Prognosed string
}

// ParseDateTime combines a HAFAS date ("20060102") and time of day
// ("[dd]150405" or "1504") into an instant. Leading day digits add days.
// With tzOffset (minutes east of UTC) the result uses that fixed offset,
// otherwise the profile's timezone.
func ParseDateTime(p *Profile, date, clock string, tzOffset *int) (time.Time, bool) {
	loc := p.Location()
	if tzOffset != nil {
		loc = time.FixedZone("", *tzOffset*60)
	}
	return civilTime(date, clock, loc)
}

func parseDateTime(ctx *Context, date, clock string, tzOffset *int) (time.Time, bool) {
	return ParseDateTime(ctx.Profile, date, clock, tzOffset)
}

func civilTime(date, clock string, loc *time.Location) (time.Time, bool) {
	if len(date) != 8 {
		return time.Time{}, false
	}
	year, err1 := strconv.Atoi(date[0:4])
	month, err2 := strconv.Atoi(date[4:6])
	day, err3 := strconv.Atoi(date[6:8])
	if err1 != nil || err2 != nil || err3 != nil || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	var days, hh, mm, ss int
	switch {
	case len(clock) == 4:
		var e1, e2 error
		hh, e1 = strconv.Atoi(clock[0:2])
		mm, e2 = strconv.Atoi(clock[2:4])
		if e1 != nil || e2 != nil {
			return time.Time{}, false
		}
	case len(clock) >= 6:
		n := len(clock) - 6
		if n > 0 {
			d, err := strconv.Atoi(clock[:n])
			if err != nil || d < 0 {
				return time.Time{}, false
			}
			days = d
		}
		var e1, e2, e3 error
		hh, e1 = strconv.Atoi(clock[n : n+2])
		mm, e2 = strconv.Atoi(clock[n+2 : n+4])
		ss, e3 = strconv.Atoi(clock[n+4 : n+6])
		if e1 != nil || e2 != nil || e3 != nil {
			return time.Time{}, false
		}
	default:
		return time.Time{}, false
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 || ss < 0 || ss > 59 {
		return time.Time{}, false
	}

	return time.Date(year, time.Month(month), day+days, hh, mm, ss, 0, loc), true
}

func parseWhen(ctx *Context, date, planned, realized string, tzOffset *int, cancelled bool) Times {
	dt := ctx.Profile.Parsers.DateTime

	var res Times
	if planned != "" {
		if t, ok := dt(ctx, date, planned, tzOffset); ok {
			res.Planned = &t
		}
	}
	var prognosed *time.Time
	if realized != "" {
		if t, ok := dt(ctx, date, realized, tzOffset); ok {
			prognosed = &t
		}
	}

	// Delay is the wall-clock difference; the zone plays no part in it.
	if res.Planned != nil && prognosed != nil {
		ps, ok1 := civilTime(date, planned, time.UTC)
		pr, ok2 := civilTime(date, realized, time.UTC)
		if ok1 && ok2 {
			d := int(math.Round(pr.Sub(ps).Seconds()))
			res.Delay = &d
		}
	}

	if cancelled {
		res.Prognosed = prognosed
		return res
	}
	res.When = prognosed
	if res.When == nil {
		res.When = res.Planned
	}
	return res
}

func parsePlatform(_ *Context, planned, realized string, cancelled bool) Platforms {
	if cancelled {
		return Platforms{Planned: planned, Prognosed: realized}
	}
	p := realized
	if p == "" {
		p = planned
	}
	return Platforms{Platform: p, Planned: planned}
}

// when reads the <prefix>TimeS/TimeR/TZOffset fields of a raw stop record.
func when(ctx *Context, o *raw.Object, prefix, date string, cancelled bool) Times {
	return ctx.Profile.Parsers.When(ctx, date,
		o.String(prefix+"TimeS"), o.String(prefix+"TimeR"),
		tzOffset(o, prefix+"TZOffset"), cancelled)
}

// platform reads <prefix>PlatfS/PlatfR, or the newer <prefix>PltfS.txt form.
func platform(ctx *Context, o *raw.Object, prefix string, cancelled bool) Platforms {
	planned := o.String(prefix + "PlatfS")
	if planned == "" {
		planned = o.Obj(prefix + "PltfS").String("txt")
	}
	realized := o.String(prefix + "PlatfR")
	if realized == "" {
		realized = o.Obj(prefix + "PltfR").String("txt")
	}
	return ctx.Profile.Parsers.Platform(ctx, planned, realized, cancelled)
}

func tzOffset(o *raw.Object, key string) *int {
	if v, ok := o.Int(key); ok {
		return &v
	}
	return nil
}
