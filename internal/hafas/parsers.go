package hafas

import (
	"time"

	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

// Parsers holds one parse function per entity kind. Profiles replace or wrap
// individual entries; a nil entry falls back to the default.
// A parser returning nil means "skip this record".
type Parsers struct {
	Operator   func(ctx *Context, o *raw.Object) *domain.Operator
	Icon       func(ctx *Context, o *raw.Object) *domain.Icon
	Line       func(ctx *Context, o *raw.Object) *domain.Line
	Location   func(ctx *Context, o *raw.Object) *domain.Location
	Hint       func(ctx *Context, o *raw.Object) *domain.Remark
	Warning    func(ctx *Context, o *raw.Object) *domain.Remark
	Polyline   func(ctx *Context, o *raw.Object) *domain.Polyline
	Departure  func(ctx *Context, o *raw.Object) *domain.Departure
	Arrival    func(ctx *Context, o *raw.Object) *domain.Arrival
	Stopover   func(ctx *Context, o *raw.Object, date string) *domain.Stopover
	JourneyLeg func(ctx *Context, o *raw.Object, date string) *domain.Leg
	Journey    func(ctx *Context, o *raw.Object) *domain.Journey
	Trip       func(ctx *Context, o *raw.Object) *domain.Trip
	Movement   func(ctx *Context, o *raw.Object) *domain.Movement
	Nearby     func(ctx *Context, o *raw.Object) *domain.Location

	StationName     func(ctx *Context, name string) string
	DateTime        func(ctx *Context, date, clock string, tzOffset *int) (time.Time, bool)
	When            func(ctx *Context, date, planned, realized string, tzOffset *int, cancelled bool) Times
	Platform        func(ctx *Context, planned, realized string, cancelled bool) Platforms
	ProductsBitmask func(ctx *Context, mask int) map[string]bool
}

// DefaultParsers returns the base parser set.
func DefaultParsers() Parsers {
	return Parsers{
		Operator:   parseOperator,
		Icon:       parseIcon,
		Line:       parseLine,
		Location:   parseLocation,
		Hint:       parseHint,
		Warning:    parseWarning,
		Polyline:   parsePolyline,
		Departure:  boardEntryParser(prefixDeparture),
		Arrival:    boardEntryParser(prefixArrival),
		Stopover:   parseStopover,
		JourneyLeg: parseJourneyLeg,
		Journey:    parseJourney,
		Trip:       parseTrip,
		Movement:   parseMovement,
		Nearby:     parseNearby,

		StationName:     func(_ *Context, name string) string { return name },
		DateTime:        parseDateTime,
		When:            parseWhen,
		Platform:        parsePlatform,
		ProductsBitmask: func(ctx *Context, mask int) map[string]bool { return ctx.Profile.ProductsFromBitmask(mask) },
	}
}

// Hook wraps base so post sees every non-nil result and may replace it.
func Hook[T any](base func(*Context, *raw.Object) *T, post func(ctx *Context, o *raw.Object, parsed *T) *T) func(*Context, *raw.Object) *T {
	return func(ctx *Context, o *raw.Object) *T {
		parsed := base(ctx, o)
		if parsed == nil {
			return nil
		}
		return post(ctx, o, parsed)
	}
}

// HookDated is Hook for parsers that also take the service date.
func HookDated[T any](base func(*Context, *raw.Object, string) *T, post func(ctx *Context, o *raw.Object, parsed *T) *T) func(*Context, *raw.Object, string) *T {
	return func(ctx *Context, o *raw.Object, date string) *T {
		parsed := base(ctx, o, date)
		if parsed == nil {
			return nil
		}
		return post(ctx, o, parsed)
	}
}

func (p Parsers) withDefaults(d Parsers) Parsers {
	if p.Operator == nil {
		p.Operator = d.Operator
	}
	if p.Icon == nil {
		p.Icon = d.Icon
	}
	if p.Line == nil {
		p.Line = d.Line
	}
	if p.Location == nil {
		p.Location = d.Location
	}
	if p.Hint == nil {
		p.Hint = d.Hint
	}
	if p.Warning == nil {
		p.Warning = d.Warning
	}
	if p.Polyline == nil {
		p.Polyline = d.Polyline
	}
	if p.Departure == nil {
		p.Departure = d.Departure
	}
	if p.Arrival == nil {
		p.Arrival = d.Arrival
	}
	if p.Stopover == nil {
		p.Stopover = d.Stopover
	}
	if p.JourneyLeg == nil {
		p.JourneyLeg = d.JourneyLeg
	}
	if p.Journey == nil {
		p.Journey = d.Journey
	}
	if p.Trip == nil {
		p.Trip = d.Trip
	}
	if p.Movement == nil {
		p.Movement = d.Movement
	}
	if p.Nearby == nil {
		p.Nearby = d.Nearby
	}
	if p.StationName == nil {
		p.StationName = d.StationName
	}
	if p.DateTime == nil {
		p.DateTime = d.DateTime
	}
	if p.When == nil {
		p.When = d.When
	}
	if p.Platform == nil {
		p.Platform = d.Platform
	}
	if p.ProductsBitmask == nil {
		p.ProductsBitmask = d.ProductsBitmask
	}
	return p
}
