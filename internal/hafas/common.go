package hafas

import (
	"sort"

	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
	"github.com/samirrijal/hafasgo/internal/hafas/scanner"
	"github.com/samirrijal/hafasgo/internal/pkg/metrics"
)

var (
	patOperator      = scanner.Compile("**.oprX")
	patIcon          = scanner.Compile("**.icoX")
	patLine          = scanner.Compile("**.prodX")
	patLines         = scanner.Compile("**.pRefL")
	patLocation      = scanner.Compile("**.locX")
	patAniFromLocs   = scanner.Compile("**.ani.fLocX")
	patAniToLocs     = scanner.Compile("**.ani.tLocX")
	patFromLocation  = scanner.Compile("**.fLocX")
	patToLocation    = scanner.Compile("**.tLocX")
	patHint          = scanner.Compile("**.remX")
	patWarning       = scanner.Compile("**.himX")
	patPolylineGroup = scanner.Compile("**.polyG.polyXL")

	referencePatterns = []scanner.Pattern{
		patOperator, patIcon, patLine, patLines, patLocation,
		patAniFromLocs, patAniToLocs, patFromLocation, patToLocation,
		patHint, patWarning, patPolylineGroup,
	}
)

// Links are the resolved entities a raw record refers to by index.
type Links struct {
	Operator      *domain.Operator
	Icon          *domain.Icon
	Line          *domain.Line
	Lines         []*domain.Line
	Location      *domain.Location
	FromLocation  *domain.Location
	ToLocation    *domain.Location
	FromLocations []*domain.Location
	ToLocations   []*domain.Location
	Hint          *domain.Remark
	Warning       *domain.Remark
	Polyline      *domain.Polyline
}

// Common holds the parsed shared tables of one response. Each table entry
// is parsed once; every record referring to it gets the same pointer.
// Entries a parser rejected stay as nil so indices keep lining up.
type Common struct {
	Operators []*domain.Operator
	Icons     []*domain.Icon
	Lines     []*domain.Line
	Locations []*domain.Location
	Hints     []*domain.Remark
	Warnings  []*domain.Remark
	Polylines []*domain.Polyline

	// Dropped counts references per pattern that pointed at nothing.
	Dropped map[string]int

	links map[*raw.Object]*Links
}

// Links returns the resolved references of o. It never returns nil.
func (c *Common) Links(o *raw.Object) *Links {
	if c == nil || o == nil {
		return &Links{}
	}
	if l, ok := c.links[o]; ok {
		return l
	}
	return &Links{}
}

func (c *Common) linksFor(o *raw.Object) *Links {
	l, ok := c.links[o]
	if !ok {
		l = &Links{}
		c.links[o] = l
	}
	return l
}

func (c *Common) drop(p scanner.Pattern) {
	c.Dropped[p.String()]++
}

// ResolveCommon parses res.common and links every index reference in res to
// the parsed entity. It installs the result as ctx.Common and never modifies res.
func ResolveCommon(ctx *Context, res *raw.Object) *Common {
	c := &Common{
		Dropped: map[string]int{},
		links:   map[*raw.Object]*Links{},
	}
	ctx.Common = c
	ctx.Res = res

	tables := res.Obj("common")
	matches := scanner.Scan(res, referencePatterns...)
	parsers := ctx.Profile.Parsers

	c.Operators = parseTable(ctx, tables, "opL", parsers.Operator)
	link(c, matches.Of(patOperator), c.Operators, patOperator, func(l *Links, v *domain.Operator) { l.Operator = v })

	c.Icons = parseTable(ctx, tables, "icoL", parsers.Icon)
	link(c, matches.Of(patIcon), c.Icons, patIcon, func(l *Links, v *domain.Icon) { l.Icon = v })

	c.Lines = parseTable(ctx, tables, "prodL", parsers.Line)
	link(c, matches.Of(patLine), c.Lines, patLine, func(l *Links, v *domain.Line) { l.Line = v })
	for _, m := range matches.Of(patLines) {
		idxs, ok := m.Indices()
		if !ok {
			c.drop(patLines)
			continue
		}
		lines := make([]*domain.Line, 0, len(idxs))
		for _, i := range idxs {
			if line := at(c.Lines, i); line != nil {
				lines = append(lines, line)
			} else {
				c.drop(patLines)
			}
		}
		c.linksFor(m.Owner()).Lines = lines
	}

	c.Locations = parseTable(ctx, tables, "locL", parsers.Location)
	c.resolveStations(ctx, tables)
	link(c, matches.Of(patLocation), c.Locations, patLocation, func(l *Links, v *domain.Location) { l.Location = v })
	c.linkLocationLists(matches.Of(patAniFromLocs), patAniFromLocs, func(l *Links, v []*domain.Location) { l.FromLocations = v })
	c.linkLocationLists(matches.Of(patAniToLocs), patAniToLocs, func(l *Links, v []*domain.Location) { l.ToLocations = v })
	link(c, numeric(matches.Of(patFromLocation)), c.Locations, patFromLocation, func(l *Links, v *domain.Location) { l.FromLocation = v })
	link(c, numeric(matches.Of(patToLocation)), c.Locations, patToLocation, func(l *Links, v *domain.Location) { l.ToLocation = v })

	if ctx.Opt.Remarks {
		c.Hints = parseTable(ctx, tables, "remL", parsers.Hint)
		link(c, matches.Of(patHint), c.Hints, patHint, func(l *Links, v *domain.Remark) { l.Hint = v })

		c.Warnings = parseTable(ctx, tables, "himL", parsers.Warning)
		link(c, matches.Of(patWarning), c.Warnings, patWarning, func(l *Links, v *domain.Remark) { l.Warning = v })
	}

	if ctx.Opt.Polylines {
		c.Polylines = parseTable(ctx, tables, "polyL", parsers.Polyline)
		for _, m := range matches.Of(patPolylineGroup) {
			idxs, _ := m.Indices()
			var found *domain.Polyline
			for _, i := range idxs {
				if found = at(c.Polylines, i); found != nil {
					break
				}
			}
			owner := m.Ancestor(1)
			if found == nil || owner == nil {
				c.drop(patPolylineGroup)
				continue
			}
			c.linksFor(owner).Polyline = found
		}
	}

	c.report(ctx)
	return c
}

// resolveStations splices parent stations, sub-stops and entrances, which
// refer to other entries of the location table.
func (c *Common) resolveStations(ctx *Context, tables *raw.Object) {
	rawLocs, _ := tables.Arr("locL")
	for i, v := range rawLocs {
		r, _ := v.(*raw.Object)
		loc := at(c.Locations, i)
		if r == nil || loc == nil {
			continue
		}

		if mast, ok := r.Int("mMastLocX"); ok {
			if target := at(c.Locations, mast); target != nil {
				station := *target
				station.Kind = domain.KindStation
				// The embedded station must not point back at its sub-stops.
				station.Stops = nil
				loc.Station = &station
			}
		} else if r.Truthy("isMainMast") {
			loc.Kind = domain.KindStation
		}

		if ctx.Opt.SubStops {
			if idxs, ok := r.Arr("stopLocL"); ok {
				for _, iv := range idxs {
					j, ok := raw.AsInt(iv)
					if sub := at(c.Locations, j); ok && sub != nil && j != i {
						loc.Stops = append(loc.Stops, sub)
					}
				}
			}
		}
		if ctx.Opt.Entrances {
			if idxs, ok := r.Arr("entryLocL"); ok {
				for _, iv := range idxs {
					j, ok := raw.AsInt(iv)
					if e := at(c.Locations, j); ok && e != nil && e.Coord != nil {
						loc.Entrances = append(loc.Entrances, *e.Coord)
					}
				}
			}
		}
	}
}

// linkLocationLists keeps positions aligned: an unresolvable index stays as nil.
func (c *Common) linkLocationLists(ms []scanner.Match, p scanner.Pattern, set func(*Links, []*domain.Location)) {
	for _, m := range ms {
		idxs, ok := m.Indices()
		if !ok {
			c.drop(p)
			continue
		}
		locs := make([]*domain.Location, len(idxs))
		for k, i := range idxs {
			locs[k] = at(c.Locations, i)
			if locs[k] == nil {
				c.drop(p)
			}
		}
		set(c.linksFor(m.Owner()), locs)
	}
}

func (c *Common) report(ctx *Context) {
	if len(c.Dropped) == 0 {
		return
	}
	patterns := make([]string, 0, len(c.Dropped))
	for p := range c.Dropped {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)
	for _, p := range patterns {
		n := c.Dropped[p]
		metrics.UnresolvedReferences.WithLabelValues(p).Add(float64(n))
		ctx.logger().Debug("unresolved references", "pattern", p, "count", n)
	}
}

func parseTable[T any](ctx *Context, tables *raw.Object, key string, parse func(*Context, *raw.Object) *T) []*T {
	arr, _ := tables.Arr(key)
	out := make([]*T, len(arr))
	for i, v := range arr {
		if o, ok := v.(*raw.Object); ok {
			out[i] = parse(ctx, o)
		}
	}
	return out
}

func link[T any](c *Common, ms []scanner.Match, table []*T, p scanner.Pattern, set func(*Links, *T)) {
	for _, m := range ms {
		i, ok := m.Index()
		v := at(table, i)
		if !ok || v == nil {
			c.drop(p)
			continue
		}
		set(c.linksFor(m.Owner()), v)
	}
}

// numeric keeps the matches holding a single index. "**.fLocX" also sees
// the list form under "ani", which has its own pattern.
func numeric(ms []scanner.Match) []scanner.Match {
	out := ms[:0:0]
	for _, m := range ms {
		if _, ok := m.Index(); ok {
			out = append(out, m)
		}
	}
	return out
}

func at[T any](table []*T, i int) *T {
	if i < 0 || i >= len(table) {
		return nil
	}
	return table[i]
}
