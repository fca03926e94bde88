package profiles

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/hafas"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

var (
	modePrefix = regexp.MustCompile(`(?i)^(bus|tram)\s+`)
	lineName   = regexp.MustCompile(`^([A-Z]+)?(\d+)?([A-Z]*)$`)

	ringbahnClockwise     = regexp.MustCompile(`(?i)^ringbahn s\s?41$`)
	ringbahnAnticlockwise = regexp.MustCompile(`(?i)^ringbahn s\s?42$`)

	stationPrefix = regexp.MustCompile(`^(S\+U|S|U)\s+`)
	stationSuffix = regexp.MustCompile(`(\s+(Bhf|\(Berlin\)))+$`)

	ibnr = regexp.MustCompile(`^\d+$`)
)

func customizeBVG(p *hafas.Profile) {
	base := hafas.DefaultParsers()
	p.Parsers = hafas.Parsers{
		Line:        hafas.Hook(base.Line, parseBVGLine),
		StationName: func(_ *hafas.Context, name string) string { return shortStationName(name) },
		Departure:   hafas.Hook(base.Departure, renameRingbahn),
		JourneyLeg:  parseLegWithBerlkoenig(base.JourneyLeg),
	}
	p.TransformJourneysQuery = bvgJourneysQuery
	p.StationID = bvgStationID
}

// bvgStationID accepts 7, 9 and 12 digit IBNRs. 12 digit IDs are sent in
// their 9 digit form, 7 digit ones as they are.
func bvgStationID(id string) (string, error) {
	if n := len(id); (n != 7 && n != 9 && n != 12) || !ibnr.MatchString(id) {
		return "", fmt.Errorf("%w: station id %q must be a valid IBNR", hafas.ErrValidation, id)
	}
	if len(id) == 12 && id[3:6] == "000" {
		return id[:3] + id[6:], nil
	}
	return id, nil
}

func parseBVGLine(_ *hafas.Context, _ *raw.Object, l *domain.Line) *domain.Line {
	l.Name = modePrefix.ReplaceAllString(l.Name, "")
	m := lineName.FindStringSubmatch(l.Name)
	if m == nil {
		return l
	}
	l.Symbol = m[1]
	if n, err := strconv.Atoi(m[2]); err == nil {
		l.Nr = &n
	}
	switch l.Symbol {
	case "M":
		l.Metro = true
	case "X":
		l.Express = true
	case "N":
		l.Night = true
	}
	return l
}

// shortStationName drops the city suffix and transfer prefixes, e.g.
// "S+U Alexanderplatz Bhf (Berlin)" → "Alexanderplatz".
func shortStationName(name string) string {
	short := stationSuffix.ReplaceAllString(stationPrefix.ReplaceAllString(name, ""), "")
	if short = strings.TrimSpace(short); short != "" {
		return short
	}
	return name
}

func renameRingbahn(_ *hafas.Context, _ *raw.Object, d *domain.Departure) *domain.Departure {
	if d.Line == nil || d.Line.Product != "suburban" {
		return d
	}
	dir := strings.TrimSpace(d.Direction)
	switch {
	case ringbahnClockwise.MatchString(dir):
		d.Direction = "Ringbahn S41 ⟳"
	case ringbahnAnticlockwise.MatchString(dir):
		d.Direction = "Ringbahn S42 ⟲"
	}
	return d
}

// parseLegWithBerlkoenig turns Berlkönig ride-sharing sections into taxi legs.
func parseLegWithBerlkoenig(base func(*hafas.Context, *raw.Object, string) *domain.Leg) func(*hafas.Context, *raw.Object, string) *domain.Leg {
	return func(ctx *hafas.Context, pt *raw.Object, date string) *domain.Leg {
		icon := ctx.Links(pt).Icon
		if pt.String("type") != "KISS" || icon == nil || icon.Type != "prod_berl" {
			return base(ctx, pt, date)
		}
		leg := base(ctx, pt.With("type", "WALK"), date)
		if leg == nil {
			return nil
		}
		leg.Walking = false
		leg.Line = &domain.Line{
			Name:    pt.Obj("dep").Obj("mcp").Obj("mcpData").String("providerName"),
			Public:  true,
			Mode:    "taxi",
			Product: "berlkoenig",
		}
		return leg
	}
}

// bvgJourneysQuery restricts results to public transport, plus Berlkönig
// rides when asked for.
func bvgJourneysQuery(opt hafas.JourneysQuery, req map[string]any) (map[string]any, error) {
	if _, ok := req["numF"]; ok && opt.Berlkoenig {
		return nil, fmt.Errorf("%w: berlkoenig and results are mutually exclusive", hafas.ErrValidation)
	}
	filters, _ := req["jnyFltrL"].([]any)
	filters = append(filters, map[string]any{"type": "GROUP", "mode": "INC", "value": "OEV"})
	if opt.Berlkoenig {
		filters = append(filters, map[string]any{"type": "GROUP", "mode": "INC", "value": "BERLKOENIG"})
	}
	req["jnyFltrL"] = filters
	req["gisFltrL"] = []any{map[string]any{"meta": "foot_speed_normal", "type": "M", "mode": "FB"}}
	return req, nil
}
