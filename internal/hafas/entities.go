package hafas

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

func parseOperator(_ *Context, o *raw.Object) *domain.Operator {
	name := strings.TrimSpace(o.String("name"))
	if name == "" {
		return nil
	}
	return &domain.Operator{ID: Slug(name), Name: name}
}

func parseIcon(_ *Context, o *raw.Object) *domain.Icon {
	res := o.String("res")
	if res == "Empty" {
		return nil
	}
	icon := &domain.Icon{Type: res}
	for _, k := range []string{"text", "txt", "txtS"} {
		if t := o.String(k); t != "" {
			icon.Title = t
			break
		}
	}
	icon.FgColor = parseColor(o.Obj("fg"))
	icon.BgColor = parseColor(o.Obj("bg"))
	return icon
}

func parseColor(o *raw.Object) *domain.Color {
	if o == nil {
		return nil
	}
	r, _ := o.Int("r")
	g, _ := o.Int("g")
	b, _ := o.Int("b")
	a, _ := o.Int("a")
	return &domain.Color{R: r, G: g, B: b, A: a}
}

func parseLine(ctx *Context, p *raw.Object) *domain.Line {
	var name string
	for _, k := range []string{"line", "addName", "name"} {
		if name = p.String(k); name != "" {
			break
		}
	}

	line := &domain.Line{Name: name, Public: true}
	prodCtx := p.Obj("prodCtx")
	line.FahrtNr = strings.TrimSpace(prodCtx.String("num"))
	if lineID, ok := prodCtx.Str("lineId"); ok {
		line.ID = Slug(lineID)
	} else if name != "" {
		line.ID = Slug(name)
	}
	if admin, ok := prodCtx.Str("admin"); ok {
		line.AdminCode = strings.ReplaceAll(strings.TrimSpace(admin), "_", "")
	}

	if cls, ok := p.Int("cls"); ok {
		if prod := ctx.Profile.ProductByBitmask(cls); prod != nil {
			line.Mode = prod.Mode
			line.Product = prod.ID
		}
	}

	l := ctx.Links(p)
	line.Operator = l.Operator
	line.Icon = l.Icon
	return line
}

func parseLocation(ctx *Context, l *raw.Object) *domain.Location {
	lid := parseLid(l.String("lid"))

	id := l.String("extId")
	if id == "" {
		id = lid["L"]
	}
	id = stripLeadingZeros(id)

	var coord *domain.GeoPoint
	if crd := l.Obj("crd"); crd != nil {
		x, okX := crd.Float("x")
		y, okY := crd.Float("y")
		if okX && okY {
			coord = &domain.GeoPoint{Lat: y / 1e6, Lon: x / 1e6}
		}
	} else if xs, ys := lid["X"], lid["Y"]; xs != "" && ys != "" {
		x, errX := strconv.ParseFloat(xs, 64)
		y, errY := strconv.ParseFloat(ys, 64)
		if errX == nil && errY == nil {
			coord = &domain.GeoPoint{Lat: y / 1e6, Lon: x / 1e6}
		}
	}

	name := l.String("name")
	if name == "" {
		name = lid["O"]
	}

	switch l.String("type") {
	case "S":
		stop := &domain.Location{Kind: domain.KindStop, ID: id, Coord: coord}
		if l.Truthy("isMainMast") {
			stop.Kind = domain.KindStation
		}
		if name != "" {
			stop.Name = ctx.Profile.Parsers.StationName(ctx, name)
		}
		if pCls, ok := l.Int("pCls"); ok {
			stop.Products = ctx.Profile.Parsers.ProductsBitmask(ctx, pCls)
		}
		stop.IsMeta = l.Truthy("meta")
		if ctx.Opt.LinesOfStops {
			stop.Lines = ctx.Links(l).Lines
		}
		return stop
	case "A":
		return &domain.Location{Kind: domain.KindAddress, ID: id, Address: name, Coord: coord}
	case "P":
		return &domain.Location{Kind: domain.KindPOI, ID: id, Name: name, Coord: coord}
	default:
		return &domain.Location{Kind: domain.KindPoint, ID: id, Name: name, Coord: coord}
	}
}

var hintCodesByIcon = map[string]string{
	"cancel": "cancelled",
}

func parseHint(ctx *Context, h *raw.Object) *domain.Remark {
	text := strings.TrimSpace(h.String("txtN"))
	typ := h.String("type")
	rawCode := h.String("code")

	// Foreign identifiers hide in the text of "TW" info records.
	if typ == "I" && rawCode == "TW" {
		switch {
		case strings.HasPrefix(text, "$"):
			return &domain.Remark{Type: domain.RemarkStopDHID, Text: text[1:]}
		case strings.HasPrefix(text, "#"):
			return &domain.Remark{Type: domain.RemarkForeignID, Text: text[1:]}
		}
	}

	code := rawCode
	if code == "" {
		if icon := ctx.Links(h).Icon; icon != nil {
			code = hintCodesByIcon[icon.Type]
		}
	}

	switch typ {
	case "M":
		return &domain.Remark{
			Type:    domain.RemarkStatus,
			Summary: strings.TrimSpace(h.String("txtS")),
			Code:    code,
			Text:    text,
		}
	case "L":
		return &domain.Remark{
			Type:   domain.RemarkStatus,
			Code:   "alternative-trip",
			Text:   text,
			TripID: h.String("jid"),
		}
	case "A", "I":
		return &domain.Remark{Type: domain.RemarkHint, Code: code, Text: text}
	case "D", "U", "R", "N", "Y", "Q":
		return &domain.Remark{Type: domain.RemarkStatus, Code: code, Text: text}
	}
	return nil
}

var lineBreakTag = regexp.MustCompile(`(?i)<br\s*/?>`)

func brToNewline(s string) string {
	return lineBreakTag.ReplaceAllString(s, "\n")
}

func parseWarning(ctx *Context, w *raw.Object) *domain.Remark {
	icon := ctx.Links(w).Icon
	r := &domain.Remark{
		Type:    domain.RemarkWarning,
		ID:      w.String("hid"),
		Summary: brToNewline(w.String("head")),
		Text:    brToNewline(w.String("text")),
		Icon:    icon,
	}
	if icon != nil && icon.Type == "HimWarn" {
		r.Type = domain.RemarkStatus
	}
	if prio, ok := w.Int("prio"); ok {
		r.Priority = &prio
	}
	if cat, ok := w.Int("cat"); ok {
		r.Category = &cat
	}
	if prod, ok := w.Int("prod"); ok {
		r.Products = ctx.Profile.Parsers.ProductsBitmask(ctx, prod)
	}
	if idxs, ok := w.Arr("affProdRefL"); ok && ctx.Common != nil {
		for _, v := range idxs {
			if i, ok := raw.AsInt(v); ok && at(ctx.Common.Lines, i) != nil {
				line := ctx.Common.Lines[i]
				r.Lines = append(r.Lines, line)
			}
		}
	}

	dt := ctx.Profile.Parsers.DateTime
	stamp := func(dateKey, timeKey string) *time.Time {
		d, t := w.String(dateKey), w.String(timeKey)
		if d == "" || t == "" {
			return nil
		}
		if v, ok := dt(ctx, d, t, nil); ok {
			return &v
		}
		return nil
	}
	r.ValidFrom = stamp("sDate", "sTime")
	r.ValidUntil = stamp("eDate", "eTime")
	r.Modified = stamp("lModDate", "lModTime")
	return r
}
