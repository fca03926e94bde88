package hafas

import (
	"strconv"
	"strings"

	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

func parseMovement(ctx *Context, m *raw.Object) *domain.Movement {
	res := &domain.Movement{
		TripID: m.String("jid"),
		Line:   ctx.Links(m).Line,
		Frames: []domain.Frame{},
	}
	if dir := m.String("dirTxt"); dir != "" {
		res.Direction = ctx.Profile.Parsers.StationName(ctx, dir)
	}
	if parts := strings.Split(res.TripID, "|"); len(parts) > 1 {
		if n, err := strconv.Atoi(parts[1]); err == nil {
			res.TripNumber = &n
		}
	}

	if pos := m.Obj("pos"); pos != nil {
		x, okX := pos.Float("x")
		y, okY := pos.Float("y")
		if okX && okY {
			res.Location = &domain.GeoPoint{Lat: y / 1e6, Lon: x / 1e6}
		}
	}

	if _, ok := m.Arr("stopL"); ok {
		res.NextStopovers = WithoutPassBy(parseStopovers(ctx, m.Objs("stopL"), m.String("date")))
		SortStopovers(res.NextStopovers)
	}

	ani := m.Obj("ani")
	if ani == nil {
		return res
	}
	links := ctx.Links(ani)
	offsets, _ := ani.Arr("mSec")
	n := min(len(offsets), len(links.FromLocations), len(links.ToLocations))
	for i := 0; i < n; i++ {
		t, ok := raw.AsInt(offsets[i])
		from, to := links.FromLocations[i], links.ToLocations[i]
		if !ok || from == nil || to == nil {
			continue
		}
		res.Frames = append(res.Frames, domain.Frame{Origin: from, Destination: to, T: t})
	}

	if ctx.Opt.Polylines {
		if poly := ani.Obj("poly"); poly != nil {
			res.Polyline = ctx.Profile.Parsers.Polyline(ctx, poly)
		} else {
			res.Polyline = links.Polyline
		}
	}
	return res
}

// parseNearby parses a LocGeoPos entry. The upstream distance is kept when
// present; callers that know the query point may fill in the rest.
func parseNearby(ctx *Context, n *raw.Object) *domain.Location {
	loc := ctx.Profile.Parsers.Location(ctx, n)
	if loc == nil {
		return nil
	}
	if dist, ok := n.Int("dist"); ok {
		loc.Distance = &dist
	}
	return loc
}
