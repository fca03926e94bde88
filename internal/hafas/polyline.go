package hafas

import (
	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
	"github.com/samirrijal/hafasgo/internal/pkg/geospatial"
	"github.com/twpayne/go-polyline"
)

// Points closer than this to a point carrying a stop are duplicates of it.
const polylineDedupMeters = 5

func parsePolyline(ctx *Context, p *raw.Object) *domain.Polyline {
	enc := p.String("crdEncYX")
	if enc == "" {
		return nil
	}
	coords, _, err := polyline.DecodeCoords([]byte(enc))
	if err != nil {
		ctx.logger().Debug("undecodable polyline", "error", err)
		return nil
	}
	if len(coords) == 0 {
		return nil
	}

	points := make([]domain.GeoPoint, len(coords))
	for i, c := range coords {
		points[i] = domain.GeoPoint{Lat: c[0], Lon: c[1]}
	}
	pl := domain.NewPolyline(points)

	refs := p.Objs("ppLocRefL")
	if len(refs) == 0 {
		return pl
	}
	for _, ref := range refs {
		idx, ok := ref.Int("ppIdx")
		if !ok || idx < 0 || idx >= len(pl.Features) {
			continue
		}
		if loc := ctx.Links(ref).Location; loc != nil {
			pl.Features[idx].Properties = loc
		}
	}

	// Drop the near-duplicate that often sits right next to a stop point.
	// After a removal the pair at i is new and gets compared again.
	for i := 1; i < len(pl.Features); {
		a, b := pl.Features[i-1], pl.Features[i]
		d := geospatial.Haversine(a.Geometry.Coordinates[1], a.Geometry.Coordinates[0],
			b.Geometry.Coordinates[1], b.Geometry.Coordinates[0])
		switch {
		case d >= polylineDedupMeters:
			i++
		case a.Properties == nil && b.Properties != nil:
			pl.Features = append(pl.Features[:i-1], pl.Features[i:]...)
		case b.Properties == nil && a.Properties != nil:
			pl.Features = append(pl.Features[:i], pl.Features[i+1:]...)
		default:
			i++
		}
	}
	return pl
}
