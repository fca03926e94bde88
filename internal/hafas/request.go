package hafas

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/samirrijal/hafasgo/internal/core/domain"
)

// Request is one service request of the mgate envelope (an svcReqL entry).
type Request struct {
	Meth string         `json:"meth"`
	Req  map[string]any `json:"req"`
	Cfg  *RequestConfig `json:"cfg,omitempty"`
}

// RequestConfig tunes how the upstream encodes its answer.
type RequestConfig struct {
	PolyEnc string `json:"polyEnc,omitempty"`
	RTMode  string `json:"rtMode,omitempty"`
}

// FormatDate renders t as a HAFAS date in the profile's timezone.
func (p *Profile) FormatDate(t time.Time) string {
	return t.In(p.Location()).Format("20060102")
}

// FormatTime renders t as a HAFAS time of day in the profile's timezone.
func (p *Profile) FormatTime(t time.Time) string {
	return t.In(p.Location()).Format("150405")
}

// FormatStation builds a location reference for a station ID.
func FormatStation(id string) map[string]any {
	return map[string]any{"type": "S", "lid": "A=1@L=" + id + "@"}
}

// FormatCoord converts a coordinate to upstream microdegrees.
func FormatCoord(pt domain.GeoPoint) map[string]any {
	return map[string]any{
		"x": int(math.Round(pt.Lon * 1e6)),
		"y": int(math.Round(pt.Lat * 1e6)),
	}
}

// FormatStation builds a location reference for a station ID after the
// profile's StationID hook accepted it.
func (p *Profile) FormatStation(id string) (map[string]any, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: station id is required", ErrValidation)
	}
	if p.StationID != nil {
		var err error
		if id, err = p.StationID(id); err != nil {
			return nil, err
		}
	}
	return FormatStation(id), nil
}

// FormatLocation is the package-level FormatLocation with station IDs
// going through the profile's StationID hook.
func (p *Profile) FormatLocation(l *domain.Location) (map[string]any, error) {
	if l != nil && (l.Kind == domain.KindStop || l.Kind == domain.KindStation) && l.ID != "" {
		return p.FormatStation(l.ID)
	}
	return FormatLocation(l)
}

// FormatLocation builds a location reference for a stop, address or POI.
func FormatLocation(l *domain.Location) (map[string]any, error) {
	if l == nil {
		return nil, fmt.Errorf("%w: location is required", ErrValidation)
	}
	switch l.Kind {
	case domain.KindStop, domain.KindStation:
		if l.ID == "" {
			return nil, fmt.Errorf("%w: stop without id", ErrValidation)
		}
		return FormatStation(l.ID), nil
	case domain.KindPOI:
		if l.ID == "" || l.Name == "" || l.Coord == nil {
			return nil, fmt.Errorf("%w: point of interest needs id, name and coordinate", ErrValidation)
		}
		c := FormatCoord(*l.Coord)
		return map[string]any{
			"type": "P",
			"lid":  fmt.Sprintf("A=4@O=%s@X=%d@Y=%d@L=%s@", l.Name, c["x"], c["y"], l.ID),
		}, nil
	case domain.KindAddress:
		if l.Address == "" || l.Coord == nil {
			return nil, fmt.Errorf("%w: address needs text and coordinate", ErrValidation)
		}
		c := FormatCoord(*l.Coord)
		return map[string]any{
			"type": "A",
			"lid":  fmt.Sprintf("A=2@O=%s@X=%d@Y=%d@", l.Address, c["x"], c["y"]),
		}, nil
	}
	return nil, fmt.Errorf("%w: cannot route to a location of type %q", ErrValidation, l.Kind)
}

// FormatProductsFilter builds the PROD journey filter for a product selection.
func (p *Profile) FormatProductsFilter(filter map[string]bool) (map[string]any, error) {
	mask, err := p.ProductsBitmask(filter)
	if err != nil {
		return nil, err
	}
	return map[string]any{"type": "PROD", "mode": "INC", "value": strconv.Itoa(mask)}, nil
}
