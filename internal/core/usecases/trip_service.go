package usecases

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/hafas"
)

// TripOptions tunes a trip lookup.
type TripOptions struct {
	Stopovers bool
	Polylines bool
	Remarks   bool
	SubStops  bool
	Entrances bool
}

// DefaultTripOptions returns the options Trip starts from.
func DefaultTripOptions() TripOptions {
	return TripOptions{Stopovers: true, Remarks: true, SubStops: true, Entrances: true}
}

// TripsByNameOptions tunes a trip search by line name or trip number.
type TripsByNameOptions struct {
	When *time.Time
}

// RadarOptions tunes a radar query.
type RadarOptions struct {
	When    *time.Time
	Results int `validate:"gte=1"`
	// Duration is the animated span in seconds, split into Frames frames.
	Duration  int `validate:"gte=1"`
	Frames    int `validate:"gte=0"`
	Products  map[string]bool
	Polylines bool
	SubStops  bool
	Entrances bool
}

// DefaultRadarOptions returns the options Radar starts from.
func DefaultRadarOptions() RadarOptions {
	return RadarOptions{Results: 256, Duration: 30, Frames: 3, Polylines: true, SubStops: true, Entrances: true}
}

// TripService looks up trips and live vehicle movements.
type TripService struct {
	*base
}

// Trip returns a single trip with its stopovers.
func (s *TripService) Trip(ctx context.Context, id, lineName string, opt TripOptions) (*domain.Trip, error) {
	if err := s.require(s.profile.Features.Trip, "trip"); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: trip id is required", hafas.ErrValidation)
	}
	if lineName == "" {
		return nil, fmt.Errorf("%w: line name is required", hafas.ErrValidation)
	}

	pctx, res, err := s.query(ctx, hafas.Options{
		Stopovers: opt.Stopovers,
		Polylines: opt.Polylines,
		Remarks:   opt.Remarks,
		SubStops:  opt.SubStops,
		Entrances: opt.Entrances,
	}, hafas.Request{
		Meth: "JourneyDetails",
		Req:  map[string]any{"jid": id, "name": lineName, "getPolyline": opt.Polylines},
		Cfg:  &hafas.RequestConfig{PolyEnc: "GPA"},
	})
	if err != nil {
		return nil, err
	}

	trip := s.profile.Parsers.Trip(pctx, res.Obj("journey"))
	if trip == nil {
		return nil, fmt.Errorf("trip: %w: no journey", hafas.ErrInvalidResponse)
	}
	return trip, nil
}

// TripsByName finds trips by line name or trip number.
func (s *TripService) TripsByName(ctx context.Context, query string, opt TripsByNameOptions) ([]*domain.Trip, error) {
	if err := s.require(s.profile.Features.TripsByName, "tripsByName"); err != nil {
		return nil, err
	}
	if query == "" {
		return nil, fmt.Errorf("%w: line name or trip number is required", hafas.ErrValidation)
	}

	pctx, res, err := s.query(ctx, hafas.DefaultOptions(), hafas.Request{
		Meth: "JourneyMatch",
		Req: map[string]any{
			"input": query,
			"date":  s.profile.FormatDate(s.when(opt.When)),
		},
		Cfg: &hafas.RequestConfig{PolyEnc: "GPA"},
	})
	if err != nil {
		return nil, err
	}
	return parseAll(pctx, res.Objs("jnyL"), s.profile.Parsers.Trip), nil
}

// Radar returns the vehicles currently inside bbox.
func (s *TripService) Radar(ctx context.Context, bbox domain.BoundingBox, opt RadarOptions) ([]*domain.Movement, error) {
	if err := s.require(s.profile.Features.Radar, "radar"); err != nil {
		return nil, err
	}
	if err := s.check(bbox); err != nil {
		return nil, err
	}
	if bbox.North <= bbox.South {
		return nil, fmt.Errorf("%w: north must be larger than south", hafas.ErrValidation)
	}
	if bbox.East <= bbox.West {
		return nil, fmt.Errorf("%w: east must be larger than west", hafas.ErrValidation)
	}
	if err := s.check(opt); err != nil {
		return nil, err
	}
	filter, err := s.profile.FormatProductsFilter(opt.Products)
	if err != nil {
		return nil, err
	}

	when := s.when(opt.When)
	step := float64(opt.Duration) / math.Max(float64(opt.Frames), 1) * 1000
	pctx, res, err := s.query(ctx, hafas.Options{
		Polylines: opt.Polylines,
		SubStops:  opt.SubStops,
		Entrances: opt.Entrances,
	}, hafas.Request{
		Meth: "JourneyGeoPos",
		Req: map[string]any{
			"maxJny": opt.Results,
			"onlyRT": false,
			"date":   s.profile.FormatDate(when),
			"time":   s.profile.FormatTime(when),
			"rect": map[string]any{
				"llCrd": hafas.FormatCoord(domain.GeoPoint{Lat: bbox.South, Lon: bbox.West}),
				"urCrd": hafas.FormatCoord(domain.GeoPoint{Lat: bbox.North, Lon: bbox.East}),
			},
			"perSize":      opt.Duration * 1000,
			"perStep":      int(math.Round(step)),
			"ageOfReport":  true,
			"jnyFltrL":     []any{filter},
			"trainPosMode": "CALC",
		},
	})
	if err != nil {
		return nil, err
	}
	return parseAll(pctx, res.Objs("jnyL"), s.profile.Parsers.Movement), nil
}
