package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/hafas"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

// DeparturesOptions tunes a station board query.
type DeparturesOptions struct {
	When *time.Time
	// Direction limits the board to trips stopping at this station afterwards.
	Direction string
	Line      string
	// Duration is the board's time span in minutes.
	Duration int `validate:"gte=0,lte=1440"`
	// Results caps the number of entries; 0 leaves it to the upstream.
	Results  int `validate:"gte=0"`
	Products map[string]bool

	Stopovers              bool
	IncludeRelatedStations bool
	Remarks                bool
	SubStops               bool
	Entrances              bool
	LinesOfStops           bool
}

// DefaultDeparturesOptions returns the options Departures and Arrivals start from.
func DefaultDeparturesOptions() DeparturesOptions {
	return DeparturesOptions{
		Duration:               10,
		IncludeRelatedStations: true,
		Remarks:                true,
		SubStops:               true,
		Entrances:              true,
	}
}

func (o DeparturesOptions) parse() hafas.Options {
	return hafas.Options{
		Remarks:      o.Remarks,
		Stopovers:    o.Stopovers,
		SubStops:     o.SubStops,
		Entrances:    o.Entrances,
		LinesOfStops: o.LinesOfStops,
	}
}

// DepartureService queries station boards.
type DepartureService struct {
	*base
}

// Departures returns the departures at a station, ordered by time.
func (s *DepartureService) Departures(ctx context.Context, station string, opt DeparturesOptions) ([]*domain.Departure, error) {
	return s.board(ctx, "DEP", station, opt, s.profile.Parsers.Departure)
}

// Arrivals returns the arrivals at a station, ordered by time.
func (s *DepartureService) Arrivals(ctx context.Context, station string, opt DeparturesOptions) ([]*domain.Arrival, error) {
	return s.board(ctx, "ARR", station, opt, s.profile.Parsers.Arrival)
}

func (s *DepartureService) board(ctx context.Context, typ, station string, opt DeparturesOptions, parse func(*hafas.Context, *raw.Object) *domain.Departure) ([]*domain.Departure, error) {
	if station == "" {
		return nil, fmt.Errorf("%w: station is required", hafas.ErrValidation)
	}
	if err := s.check(opt); err != nil {
		return nil, err
	}
	if err := s.require(!opt.Stopovers || s.profile.Features.DeparturesGetPasslist, "stopovers on station boards"); err != nil {
		return nil, err
	}
	if err := s.require(opt.IncludeRelatedStations || s.profile.Features.DeparturesStbFltrEquiv, "excluding related stations"); err != nil {
		return nil, err
	}

	filter, err := s.profile.FormatProductsFilter(opt.Products)
	if err != nil {
		return nil, err
	}
	filters := []any{filter}
	if opt.Line != "" {
		filters = append(filters, map[string]any{"type": "LINEID", "mode": "INC", "value": opt.Line})
	}

	stbLoc, err := s.profile.FormatStation(station)
	if err != nil {
		return nil, err
	}

	when := s.when(opt.When)
	req := map[string]any{
		"type":     typ,
		"date":     s.profile.FormatDate(when),
		"time":     s.profile.FormatTime(when),
		"stbLoc":   stbLoc,
		"jnyFltrL": filters,
		"dur":      opt.Duration,
	}
	if opt.Direction != "" {
		if req["dirLoc"], err = s.profile.FormatStation(opt.Direction); err != nil {
			return nil, fmt.Errorf("direction: %w", err)
		}
	}
	if opt.Results > 0 {
		req["maxJny"] = opt.Results
	}
	if s.profile.Features.DeparturesGetPasslist {
		req["getPasslist"] = opt.Stopovers
	}
	if s.profile.Features.DeparturesStbFltrEquiv {
		req["stbFltrEquiv"] = !opt.IncludeRelatedStations
	}

	pctx, res, err := s.query(ctx, opt.parse(), hafas.Request{Meth: "StationBoard", Req: req})
	if err != nil {
		return nil, err
	}
	board := parseAll(pctx, res.Objs("jnyL"), parse)
	hafas.SortBoard(board)
	return board, nil
}
