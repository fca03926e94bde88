package usecases

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/hafas"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
	"github.com/samirrijal/hafasgo/internal/pkg/geospatial"
	"github.com/samirrijal/hafasgo/internal/pkg/metrics"
)

// reachableFromAttempts is the total number of LocGeoReach requests per query.
const reachableFromAttempts = 4

// errRetry marks a response that is worth asking for again.
var errRetry = errors.New("upstream asked for a retry")

// LocationsOptions tunes a location search.
type LocationsOptions struct {
	Fuzzy        bool
	Results      int `validate:"gte=1,lte=1000"`
	Stops        bool
	Addresses    bool
	POI          bool
	SubStops     bool
	Entrances    bool
	LinesOfStops bool
}

// DefaultLocationsOptions returns the options Locations starts from.
func DefaultLocationsOptions() LocationsOptions {
	return LocationsOptions{
		Fuzzy: true, Results: 5,
		Stops: true, Addresses: true, POI: true,
		SubStops: true, Entrances: true,
	}
}

// StopOptions tunes a stop lookup.
type StopOptions struct {
	LinesOfStops bool
	SubStops     bool
	Entrances    bool
	Remarks      bool
}

// DefaultStopOptions returns the options Stop starts from.
func DefaultStopOptions() StopOptions {
	return StopOptions{SubStops: true, Entrances: true, Remarks: true}
}

// NearbyOptions tunes a nearby search.
type NearbyOptions struct {
	Results int `validate:"gte=1,lte=1000"`
	// Distance is the search radius in meters; 0 leaves it to the upstream.
	Distance     int `validate:"gte=0"`
	POI          bool
	Stops        bool
	SubStops     bool
	Entrances    bool
	LinesOfStops bool
}

// DefaultNearbyOptions returns the options Nearby starts from.
func DefaultNearbyOptions() NearbyOptions {
	return NearbyOptions{Results: 8, Stops: true, SubStops: true, Entrances: true}
}

// ReachableFromOptions tunes a reachability query.
type ReachableFromOptions struct {
	When         *time.Time
	MaxTransfers int `validate:"gte=0"`
	// MaxDuration is in minutes; 0 means unlimited.
	MaxDuration int `validate:"gte=0"`
	Products    map[string]bool
	SubStops    bool
	Entrances   bool
	Polylines   bool
}

// DefaultReachableFromOptions returns the options ReachableFrom starts from.
func DefaultReachableFromOptions() ReachableFromOptions {
	return ReachableFromOptions{MaxTransfers: 5, MaxDuration: 20, SubStops: true, Entrances: true}
}

// LocationService looks up stops, addresses and points of interest.
type LocationService struct {
	*base
}

// Locations searches locations by name.
func (s *LocationService) Locations(ctx context.Context, query string, opt LocationsOptions) ([]*domain.Location, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", hafas.ErrValidation)
	}
	if err := s.check(opt); err != nil {
		return nil, err
	}

	typ := "ALL"
	if !(opt.Stops && opt.Addresses && opt.POI) {
		typ = ""
		if opt.Stops {
			typ += "S"
		}
		if opt.Addresses {
			typ += "A"
		}
		if opt.POI {
			typ += "P"
		}
	}
	name := query
	if opt.Fuzzy {
		name += "?"
	}

	pctx, res, err := s.query(ctx, hafas.Options{
		SubStops:     opt.SubStops,
		Entrances:    opt.Entrances,
		LinesOfStops: opt.LinesOfStops,
	}, hafas.Request{
		Meth: "LocMatch",
		Req: map[string]any{
			"input": map[string]any{
				"loc":    map[string]any{"type": typ, "name": name},
				"maxLoc": opt.Results,
				"field":  "S",
			},
		},
		Cfg: &hafas.RequestConfig{PolyEnc: "GPA"},
	})
	if err != nil {
		return nil, err
	}
	return parseAll(pctx, res.Obj("match").Objs("locL"), s.profile.Parsers.Location), nil
}

// Stop returns a single stop or station by ID.
func (s *LocationService) Stop(ctx context.Context, id string, opt StopOptions) (*domain.Location, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: stop id is required", hafas.ErrValidation)
	}

	ref, err := s.profile.FormatStation(id)
	if err != nil {
		return nil, err
	}

	pctx, res, err := s.query(ctx, hafas.Options{
		Remarks:      opt.Remarks,
		SubStops:     opt.SubStops,
		Entrances:    opt.Entrances,
		LinesOfStops: opt.LinesOfStops,
	}, hafas.Request{
		Meth: "LocDetails",
		Req:  map[string]any{"locL": []any{ref}},
	})
	if err != nil {
		return nil, err
	}

	locs := res.Objs("locL")
	if len(locs) == 0 {
		return nil, hafas.NotFound("response has no stop " + id)
	}
	loc := s.profile.Parsers.Location(pctx, locs[0])
	if loc == nil {
		return nil, hafas.NotFound("response has no stop " + id)
	}
	return loc, nil
}

// Nearby returns stops and points of interest around pt, closest first.
func (s *LocationService) Nearby(ctx context.Context, pt domain.GeoPoint, opt NearbyOptions) ([]*domain.Location, error) {
	if err := s.check(opt); err != nil {
		return nil, err
	}
	if err := s.check(pt); err != nil {
		return nil, err
	}

	maxDist := -1
	if opt.Distance > 0 {
		maxDist = opt.Distance
	}
	pctx, res, err := s.query(ctx, hafas.Options{
		SubStops:     opt.SubStops,
		Entrances:    opt.Entrances,
		LinesOfStops: opt.LinesOfStops,
	}, hafas.Request{
		Meth: "LocGeoPos",
		Req: map[string]any{
			"ring": map[string]any{
				"cCrd":    hafas.FormatCoord(pt),
				"maxDist": maxDist,
				"minDist": 0,
			},
			"getPOIs":  opt.POI,
			"getStops": opt.Stops,
			"maxLoc":   opt.Results,
		},
		Cfg: &hafas.RequestConfig{PolyEnc: "GPA"},
	})
	if err != nil {
		return nil, err
	}

	locs := parseAll(pctx, res.Objs("locL"), s.profile.Parsers.Nearby)
	for _, l := range locs {
		if l.Distance == nil && l.Coord != nil {
			d := geospatial.Meters(pt, *l.Coord)
			l.Distance = &d
		}
	}
	// Without a distance a result goes last.
	sort.SliceStable(locs, func(i, j int) bool {
		a, b := locs[i].Distance, locs[j].Distance
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return *a < *b
	})
	if len(locs) > opt.Results {
		locs = locs[:opt.Results]
	}
	return locs, nil
}

// ReachableFrom groups the stations reachable from an address by travel time.
// The upstream sometimes answers without results on the first tries, so the
// query is retried with exponential backoff.
func (s *LocationService) ReachableFrom(ctx context.Context, address *domain.Location, opt ReachableFromOptions) ([]domain.ReachableGroup, error) {
	if err := s.require(s.profile.Features.ReachableFrom, "reachableFrom"); err != nil {
		return nil, err
	}
	if err := s.check(opt); err != nil {
		return nil, err
	}
	if address == nil || address.Kind != domain.KindAddress {
		return nil, fmt.Errorf("%w: reachableFrom needs an address", hafas.ErrValidation)
	}
	loc, err := s.profile.FormatLocation(address)
	if err != nil {
		return nil, err
	}
	filter, err := s.profile.FormatProductsFilter(opt.Products)
	if err != nil {
		return nil, err
	}

	maxDur := -1
	if opt.MaxDuration > 0 {
		maxDur = opt.MaxDuration
	}
	when := s.when(opt.When)
	req := hafas.Request{
		Meth: "LocGeoReach",
		Req: map[string]any{
			"loc":      loc,
			"maxDur":   maxDur,
			"maxChg":   opt.MaxTransfers,
			"date":     s.profile.FormatDate(when),
			"time":     s.profile.FormatTime(when),
			"period":   120,
			"jnyFltrL": []any{filter},
		},
	}
	popt := hafas.Options{SubStops: opt.SubStops, Entrances: opt.Entrances, Polylines: opt.Polylines}

	var groups []domain.ReachableGroup
	attempt := 0
	fetch := func() error {
		attempt++
		pctx, res, err := s.query(ctx, popt, req)
		if err != nil {
			if hafas.IsRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if _, ok := res.Arr("posL"); !ok {
			return errRetry
		}
		groups = groupByDuration(pctx, res.Objs("posL"))
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	notify := func(err error, wait time.Duration) {
		metrics.UpstreamRetries.WithLabelValues("reachableFrom").Inc()
		s.logger.Warn("retrying reachableFrom", "attempt", attempt, "wait", wait, "error", err)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, reachableFromAttempts-1), ctx)
	if err := backoff.RetryNotify(fetch, policy, notify); err != nil {
		if errors.Is(err, errRetry) {
			return nil, fmt.Errorf("reachableFrom: %w: no positions", hafas.ErrInvalidResponse)
		}
		return nil, err
	}
	return groups, nil
}

func groupByDuration(ctx *hafas.Context, positions []*raw.Object) []domain.ReachableGroup {
	sorted := make([]*raw.Object, len(positions))
	copy(sorted, positions)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, _ := sorted[i].Int("dur")
		b, _ := sorted[j].Int("dur")
		return a < b
	})

	groups := []domain.ReachableGroup{}
	for _, pos := range sorted {
		loc := ctx.Links(pos).Location
		if loc == nil {
			continue
		}
		dur, _ := pos.Int("dur")
		if n := len(groups); n > 0 && groups[n-1].Duration == dur {
			groups[n-1].Stations = append(groups[n-1].Stations, loc)
			continue
		}
		groups = append(groups, domain.ReachableGroup{Duration: dur, Stations: []*domain.Location{loc}})
	}
	return groups
}
