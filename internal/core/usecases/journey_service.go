package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/hafas"
)

// maxJourneyPages bounds the pagination loop of JourneysUntil.
const maxJourneyPages = 10

// JourneysOptions tunes a journey search.
type JourneysOptions struct {
	// Departure and Arrival are mutually exclusive; neither means "depart now".
	Departure *time.Time
	Arrival   *time.Time
	// EarlierThan and LaterThan page from a previous result's refs.
	EarlierThan string
	LaterThan   string

	Results      int `validate:"gte=0"`
	Via          *domain.Location
	Transfers    int    `validate:"gte=-1"`
	TransferTime int    `validate:"gte=0"`
	// WalkingSpeed is slow, normal or fast; empty means normal.
	WalkingSpeed string `validate:"omitempty,oneof=slow normal fast"`
	Products     map[string]bool

	// Berlkoenig asks for ride-sharing results; only some profiles offer them.
	Berlkoenig bool

	StartWithWalking bool
	Stopovers        bool
	Tickets          bool
	Polylines        bool
	Remarks          bool
	SubStops         bool
	Entrances        bool
	ScheduledDays    bool
}

// DefaultJourneysOptions returns the options Journeys starts from.
func DefaultJourneysOptions() JourneysOptions {
	return JourneysOptions{
		Transfers:        -1,
		WalkingSpeed:     "normal",
		StartWithWalking: true,
		Remarks:          true,
		SubStops:         true,
		Entrances:        true,
	}
}

func (o JourneysOptions) parse() hafas.Options {
	return hafas.Options{
		Remarks:       o.Remarks,
		Stopovers:     o.Stopovers,
		Polylines:     o.Polylines,
		ScheduledDays: o.ScheduledDays,
		SubStops:      o.SubStops,
		Entrances:     o.Entrances,
	}
}

// RefreshJourneyOptions tunes RefreshJourney.
type RefreshJourneyOptions struct {
	Stopovers bool
	Tickets   bool
	Polylines bool
	Remarks   bool
	SubStops  bool
	Entrances bool
}

// DefaultRefreshJourneyOptions returns the options RefreshJourney starts from.
func DefaultRefreshJourneyOptions() RefreshJourneyOptions {
	return RefreshJourneyOptions{Remarks: true, SubStops: true, Entrances: true}
}

// JourneyService searches and refreshes journeys.
type JourneyService struct {
	*base
}

// Journeys searches journeys from one location to another.
func (s *JourneyService) Journeys(ctx context.Context, from, to *domain.Location, opt JourneysOptions) (*domain.Journeys, error) {
	if err := s.check(opt); err != nil {
		return nil, err
	}
	if opt.EarlierThan != "" && opt.LaterThan != "" {
		return nil, fmt.Errorf("%w: earlierThan and laterThan are mutually exclusive", hafas.ErrValidation)
	}
	if opt.Departure != nil && opt.Arrival != nil {
		return nil, fmt.Errorf("%w: departure and arrival are mutually exclusive", hafas.ErrValidation)
	}
	ref := opt.EarlierThan
	if ref == "" {
		ref = opt.LaterThan
	}
	if ref != "" && (opt.Departure != nil || opt.Arrival != nil) {
		return nil, fmt.Errorf("%w: a page ref excludes departure and arrival", hafas.ErrValidation)
	}
	if err := s.require(opt.Arrival == nil || s.profile.Features.JourneysOutFrwd, "journeys by arrival"); err != nil {
		return nil, err
	}

	fromLoc, err := s.profile.FormatLocation(from)
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	toLoc, err := s.profile.FormatLocation(to)
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	filter, err := s.profile.FormatProductsFilter(opt.Products)
	if err != nil {
		return nil, err
	}

	gisFilters := []any{}
	if s.profile.Features.JourneysWalkingSpeed {
		speed := opt.WalkingSpeed
		if speed == "" {
			speed = "normal"
		}
		gisFilters = append(gisFilters, map[string]any{"meta": "foot_speed_" + speed, "mode": "FB", "type": "M"})
	}

	query := map[string]any{
		"getPasslist": opt.Stopovers,
		"maxChg":      opt.Transfers,
		"minChgTime":  opt.TransferTime,
		"depLocL":     []any{fromLoc},
		"arrLocL":     []any{toLoc},
		"jnyFltrL":    []any{filter},
		"gisFltrL":    gisFilters,
		"getTariff":   opt.Tickets,
		"ushrp":       opt.StartWithWalking,
		"getPT":       true,
		"getIV":       false,
		"getPolyline": opt.Polylines,
	}
	if opt.Via != nil {
		via, err := s.profile.FormatLocation(opt.Via)
		if err != nil {
			return nil, fmt.Errorf("via: %w", err)
		}
		query["viaLocL"] = []any{map[string]any{"loc": via}}
	}

	outFrwd := true
	if ref != "" {
		query["ctxScr"] = ref
	} else {
		when := s.when(opt.Departure)
		if opt.Arrival != nil {
			when, outFrwd = *opt.Arrival, false
		}
		query["outDate"] = s.profile.FormatDate(when)
		query["outTime"] = s.profile.FormatTime(when)
	}
	if opt.Results > 0 {
		query["numF"] = opt.Results
	}
	if s.profile.Features.JourneysOutFrwd {
		query["outFrwd"] = outFrwd
	}
	if s.profile.TransformJourneysQuery != nil {
		if query, err = s.profile.TransformJourneysQuery(hafas.JourneysQuery{Berlkoenig: opt.Berlkoenig}, query); err != nil {
			return nil, err
		}
	}

	pctx, res, err := s.query(ctx, opt.parse(), hafas.Request{
		Meth: "TripSearch",
		Req:  query,
		Cfg:  &hafas.RequestConfig{PolyEnc: "GPA"},
	})
	if err != nil {
		return nil, err
	}

	out := &domain.Journeys{
		EarlierRef: res.String("outCtxScrB"),
		LaterRef:   res.String("outCtxScrF"),
		Journeys:   parseAll(pctx, res.Objs("outConL"), s.profile.Parsers.Journey),
	}
	out.RealtimeDataFrom = unixStamp(res, "planrtTS")
	return out, nil
}

// JourneysUntil pages forward through Journeys until at least n journeys are
// collected, the upstream has no later page, or the page limit is reached.
func (s *JourneyService) JourneysUntil(ctx context.Context, from, to *domain.Location, n int, opt JourneysOptions) (*domain.Journeys, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: n must be positive", hafas.ErrValidation)
	}
	var out *domain.Journeys
	for page := 0; page < maxJourneyPages; page++ {
		res, err := s.Journeys(ctx, from, to, opt)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = res
		} else {
			out.Journeys = append(out.Journeys, res.Journeys...)
			out.LaterRef = res.LaterRef
		}
		if len(out.Journeys) >= n || res.LaterRef == "" || len(res.Journeys) == 0 {
			break
		}
		opt.Departure, opt.Arrival, opt.EarlierThan = nil, nil, ""
		opt.LaterThan = res.LaterRef
	}
	return out, nil
}

// RefreshJourney fetches the current state of a journey by its refresh token.
func (s *JourneyService) RefreshJourney(ctx context.Context, token string, opt RefreshJourneyOptions) (*domain.Journey, error) {
	if err := s.require(s.profile.Features.RefreshJourney, "refreshJourney"); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, fmt.Errorf("%w: refresh token is required", hafas.ErrValidation)
	}

	req := map[string]any{
		"getIST":      true,
		"getPasslist": opt.Stopovers,
		"getPolyline": opt.Polylines,
		"getTariff":   opt.Tickets,
	}
	if s.profile.Features.RefreshJourneyUseOutReconL {
		req["outReconL"] = []any{map[string]any{"ctx": token}}
	} else {
		req["ctxRecon"] = token
	}

	pctx, res, err := s.query(ctx, hafas.Options{
		Remarks:   opt.Remarks,
		Stopovers: opt.Stopovers,
		Polylines: opt.Polylines,
		SubStops:  opt.SubStops,
		Entrances: opt.Entrances,
	}, hafas.Request{Meth: "Reconstruction", Req: req})
	if err != nil {
		return nil, err
	}

	cons := res.Objs("outConL")
	if len(cons) == 0 {
		return nil, fmt.Errorf("refreshJourney: %w: no journey", hafas.ErrInvalidResponse)
	}
	j := s.profile.Parsers.Journey(pctx, cons[0])
	if j == nil {
		return nil, fmt.Errorf("refreshJourney: %w: unparsable journey", hafas.ErrInvalidResponse)
	}
	return j, nil
}
