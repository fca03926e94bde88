package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/hafas"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

// RemarksOptions tunes a remarks search.
type RemarksOptions struct {
	Results int `validate:"gte=0"`
	// From defaults to now; To is open-ended when nil.
	From      *time.Time
	To        *time.Time
	Products  map[string]bool
	Polylines bool
}

// DefaultRemarksOptions returns the options Remarks starts from.
func DefaultRemarksOptions() RemarksOptions {
	return RemarksOptions{Results: 100}
}

// RemarkService answers the informational queries: disruptions, lines and the server itself.
type RemarkService struct {
	*base
}

// Remarks returns the current disruption messages.
func (s *RemarkService) Remarks(ctx context.Context, opt RemarksOptions) ([]*domain.Remark, error) {
	if err := s.require(s.profile.Features.Remarks, "remarks"); err != nil {
		return nil, err
	}
	if err := s.check(opt); err != nil {
		return nil, err
	}
	if opt.From != nil && opt.To != nil && opt.To.Before(*opt.From) {
		return nil, fmt.Errorf("%w: to must not be before from", hafas.ErrValidation)
	}

	filters := []any{}
	if opt.Products != nil {
		f, err := s.profile.FormatProductsFilter(opt.Products)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	req := map[string]any{
		"himFltrL":    filters,
		"getPolyLine": opt.Polylines,
	}
	if opt.Results > 0 {
		req["maxNum"] = opt.Results
	}
	from := s.when(opt.From)
	req["dateB"] = s.profile.FormatDate(from)
	req["timeB"] = s.profile.FormatTime(from)
	if opt.To != nil {
		req["dateE"] = s.profile.FormatDate(*opt.To)
		req["timeE"] = s.profile.FormatTime(*opt.To)
	}

	pctx, res, err := s.query(ctx, hafas.Options{Remarks: true, Polylines: opt.Polylines}, hafas.Request{
		Meth: "HimSearch",
		Req:  req,
	})
	if err != nil {
		return nil, err
	}
	return parseAll(pctx, res.Objs("msgL"), s.profile.Parsers.Warning), nil
}

// Lines searches lines by name. Each line lists its directions and trips.
func (s *RemarkService) Lines(ctx context.Context, query string) ([]*domain.Line, error) {
	if err := s.require(s.profile.Features.Lines, "lines"); err != nil {
		return nil, err
	}
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", hafas.ErrValidation)
	}

	pctx, res, err := s.query(ctx, hafas.DefaultOptions(), hafas.Request{
		Meth: "LineMatch",
		Req:  map[string]any{"input": query},
	})
	if err != nil {
		return nil, err
	}

	directions, _ := res.Obj("common").Arr("dirL")
	out := []*domain.Line{}
	for _, l := range res.Objs("lineL") {
		line := domain.Line{}
		if linked := pctx.Links(l).Line; linked != nil {
			line = *linked
		}
		line.ID = l.String("lineId")
		line.FahrtNr = ""
		line.Directions = nil
		if refs, ok := l.Arr("dirRefL"); ok {
			line.Directions = make([]string, 0, len(refs))
			for _, ref := range refs {
				var text string
				if i, ok := raw.AsInt(ref); ok && i >= 0 && i < len(directions) {
					if dir, ok := directions[i].(*raw.Object); ok {
						text = dir.String("txt")
					}
				}
				line.Directions = append(line.Directions, text)
			}
		}
		line.Trips = parseAll(pctx, l.Objs("jnyL"), s.profile.Parsers.Trip)
		out = append(out, &line)
	}
	return out, nil
}

// ServerInfo describes the upstream's timetable period and clock.
func (s *RemarkService) ServerInfo(ctx context.Context) (*domain.ServerInfo, error) {
	if err := s.require(s.profile.Features.ServerInfo, "serverInfo"); err != nil {
		return nil, err
	}
	pctx, res, err := s.query(ctx, hafas.DefaultOptions(), hafas.Request{Meth: "ServerInfo", Req: map[string]any{}})
	if err != nil {
		return nil, err
	}

	info := &domain.ServerInfo{
		TimetableStart:        res.String("fpB"),
		TimetableEnd:          res.String("fpE"),
		RealtimeDataUpdatedAt: unixStamp(res, "planrtTS"),
	}
	if date, clock := res.String("sD"), res.String("sT"); date != "" && clock != "" {
		if t, ok := s.profile.Parsers.DateTime(pctx, date, clock, nil); ok {
			info.ServerTime = &t
		}
	}
	return info, nil
}
