package usecases

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/hafas"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

// gzipPrefix marks an embedded journey as base64 of a gzipped JSON document.
const gzipPrefix = "GZip:"

// SubscriptionsUserOptions tunes CreateSubscriptionsUser.
type SubscriptionsUserOptions struct {
	// UserID is generated when empty. User IDs are case-sensitive.
	UserID string
	// PushToken is the channel address; a random one is generated when empty.
	PushToken string `validate:"omitempty,hexadecimal"`
}

// SubscriptionOptions tunes Subscription.
type SubscriptionOptions struct {
	// Journey decodes and parses the journey embedded in the subscription.
	Journey bool
}

// SubscriptionService manages journeys the upstream watches for a user.
type SubscriptionService struct {
	*base
}

// CreateSubscriptionsUser registers a user with one push channel per channel
// ID and returns the user ID. The upstream treats this as idempotent.
func (s *SubscriptionService) CreateSubscriptionsUser(ctx context.Context, channelIDs []string, opt SubscriptionsUserOptions) (string, error) {
	if err := s.require(s.profile.Features.Subscriptions, "createSubscriptionsUser"); err != nil {
		return "", err
	}
	if err := s.check(opt); err != nil {
		return "", err
	}
	if len(channelIDs) == 0 {
		channelIDs = []string{uuid.NewString()}
	}
	for i, id := range channelIDs {
		if id == "" {
			return "", fmt.Errorf("%w: channel id %d is empty", hafas.ErrValidation, i)
		}
	}

	token := opt.PushToken
	if token == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate push token: %w", err)
		}
		token = hex.EncodeToString(buf)
	}
	userID := opt.UserID
	if userID == "" {
		userID = uuid.NewString()
	}

	channels := make([]any, 0, len(channelIDs))
	for _, id := range channelIDs {
		channels = append(channels, map[string]any{
			"type":      "IPHONE",
			"name":      "PUSH_IPHONE",
			"address":   token,
			"channelId": id,
			"options":   []any{map[string]any{"type": "NO_SOUND", "value": "1"}},
		})
	}

	_, res, err := s.query(ctx, hafas.DefaultOptions(), hafas.Request{
		Meth: "SubscrUserCreate",
		Req: map[string]any{
			"userId":   userID,
			"language": "en",
			"channels": channels,
		},
	})
	if err != nil {
		return "", err
	}
	if err := checkResultCode(res); err != nil {
		return "", err
	}
	return res.String("userId"), nil
}

// Subscriptions lists the subscriptions of a user.
func (s *SubscriptionService) Subscriptions(ctx context.Context, userID string) ([]*domain.Subscription, error) {
	if err := s.require(s.profile.Features.Subscriptions, "subscriptions"); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", hafas.ErrValidation)
	}

	_, res, err := s.query(ctx, hafas.DefaultOptions(), hafas.Request{
		Meth: "SubscrSearch",
		Req:  map[string]any{"userId": userID},
	})
	if err != nil {
		return nil, err
	}
	if err := checkResultCode(res); err != nil {
		return nil, err
	}

	subs := []*domain.Subscription{}
	for _, sub := range res.Objs("conSubscrL") {
		id, _ := sub.Int("subscrId")
		subs = append(subs, &domain.Subscription{
			ID:                  id,
			Status:              sub.String("status"),
			Channels:            parseChannels(sub),
			JourneyRefreshToken: sub.String("ctxRecon"),
		})
	}
	return subs, nil
}

// Subscription returns the details of one subscription.
func (s *SubscriptionService) Subscription(ctx context.Context, userID string, id int, opt SubscriptionOptions) (*domain.Subscription, error) {
	if err := s.require(s.profile.Features.Subscriptions, "subscription"); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", hafas.ErrValidation)
	}

	pctx, res, err := s.query(ctx, hafas.DefaultOptions(), hafas.Request{
		Meth: "SubscrDetails",
		Req:  map[string]any{"userId": userID, "subscrId": id},
	})
	if err != nil {
		return nil, err
	}
	if err := checkResultCode(res); err != nil {
		return nil, err
	}

	details := res.Obj("conSubscr")
	sub := &domain.Subscription{
		ID:                  id,
		Status:              details.String("status"),
		Channels:            parseChannels(details),
		JourneyRefreshToken: details.String("ctxRecon"),
	}
	if h, ok := raw.Plain(details.Obj("hysteresis")).(map[string]any); ok {
		sub.Hysteresis = h
	}
	if m, ok := raw.Plain(details.Obj("monitorFlags")).(map[string]any); ok {
		sub.Monitor = m
	}
	if ci, ok := raw.Plain(details.Obj("connectionInfo")).(map[string]any); ok {
		sub.ConnectionInfo = ci
	}
	history := res.Obj("eventHistory")
	sub.RealtimeEvents = s.parseEvents(pctx, history.Objs("rtEvents"))
	sub.HimEvents = s.parseEvents(pctx, history.Objs("himEvents"))

	data := details.String("data")
	if opt.Journey && strings.HasPrefix(data, gzipPrefix) {
		j, err := s.embeddedJourney(pctx, res, data[len(gzipPrefix):])
		if err != nil {
			return nil, fmt.Errorf("subscription %d: %w", id, err)
		}
		sub.Journey = j
	}
	return sub, nil
}

// embeddedJourney decodes a base64 gzipped {"connection": ...} document. Its
// references resolve against its own common tables, or the response's when
// it carries none.
func (s *SubscriptionService) embeddedJourney(pctx *hafas.Context, res *raw.Object, data string) (*domain.Journey, error) {
	zipped, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: journey data: %v", hafas.ErrInvalidResponse, err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(zipped))
	if err != nil {
		return nil, fmt.Errorf("%w: journey data: %v", hafas.ErrInvalidResponse, err)
	}
	defer zr.Close()
	plain, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: journey data: %v", hafas.ErrInvalidResponse, err)
	}
	doc, err := raw.Decode(plain)
	if err != nil {
		return nil, fmt.Errorf("%w: journey data: %v", hafas.ErrInvalidResponse, err)
	}
	conn := doc.Obj("connection")
	if conn == nil {
		return nil, fmt.Errorf("%w: journey data has no connection", hafas.ErrInvalidResponse)
	}
	if !doc.Has("common") {
		doc = doc.With("common", res.Obj("common"))
	}

	jctx := hafas.NewContext(s.profile, pctx.Opt)
	jctx.Logger, jctx.Now = pctx.Logger, pctx.Now
	hafas.ResolveCommon(jctx, doc)
	j := s.profile.Parsers.Journey(jctx, conn)
	if j == nil {
		return nil, fmt.Errorf("%w: unparsable journey", hafas.ErrInvalidResponse)
	}
	return j, nil
}

// parseEvents reads event history entries. Their stop and message
// references were resolved with the rest of the response.
func (s *SubscriptionService) parseEvents(pctx *hafas.Context, events []*raw.Object) []*domain.SubscriptionEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]*domain.SubscriptionEvent, 0, len(events))
	for _, e := range events {
		links := pctx.Links(e)
		ev := &domain.SubscriptionEvent{
			Type:   e.String("type"),
			Stop:   links.Location,
			Remark: links.Warning,
		}
		if ev.Remark == nil {
			ev.Remark = links.Hint
		}
		if date, clock := e.String("date"), e.String("time"); date != "" && clock != "" {
			if t, ok := hafas.ParseDateTime(s.profile, date, clock, nil); ok {
				ev.Time = &t
			}
		}
		if m, ok := raw.Plain(e).(map[string]any); ok {
			ev.Raw = m
		}
		out = append(out, ev)
	}
	return out
}

// checkResultCode turns a failed subscription call into a *hafas.Error
// carrying the upstream result code.
func checkResultCode(res *raw.Object) error {
	code := res.Obj("result").String("resultCode")
	if code == "OK" {
		return nil
	}
	return hafas.NewError(code, "")
}

func parseChannels(sub *raw.Object) []domain.SubscriptionChannel {
	var out []domain.SubscriptionChannel
	for _, ch := range sub.Objs("channels") {
		out = append(out, domain.SubscriptionChannel{ID: ch.String("channelId")})
	}
	return out
}
