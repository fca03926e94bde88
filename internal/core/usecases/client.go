package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samirrijal/hafasgo/internal/core/ports"
	"github.com/samirrijal/hafasgo/internal/hafas"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

// Client bundles every query the profile's endpoint offers.
type Client struct {
	*DepartureService
	*JourneyService
	*LocationService
	*TripService
	*RemarkService
	*SubscriptionService

	profile *hafas.Profile
}

// Option configures the services created by NewClient.
type Option func(*base)

// WithClock replaces the clock used for "now" defaults.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithRetryInterval sets the first wait of retried queries.
func WithRetryInterval(d time.Duration) Option {
	return func(b *base) { b.retryInterval = d }
}

// WithLogger sets the logger handed to every parse context.
func WithLogger(l *slog.Logger) Option {
	return func(b *base) { b.logger = l }
}

// NewClient creates a Client for profile p that talks through t.
func NewClient(p *hafas.Profile, t ports.Transport, opts ...Option) *Client {
	b := newBase(p, t, opts...)
	return &Client{
		DepartureService:    &DepartureService{base: b},
		JourneyService:      &JourneyService{base: b},
		LocationService:     &LocationService{base: b},
		TripService:         &TripService{base: b},
		RemarkService:       &RemarkService{base: b},
		SubscriptionService: &SubscriptionService{base: b},
		profile:             p,
	}
}

// Profile returns the profile the client was built for.
func (c *Client) Profile() *hafas.Profile {
	return c.profile
}

// base is what every service shares: the profile, the transport and input validation.
type base struct {
	profile       *hafas.Profile
	transport     ports.Transport
	validate      *validator.Validate
	logger        *slog.Logger
	now           func() time.Time
	retryInterval time.Duration
}

func newBase(p *hafas.Profile, t ports.Transport, opts ...Option) *base {
	b := &base{
		profile:       p,
		transport:     t,
		validate:      validator.New(),
		logger:        slog.Default().With("profile", p.Name),
		now:           time.Now,
		retryInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// check validates opt's struct tags and wraps failures as ErrValidation.
func (b *base) check(opt any) error {
	if err := b.validate.Struct(opt); err != nil {
		return fmt.Errorf("%w: %v", hafas.ErrValidation, err)
	}
	return nil
}

func (b *base) require(supported bool, operation string) error {
	if !supported {
		return fmt.Errorf("%w: %s (%s)", hafas.ErrUnsupported, operation, b.profile.Name)
	}
	return nil
}

// query sends req and resolves the common tables of the response.
func (b *base) query(ctx context.Context, opt hafas.Options, req hafas.Request) (*hafas.Context, *raw.Object, error) {
	res, err := b.transport.Request(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", req.Meth, err)
	}
	pctx := hafas.NewContext(b.profile, opt)
	pctx.Logger = b.logger
	pctx.Now = b.now
	hafas.ResolveCommon(pctx, res)
	return pctx, res, nil
}

// when returns t, or now when t is unset.
func (b *base) when(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return b.now()
	}
	return *t
}

func parseAll[T any](ctx *hafas.Context, items []*raw.Object, parse func(*hafas.Context, *raw.Object) *T) []*T {
	out := make([]*T, 0, len(items))
	for _, it := range items {
		if v := parse(ctx, it); v != nil {
			out = append(out, v)
		}
	}
	return out
}

// unixStamp reads a Unix timestamp the upstream sends as a string or a number.
func unixStamp(o *raw.Object, key string) *int64 {
	if v, err := strconv.ParseInt(o.String(key), 10, 64); err == nil {
		return &v
	}
	if v, ok := o.Int(key); ok {
		ts := int64(v)
		return &ts
	}
	return nil
}
