package hafashttp

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/samirrijal/hafasgo/internal/hafas"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
	"github.com/samirrijal/hafasgo/internal/pkg/metrics"
	"github.com/samirrijal/hafasgo/internal/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/samirrijal/hafasgo/internal/adapters/hafashttp"

// Transport sends mgate requests for one profile over HTTP.
type Transport struct {
	profile   *hafas.Profile
	endpoint  string
	userAgent string
	client    *http.Client
	tracer    trace.Tracer
	logger    *slog.Logger
}

// Option configures a Transport.
type Option func(*Transport)

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) { t.client = c }
}

// WithEndpoint overrides the profile's endpoint, e.g. to go through a proxy.
func WithEndpoint(endpoint string) Option {
	return func(t *Transport) { t.endpoint = endpoint }
}

// WithLogger sets the logger for failed requests.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) { t.logger = l }
}

// New creates a Transport. userAgent identifies the caller to the operator
// and must not be empty.
func New(p *hafas.Profile, userAgent string, opts ...Option) (*Transport, error) {
	if userAgent == "" {
		return nil, fmt.Errorf("%w: user agent is required", hafas.ErrValidation)
	}
	t := &Transport{
		profile:   p,
		endpoint:  p.Endpoint,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 30 * time.Second},
		tracer:    otel.Tracer(tracerName),
		logger:    slog.Default().With("profile", p.Name),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

type envelope struct {
	Lang    string          `json:"lang,omitempty"`
	SvcReqL []hafas.Request `json:"svcReqL"`
	Client  map[string]any  `json:"client,omitempty"`
	Ext     string          `json:"ext,omitempty"`
	Ver     string          `json:"ver,omitempty"`
	Auth    map[string]any  `json:"auth,omitempty"`
}

// Request sends req wrapped in the profile's envelope and returns the
// result of the single service response.
func (t *Transport) Request(ctx context.Context, req hafas.Request) (*raw.Object, error) {
	ctx, span := t.tracer.Start(ctx, "hafas "+req.Meth, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			telemetry.AttrProfile.String(t.profile.Name),
			telemetry.AttrMethod.String(req.Meth),
		))
	defer span.End()

	start := time.Now()
	res, status, err := t.do(ctx, req)
	metrics.UpstreamDuration.WithLabelValues(t.profile.Name, req.Meth).Observe(time.Since(start).Seconds())
	metrics.UpstreamRequests.WithLabelValues(t.profile.Name, req.Meth, status).Inc()

	if err != nil {
		var he *hafas.Error
		if errors.As(err, &he) {
			span.SetAttributes(telemetry.AttrErrorCode.String(he.HafasCode))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.logger.Error("hafas request failed", "method", req.Meth, "status", status, "error", err)
		return nil, err
	}
	return res, nil
}

// do returns the service result and a status label for metrics.
func (t *Transport) do(ctx context.Context, req hafas.Request) (*raw.Object, string, error) {
	lang := t.profile.Lang
	if lang == "" {
		lang = "en"
	}
	body, err := json.Marshal(envelope{
		Lang:    lang,
		SvcReqL: []hafas.Request{req},
		Client:  t.profile.Client,
		Ext:     t.profile.Ext,
		Ver:     t.profile.Ver,
		Auth:    t.profile.Auth,
	})
	if err != nil {
		return nil, "encode", fmt.Errorf("encode request: %w", err)
	}

	u, err := url.Parse(t.endpoint)
	if err != nil {
		return nil, "encode", fmt.Errorf("endpoint: %w", err)
	}
	q := u.Query()
	for k, v := range t.sign(body) {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, "encode", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", t.userAgent)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, "transport", fmt.Errorf("POST %s: %w", t.endpoint, err)
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		return nil, status, &hafas.Error{
			Code:      hafas.CodeServerError,
			Message:   fmt.Sprintf("HTTP %d from %s", resp.StatusCode, t.endpoint),
			Retryable: resp.StatusCode >= 500,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, status, fmt.Errorf("read body: %w", err)
	}
	envl, err := raw.Decode(data)
	if err != nil {
		return nil, status, fmt.Errorf("%w: %v", hafas.ErrInvalidResponse, err)
	}

	if code := envl.String("err"); code != "" && code != "OK" {
		return nil, code, hafas.NewError(code, envl.String("errTxt"))
	}
	svcRes := envl.Objs("svcResL")
	if len(svcRes) == 0 {
		return nil, status, fmt.Errorf("%w: no svcResL", hafas.ErrInvalidResponse)
	}
	first := svcRes[0]
	if code := first.String("err"); code != "" && code != "OK" {
		return nil, code, hafas.NewError(code, first.String("errTxt"))
	}
	res := first.Obj("res")
	if res == nil {
		return nil, status, fmt.Errorf("%w: empty result", hafas.ErrInvalidResponse)
	}
	return res, status, nil
}

// sign computes the query parameters that authenticate body: a checksum,
// or a mic/mac pair, both salted with the profile's secret.
func (t *Transport) sign(body []byte) map[string]string {
	out := map[string]string{}
	if t.profile.AddChecksum {
		out["checksum"] = md5Hex(append(append([]byte{}, body...), t.profile.Salt...))
	}
	if t.profile.AddMicMac {
		mic := md5Hex(body)
		out["mic"] = mic
		out["mac"] = md5Hex(append([]byte(mic), t.profile.Salt...))
	}
	return out
}

func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}
