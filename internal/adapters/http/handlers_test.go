package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	handler "github.com/samirrijal/hafasgo/internal/adapters/http"
	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/core/usecases"
	"github.com/samirrijal/hafasgo/internal/hafas"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

// ---- Mocks ----

type mockTransport struct {
	requestFn func(ctx context.Context, req hafas.Request) (*raw.Object, error)
	calls     []hafas.Request
}

func (m *mockTransport) Request(ctx context.Context, req hafas.Request) (*raw.Object, error) {
	m.calls = append(m.calls, req)
	if m.requestFn != nil {
		return m.requestFn(ctx, req)
	}
	return raw.New(), nil
}

func respond(t *testing.T, fixture string) *mockTransport {
	t.Helper()
	res, err := raw.Decode([]byte(fixture))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return &mockTransport{
		requestFn: func(context.Context, hafas.Request) (*raw.Object, error) { return res, nil },
	}
}

func failWith(err error) *mockTransport {
	return &mockTransport{
		requestFn: func(context.Context, hafas.Request) (*raw.Object, error) { return nil, err },
	}
}

type mockCache struct {
	data   map[string][]byte
	pingFn func(ctx context.Context) error
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *mockCache) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

// ---- Test helpers ----

var berlin, _ = time.LoadLocation("Europe/Berlin")

func testClient(t *testing.T, features hafas.Features, tr *mockTransport) *usecases.Client {
	t.Helper()
	p, err := hafas.NewProfile(hafas.Profile{
		Name:     "test",
		Timezone: "Europe/Berlin",
		Endpoint: "https://hafas.example.org/gate",
		Products: []hafas.Product{
			{ID: "suburban", Mode: "train", Name: "S-Bahn", Bitmasks: []int{1}, Default: true},
			{ID: "bus", Mode: "bus", Name: "Bus", Bitmasks: []int{8}, Default: true},
		},
		Features: features,
	})
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, berlin)
	return usecases.NewClient(p, tr, usecases.WithClock(func() time.Time { return now }))
}

func allFeatures() hafas.Features {
	return hafas.Features{
		Trip: true, TripsByName: true, Radar: true, RefreshJourney: true,
		ReachableFrom: true, Remarks: true, Lines: true, ServerInfo: true,
	}
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true, ErrorHandler: handler.ErrorHandler})
	handler.SetupRoutes(app, deps)
	return app
}

func get(t *testing.T, app *fiber.App, target string) (int, []byte, map[string]string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", target, nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	headers := map[string]string{}
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	return resp.StatusCode, body, headers
}

func decodeAPIError(t *testing.T, body []byte) handler.APIError {
	t.Helper()
	var e handler.APIError
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("error body is not JSON: %v: %s", err, body)
	}
	return e
}

const common = `"common": {
	"prodL": [{"name": "S1", "cls": 1, "prodCtx": {"num": "12345", "lineId": "s1"}}],
	"locL": [
		{"type": "S", "name": "Alexanderplatz", "lid": "A=1@O=Alexanderplatz@L=900100003@", "extId": "900100003", "crd": {"x": 13411267, "y": 52521512}},
		{"type": "S", "name": "Ostkreuz", "lid": "A=1@O=Ostkreuz@L=900120003@", "extId": "900120003", "crd": {"x": 13469354, "y": 52503209}}
	]
}`

const boardFixture = `{
	` + common + `,
	"jnyL": [
		{"jid": "1|2", "date": "20240115", "prodX": 0, "dirTxt": "Ostkreuz",
		 "stbStop": {"locX": 0, "dTimeS": "101000", "dPlatfS": "2"}},
		{"jid": "1|1", "date": "20240115", "prodX": 0, "dirTxt": "Ostkreuz",
		 "stbStop": {"locX": 0, "dTimeS": "100500", "dTimeR": "100700"}}
	]
}`

const journeysFixture = `{
	` + common + `,
	"outCtxScrB": "earlier-1",
	"outCtxScrF": "later-1",
	"outConL": [{
		"date": "20240115",
		"ctxRecon": "recon-1",
		"secL": [{"type": "WALK",
		          "dep": {"locX": 0, "dTimeS": "100000"},
		          "arr": {"locX": 1, "aTimeS": "100500"},
		          "gis": {"dist": 300}}]
	}]
}`

// ---- Board handler tests ----

func TestDepartures_Success(t *testing.T) {
	tr := respond(t, boardFixture)
	app := setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(), tr)})

	status, body, headers := get(t, app, "/v1/stops/900100003/departures?duration=30&bus=false")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var deps []domain.Departure
	if err := json.Unmarshal(body, &deps); err != nil {
		t.Fatal(err)
	}
	if len(deps) != 2 || deps[0].TripID != "1|1" {
		t.Fatalf("departures = %+v", deps)
	}
	if deps[0].Delay == nil || *deps[0].Delay != 120 {
		t.Errorf("delay = %v", deps[0].Delay)
	}
	if headers["Etag"] == "" || headers["Cache-Control"] != "public, max-age=30" {
		t.Errorf("headers = %v", headers)
	}

	req := tr.calls[0]
	if req.Meth != "StationBoard" || req.Req["dur"] != 30 {
		t.Errorf("request = %+v", req)
	}
}

func TestArrivals_Success(t *testing.T) {
	tr := respond(t, `{`+common+`, "jnyL": []}`)
	app := setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(), tr)})

	status, body, _ := get(t, app, "/v1/stops/900100003/arrivals")
	if status != 200 || strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("status = %d, body = %s", status, body)
	}
	if tr.calls[0].Req["type"] != "ARR" {
		t.Errorf("request = %v", tr.calls[0].Req)
	}
}

func TestDepartures_BadParams(t *testing.T) {
	tests := map[string]string{
		"bad time":    "/v1/stops/900100003/departures?when=tomorrow",
		"bad product": "/v1/stops/900100003/departures?bus=maybe",
		"bad window":  "/v1/stops/900100003/departures?duration=5000",
	}
	for name, target := range tests {
		t.Run(name, func(t *testing.T) {
			tr := &mockTransport{}
			app := setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(), tr)})

			status, body, _ := get(t, app, target)
			if status != 400 {
				t.Fatalf("expected 400, got %d", status)
			}
			if e := decodeAPIError(t, body); e.Code != "bad_request" {
				t.Errorf("code = %s", e.Code)
			}
			if len(tr.calls) != 0 {
				t.Errorf("upstream called %d times", len(tr.calls))
			}
		})
	}
}

// ---- Error mapping ----

func TestErrorMapping(t *testing.T) {
	tests := map[string]struct {
		err       error
		status    int
		code      string
		hafasCode string
	}{
		"not found":        {hafas.NewError("H890", ""), 404, "not_found", "H890"},
		"invalid request":  {hafas.NewError("LOCATION", ""), 400, "bad_request", "LOCATION"},
		"access denied":    {hafas.NewError("AUTH", ""), 403, "forbidden", "AUTH"},
		"server error":     {hafas.NewError("H9230", ""), 502, "bad_gateway", "H9230"},
		"invalid response": {hafas.ErrInvalidResponse, 502, "bad_gateway", ""},
		"other":            {errors.New("boom"), 500, "internal_error", ""},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			app := setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(), failWith(tt.err))})

			status, body, _ := get(t, app, "/v1/stops/900100003/departures")
			if status != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, status)
			}
			e := decodeAPIError(t, body)
			if e.Code != tt.code || e.HafasCode != tt.hafasCode || e.Status != tt.status {
				t.Errorf("error = %+v", e)
			}
			if e.RequestID == "" {
				t.Error("missing request id")
			}
		})
	}
}

func TestUnsupportedOperation(t *testing.T) {
	app := setupApp(&handler.Dependencies{Client: testClient(t, hafas.Features{}, &mockTransport{})})

	status, body, _ := get(t, app, "/v1/radar?north=52.52&west=13.37&south=52.50&east=13.41")
	if status != 501 {
		t.Fatalf("expected 501, got %d", status)
	}
	if e := decodeAPIError(t, body); e.Code != "not_implemented" {
		t.Errorf("code = %s", e.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	app := setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(), &mockTransport{})})

	status, body, _ := get(t, app, "/v1/agencies")
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
	if e := decodeAPIError(t, body); e.Code != "not_found" {
		t.Errorf("code = %s", e.Code)
	}
}

// ---- Location handler tests ----

func TestLocations_MissingQuery(t *testing.T) {
	app := setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(), &mockTransport{})})

	if status, _, _ := get(t, app, "/v1/locations"); status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
}

func TestNearby(t *testing.T) {
	tr := respond(t, `{"locL": [
		{"type": "S", "name": "Alexanderplatz", "lid": "A=1@L=900100003@", "extId": "900100003",
		 "crd": {"x": 13411267, "y": 52521512}, "dist": 120}
	]}`)
	app := setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(), tr)})

	status, _, _ := get(t, app, "/v1/locations/nearby")
	if status != 400 {
		t.Fatalf("missing coordinates: expected 400, got %d", status)
	}

	status, body, _ := get(t, app, "/v1/locations/nearby?lat=52.52&lon=13.41&distance=500")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var locs []domain.Location
	if err := json.Unmarshal(body, &locs); err != nil {
		t.Fatal(err)
	}
	if len(locs) != 1 || locs[0].Name != "Alexanderplatz" || locs[0].Distance == nil || *locs[0].Distance != 120 {
		t.Errorf("locations = %+v", locs)
	}
}

// ---- Journey handler tests ----

func TestJourneys_AddressOrigin(t *testing.T) {
	tr := respond(t, journeysFixture)
	app := setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(), tr)})

	status, body, _ := get(t, app, "/v1/journeys?from.lat=52.5215&from.lon=13.4113&from.address=Torstr.+1&to=900120003&results=1")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var res domain.Journeys
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if res.LaterRef != "later-1" || len(res.Journeys) != 1 || res.Journeys[0].RefreshToken != "recon-1" {
		t.Errorf("journeys = %+v", res)
	}

	dep := tr.calls[0].Req["depLocL"].([]any)[0].(map[string]any)
	if dep["type"] != "A" || !strings.HasPrefix(dep["lid"].(string), "A=2@O=Torstr. 1@") {
		t.Errorf("origin = %v", dep)
	}
}

func TestJourneys_MissingLocations(t *testing.T) {
	app := setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(), &mockTransport{})})

	for _, target := range []string{"/v1/journeys?from=900100003", "/v1/journeys?from.lat=52.5&to=900100003"} {
		if status, _, _ := get(t, app, target); status != 400 {
			t.Errorf("%s: expected 400, got %d", target, status)
		}
	}
}

func TestRefreshJourney_UnescapesToken(t *testing.T) {
	tr := respond(t, journeysFixture)
	app := setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(), tr)})

	status, body, _ := get(t, app, "/v1/journeys/T%24A%3D1%40L%3D900100003%40%24202401151000")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if got := tr.calls[0].Req["ctxRecon"]; got != "T$A=1@L=900100003@$202401151000" {
		t.Errorf("ctxRecon = %v", got)
	}
}

// ---- Trip and info handler tests ----

func TestTrip_RequiresLineName(t *testing.T) {
	tr := &mockTransport{}
	app := setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(), tr)})

	if status, _, _ := get(t, app, "/v1/trips/1%7C31041%7C0%7C86%7C15012024"); status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	if len(tr.calls) != 0 {
		t.Errorf("upstream called %d times", len(tr.calls))
	}
}

func TestLines_Pagination(t *testing.T) {
	tr := respond(t, `{"lineL": [
		{"lineId": "de:VBB:S1"}, {"lineId": "de:VBB:S2"}, {"lineId": "de:VBB:S3"}
	]}`)
	app := setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(), tr)})

	status, body, headers := get(t, app, "/v1/lines?query=S&limit=2")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var page struct {
		Data       []domain.Line      `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Data) != 2 || page.Pagination.Total != 3 || page.Data[1].ID != "de:VBB:S2" {
		t.Errorf("page = %+v", page)
	}
	link := headers["Link"]
	if !strings.Contains(link, `offset=2&limit=2>; rel="next"`) || !strings.Contains(link, "query=S&") {
		t.Errorf("link = %s", link)
	}
}

func TestServerInfo(t *testing.T) {
	app := setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(),
		respond(t, `{"fpB": "20231210", "fpE": "20241214", "sD": "20240115", "sT": "100000"}`))})

	status, body, _ := get(t, app, "/v1/server-info")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var info domain.ServerInfo
	if err := json.Unmarshal(body, &info); err != nil {
		t.Fatal(err)
	}
	if info.TimetableStart != "20231210" || info.ServerTime == nil {
		t.Errorf("info = %+v", info)
	}
}

// ---- Middleware tests ----

func TestResponseCache(t *testing.T) {
	tr := respond(t, boardFixture)
	cache := newMockCache()
	app := setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(), tr), Cache: cache, CacheTTL: 30})

	_, first, headers := get(t, app, "/v1/stops/900100003/departures")
	if headers["X-Cache"] != "MISS" {
		t.Errorf("first request: X-Cache = %q", headers["X-Cache"])
	}
	_, second, headers := get(t, app, "/v1/stops/900100003/departures")
	if headers["X-Cache"] != "HIT" {
		t.Errorf("second request: X-Cache = %q", headers["X-Cache"])
	}
	if string(first) != string(second) {
		t.Error("cached body differs")
	}
	if len(tr.calls) != 1 {
		t.Errorf("upstream called %d times", len(tr.calls))
	}

	// Errors are not cached.
	app = setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(), failWith(hafas.NewError("H890", ""))), Cache: cache, CacheTTL: 30})
	get(t, app, "/v1/stops/1/departures")
	if len(cache.data) != 1 {
		t.Errorf("cache entries = %d", len(cache.data))
	}
}

func TestDeprecatedStationRoutes(t *testing.T) {
	app := setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(), respond(t, boardFixture))})

	status, _, headers := get(t, app, "/v1/stations/900100003/departures")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if headers["Deprecation"] != "true" || headers["Sunset"] == "" {
		t.Errorf("headers = %v", headers)
	}
	if headers["Link"] != `</v1/stops/900100003/departures>; rel="successor-version"` {
		t.Errorf("link = %s", headers["Link"])
	}

	_, _, headers = get(t, app, "/v1/stops/900100003/departures")
	if headers["Deprecation"] != "" {
		t.Error("current route marked deprecated")
	}
}

func TestETag_NotModified(t *testing.T) {
	app := setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(), respond(t, boardFixture))})

	_, _, headers := get(t, app, "/v1/stops/900100003/departures")
	etag := headers["Etag"]
	if etag == "" {
		t.Fatal("no ETag")
	}

	req := httptest.NewRequest("GET", "/v1/stops/900100003/departures", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

func TestHealthAndReady(t *testing.T) {
	cache := newMockCache()
	app := setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(), &mockTransport{}), Cache: cache, CacheTTL: 30})

	status, body, _ := get(t, app, "/v1/health")
	if status != 200 || !strings.Contains(string(body), `"profile":"test"`) {
		t.Errorf("health: %d %s", status, body)
	}
	if status, _, _ := get(t, app, "/v1/ready"); status != 200 {
		t.Errorf("ready: expected 200, got %d", status)
	}

	cache.pingFn = func(context.Context) error { return errors.New("connection refused") }
	status, body, _ = get(t, app, "/v1/ready")
	if status != 503 || !strings.Contains(string(body), "connection refused") {
		t.Errorf("ready with broken cache: %d %s", status, body)
	}
}

// ---- GraphQL ----

func TestGraphQL_Departures(t *testing.T) {
	app := setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(), respond(t, boardFixture))})

	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(
		`{"query": "{ departures(stop: \"900100003\") { trip_id delay line { name } stop { name } } }"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Departures []struct {
				TripID string `json:"trip_id"`
				Delay  *int   `json:"delay"`
				Line   struct {
					Name string `json:"name"`
				} `json:"line"`
				Stop struct {
					Name string `json:"name"`
				} `json:"stop"`
			} `json:"departures"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("errors = %v", result.Errors)
	}
	deps := result.Data.Departures
	if len(deps) != 2 || deps[0].TripID != "1|1" || deps[0].Line.Name != "S1" || deps[0].Stop.Name != "Alexanderplatz" {
		t.Errorf("departures = %+v", deps)
	}
	if deps[0].Delay == nil || *deps[0].Delay != 120 {
		t.Errorf("delay = %v", deps[0].Delay)
	}
}

func TestGraphQL_BadRequest(t *testing.T) {
	app := setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(), &mockTransport{})})

	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(`{"query": ""}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

type mockSubscriber struct {
	handler func(ctx context.Context, data []byte) error
}

func (m *mockSubscriber) SubscribeMovements(ctx context.Context, handler func(ctx context.Context, data []byte) error) error {
	m.handler = handler
	return nil
}

func TestHealth_LastMovement(t *testing.T) {
	sub := &mockSubscriber{}
	app := setupApp(&handler.Dependencies{Client: testClient(t, allFeatures(), &mockTransport{}), Movements: sub})

	_, body, _ := get(t, app, "/v1/health")
	if !strings.Contains(string(body), `"last_movement":null`) {
		t.Errorf("before any movement: %s", body)
	}

	if sub.handler == nil {
		t.Fatal("health handler did not subscribe")
	}
	if err := sub.handler(context.Background(), []byte(`{"trip_id":"1|1"}`)); err != nil {
		t.Fatal(err)
	}

	_, body, _ = get(t, app, "/v1/health")
	var health map[string]any
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatal(err)
	}
	if s, _ := health["last_movement"].(string); s == "" {
		t.Errorf("last_movement = %v", health["last_movement"])
	}
}
