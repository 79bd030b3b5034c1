package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geofence/pkg/geocode"
)

type fakeGeocoder struct {
	mu      sync.Mutex
	answers map[string]*geocode.Candidate
	queries []string
}

func (f *fakeGeocoder) Forward(_ context.Context, text string) *geocode.Candidate {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, text)
	return f.answers[text]
}

func (f *fakeGeocoder) Reverse(ctx context.Context, coord geocode.Coordinate) string {
	if c := f.Forward(ctx, coord.Query()); c != nil {
		return c.DisplayName
	}
	return coord.String()
}

func (f *fakeGeocoder) BatchForward(ctx context.Context, texts []string) []*geocode.Candidate {
	out := make([]*geocode.Candidate, len(texts))
	for i, t := range texts {
		out[i] = f.Forward(ctx, t)
	}
	return out
}

func radius(m float64) *float64 { return &m }

func newTestRouter(checks ...Option) (http.Handler, *fakeGeocoder) {
	geo := &fakeGeocoder{answers: map[string]*geocode.Candidate{
		"Brandenburger Tor": {
			Coordinate:   geocode.Coordinate{Latitude: 52.516275, Longitude: 13.377704},
			DisplayName:  "Brandenburger Tor, Berlin",
			Granularity:  geocode.GranularityExact,
			RadiusMeters: radius(50),
			Source:       "nominatim",
		},
	}}
	return Router(NewServer(geo, checks...), []string{"*"}), geo
}

func do(t *testing.T, h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter()
	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealth_Degraded(t *testing.T) {
	h, _ := newTestRouter(
		WithHealthCheck("cache", func(context.Context) error { return errors.New("down") }),
		WithHealthCheck("other", func(context.Context) error { return nil }),
	)
	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","dependencies":{"cache":"unavailable","other":"ok"}}`, rec.Body.String())
}

func TestGeocode(t *testing.T) {
	h, _ := newTestRouter()

	rec := do(t, h, http.MethodGet, "/v1/geocode?q=Brandenburger+Tor", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[geocodeResponse](t, rec)
	assert.True(t, resp.Found)
	require.NotNil(t, resp.Candidate)
	assert.Equal(t, "Brandenburger Tor, Berlin", resp.Candidate.DisplayName)
	assert.Equal(t, geocode.GranularityExact, resp.Candidate.Granularity)
	assert.Contains(t, rec.Body.String(), `"granularity":"exact"`)
}

func TestGeocode_NotFound(t *testing.T) {
	h, _ := newTestRouter()
	rec := do(t, h, http.MethodGet, "/v1/geocode?q=Atlantis", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"query":"Atlantis","found":false}`, rec.Body.String())
}

func TestGeocode_MissingQuery(t *testing.T) {
	h, geo := newTestRouter()
	rec := do(t, h, http.MethodGet, "/v1/geocode?q=+++", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_query", decode[errorResponse](t, rec).Code)
	assert.Empty(t, geo.queries)
}

func TestReverse_Fallback(t *testing.T) {
	h, _ := newTestRouter()
	rec := do(t, h, http.MethodGet, "/v1/reverse?lat=22.7586&lon=88.3808", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "22.758600, 88.380800", decode[reverseResponse](t, rec).DisplayName)
}

func TestReverse_InvalidInput(t *testing.T) {
	h, _ := newTestRouter()
	for _, target := range []string{
		"/v1/reverse?lat=abc&lon=1",
		"/v1/reverse?lat=1",
		"/v1/reverse?lat=91&lon=0",
		"/v1/reverse?lat=NaN&lon=0",
	} {
		rec := do(t, h, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestDistance(t *testing.T) {
	h, _ := newTestRouter()
	rec := do(t, h, http.MethodGet, "/v1/distance?from=0,0&to=0,1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 111195, decode[distanceResponse](t, rec).DistanceMeters, 1112)

	rec = do(t, h, http.MethodGet, "/v1/distance?from=0,0&to=nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFence(t *testing.T) {
	h, _ := newTestRouter()

	rec := do(t, h, http.MethodGet, "/v1/fence?q=Brandenburger+Tor&lat=52.5163&lon=13.3777&tolerance=25", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var inside struct {
		Found         bool    `json:"found"`
		Inside        bool    `json:"inside"`
		AllowedMeters float64 `json:"allowed_meters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inside))
	assert.True(t, inside.Found)
	assert.True(t, inside.Inside)
	assert.InDelta(t, 75, inside.AllowedMeters, 0.001)

	rec = do(t, h, http.MethodGet, "/v1/fence?q=Brandenburger+Tor&lat=52.52&lon=13.405", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inside))
	assert.False(t, inside.Inside)
}

func TestFence_Errors(t *testing.T) {
	h, _ := newTestRouter()

	rec := do(t, h, http.MethodGet, "/v1/fence?q=Atlantis&lat=0&lon=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"query":"Atlantis","found":false}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/v1/fence?q=x&lat=0&lon=0&tolerance=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/fence?lat=0&lon=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatch(t *testing.T) {
	h, _ := newTestRouter()

	rec := do(t, h, http.MethodPost, "/v1/batch", `{"queries":["Brandenburger Tor","Atlantis"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[batchResponse](t, rec)
	require.Len(t, resp.Results, 2)
	assert.True(t, resp.Results[0].Found)
	assert.False(t, resp.Results[1].Found)
	assert.Equal(t, "Atlantis", resp.Results[1].Query)
}

func TestBatch_Validation(t *testing.T) {
	h, _ := newTestRouter()

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/v1/batch", `{nope`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/v1/batch", `{"queries":[]}`).Code)

	many := make([]string, maxBatchSize+1)
	for i := range many {
		many[i] = "q"
	}
	body, err := json.Marshal(batchRequest{Queries: many})
	require.NoError(t, err)
	rec := do(t, h, http.MethodPost, "/v1/batch", string(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "batch_too_large", decode[errorResponse](t, rec).Code)
}

func TestRequestID(t *testing.T) {
	h, _ := newTestRouter()

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestCORS_Preflight(t *testing.T) {
	h, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodOptions, "/v1/geocode", nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoverer(t *testing.T) {
	s := NewServer(&fakeGeocoder{})
	h := s.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decode[errorResponse](t, rec).Code)
}

func TestParsePair(t *testing.T) {
	c, err := parsePair(" 52.5 , 13.4 ")
	require.NoError(t, err)
	assert.Equal(t, geocode.Coordinate{Latitude: 52.5, Longitude: 13.4}, c)

	_, err = parsePair("52.5")
	assert.Error(t, err)
}
