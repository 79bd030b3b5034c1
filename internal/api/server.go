// Package api exposes geocoding, reverse geocoding, distance and geofence
// checks over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geofence/pkg/geocode"
)

const (
	maxBatchSize     = 100
	maxBodyBytes     = 1 << 20
	defaultTolerance = 100.0
)

// Geocoder is the resolution surface the API serves. Both geocode.Resolver
// and the caching resolver satisfy it.
type Geocoder interface {
	Forward(ctx context.Context, text string) *geocode.Candidate
	Reverse(ctx context.Context, coord geocode.Coordinate) string
	BatchForward(ctx context.Context, texts []string) []*geocode.Candidate
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Server holds the HTTP handlers.
type Server struct {
	geo    Geocoder
	checks map[string]HealthCheck
	logger *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithHealthCheck adds a named dependency check to /health.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

// WithLogger sets the request logger. Defaults to zap.L().
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a Server around geo.
func NewServer(geo Geocoder, opts ...Option) *Server {
	s := &Server{geo: geo, checks: map[string]HealthCheck{}, logger: zap.L()}
	for _, o := range opts {
		o(s)
	}
	return s
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type geocodeResponse struct {
	Query     string             `json:"query"`
	Found     bool               `json:"found"`
	Candidate *geocode.Candidate `json:"candidate,omitempty"`
}

type reverseResponse struct {
	Coordinate  geocode.Coordinate `json:"coordinate"`
	DisplayName string             `json:"display_name"`
}

type distanceResponse struct {
	From           geocode.Coordinate `json:"from"`
	To             geocode.Coordinate `json:"to"`
	DistanceMeters float64            `json:"distance_meters"`
}

type fenceResponse struct {
	Query string `json:"query"`
	Found bool   `json:"found"`
	*geocode.Fence
}

type batchRequest struct {
	Queries []string `json:"queries"`
}

type batchResponse struct {
	Results []geocodeResponse `json:"results"`
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.Warn("api: health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	body := map[string]any{"status": "ok"}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if len(deps) > 0 {
		body["dependencies"] = deps
	}
	writeJSON(w, status, body)
}

// Geocode handles GET /v1/geocode?q=.
func (s *Server) Geocode(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "query parameter q is required")
		return
	}
	c := s.geo.Forward(r.Context(), q)
	writeJSON(w, http.StatusOK, geocodeResponse{Query: q, Found: c != nil, Candidate: c})
}

// Reverse handles GET /v1/reverse?lat=&lon=.
func (s *Server) Reverse(w http.ResponseWriter, r *http.Request) {
	coord, err := parseLatLon(r.URL.Query().Get("lat"), r.URL.Query().Get("lon"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinate", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reverseResponse{
		Coordinate:  coord,
		DisplayName: s.geo.Reverse(r.Context(), coord),
	})
}

// Distance handles GET /v1/distance?from=lat,lon&to=lat,lon.
func (s *Server) Distance(w http.ResponseWriter, r *http.Request) {
	from, err := parsePair(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinate", "from: "+err.Error())
		return
	}
	to, err := parsePair(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinate", "to: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, distanceResponse{
		From:           from,
		To:             to,
		DistanceMeters: geocode.DistanceMeters(from, to),
	})
}

// Fence handles GET /v1/fence?q=&lat=&lon=&tolerance=.
func (s *Server) Fence(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := strings.TrimSpace(params.Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "query parameter q is required")
		return
	}
	observed, err := parseLatLon(params.Get("lat"), params.Get("lon"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinate", err.Error())
		return
	}
	tolerance := defaultTolerance
	if raw := params.Get("tolerance"); raw != "" {
		tolerance, err = strconv.ParseFloat(raw, 64)
		if err != nil || tolerance < 0 {
			writeError(w, http.StatusBadRequest, "invalid_tolerance", "tolerance must be a non-negative number of meters")
			return
		}
	}

	ref := s.geo.Forward(r.Context(), q)
	if ref == nil {
		writeJSON(w, http.StatusOK, fenceResponse{Query: q})
		return
	}
	fence := geocode.Evaluate(*ref, observed, tolerance)
	writeJSON(w, http.StatusOK, fenceResponse{Query: q, Found: true, Fence: &fence})
}

// Batch handles POST /v1/batch with {"queries": [...]}.
func (s *Server) Batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if len(req.Queries) == 0 {
		writeError(w, http.StatusBadRequest, "missing_query", "queries must not be empty")
		return
	}
	if len(req.Queries) > maxBatchSize {
		writeError(w, http.StatusBadRequest, "batch_too_large",
			"at most "+strconv.Itoa(maxBatchSize)+" queries per batch")
		return
	}

	found := s.geo.BatchForward(r.Context(), req.Queries)
	resp := batchResponse{Results: make([]geocodeResponse, len(req.Queries))}
	for i, q := range req.Queries {
		resp.Results[i] = geocodeResponse{Query: q, Found: found[i] != nil, Candidate: found[i]}
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseLatLon(lat, lon string) (geocode.Coordinate, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return geocode.Coordinate{}, eris.New("lat must be a number")
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return geocode.Coordinate{}, eris.New("lon must be a number")
	}
	c := geocode.Coordinate{Latitude: la, Longitude: lo}
	if !c.Valid() {
		return geocode.Coordinate{}, eris.New("coordinate out of range")
	}
	return c, nil
}

func parsePair(s string) (geocode.Coordinate, error) {
	lat, lon, ok := strings.Cut(s, ",")
	if !ok {
		return geocode.Coordinate{}, eris.New("expected lat,lon")
	}
	return parseLatLon(lat, lon)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
