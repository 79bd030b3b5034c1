package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultNominatimURL is the public OpenStreetMap Nominatim endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

const defaultUserAgent = "geofence/1.0"

// nominatimRecord is one entry of a Nominatim jsonv2 search response.
type nominatimRecord struct {
	Lat         flexFloat       `json:"lat"`
	Lon         flexFloat       `json:"lon"`
	Type        flexString      `json:"type"`
	Class       flexString      `json:"class"`
	Category    flexString      `json:"category"`
	Importance  flexFloat       `json:"importance"`
	DisplayName flexString      `json:"display_name"`
	Name        flexString      `json:"name"`
	BoundingBox json.RawMessage `json:"boundingbox"`
}

// NominatimProvider queries a Nominatim-compatible search API and classifies
// matches by their OSM type/class pair.
type NominatimProvider struct {
	baseURL    string
	apiKey     string
	userAgent  string
	limit      int
	httpClient *http.Client
}

// NominatimOption configures a NominatimProvider.
type NominatimOption func(*NominatimProvider)

// WithNominatimBaseURL overrides the API base URL.
func WithNominatimBaseURL(u string) NominatimOption {
	return func(p *NominatimProvider) {
		if u != "" {
			p.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithNominatimAPIKey sets the key sent as the "key" query parameter, for
// hosted Nominatim deployments that require one.
func WithNominatimAPIKey(key string) NominatimOption {
	return func(p *NominatimProvider) {
		p.apiKey = key
	}
}

// WithNominatimUserAgent sets the User-Agent header. The public instance
// rejects anonymous clients.
func WithNominatimUserAgent(ua string) NominatimOption {
	return func(p *NominatimProvider) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

// WithNominatimLimit sets the maximum number of matches requested.
func WithNominatimLimit(n int) NominatimOption {
	return func(p *NominatimProvider) {
		if n > 0 {
			p.limit = n
		}
	}
}

// WithNominatimHTTPClient sets a custom HTTP client.
func WithNominatimHTTPClient(hc *http.Client) NominatimOption {
	return func(p *NominatimProvider) {
		if hc != nil {
			p.httpClient = hc
		}
	}
}

// NewNominatimProvider creates a NominatimProvider with the given options.
func NewNominatimProvider(opts ...NominatimOption) *NominatimProvider {
	p := &NominatimProvider{
		baseURL:    DefaultNominatimURL,
		userAgent:  defaultUserAgent,
		limit:      defaultLimit,
		httpClient: newHTTPClient(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *NominatimProvider) Name() string { return "nominatim" }

// Query implements Provider.
func (p *NominatimProvider) Query(ctx context.Context, text string) ([]RawCandidate, error) {
	params := url.Values{
		"q":      {text},
		"format": {"jsonv2"},
		"limit":  {strconv.Itoa(p.limit)},
	}
	if p.apiKey != "" {
		params.Set("key", p.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim build request")
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")

	body, err := do(p.httpClient, req, p.Name())
	if err != nil {
		return nil, err
	}

	var raw []RawCandidate
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse response")
	}
	return raw, nil
}

// Normalize implements Provider. Records without usable coordinates are dropped.
func (p *NominatimProvider) Normalize(raw []RawCandidate) []Candidate {
	out := make([]Candidate, 0, len(raw))
	for i, r := range raw {
		var rec nominatimRecord
		if err := json.Unmarshal(r, &rec); err != nil {
			zap.L().Debug("nominatim: dropping undecodable record", zap.Int("index", i), zap.Error(err))
			continue
		}
		coord, ok := parseCoordinate(rec.Lat, rec.Lon)
		if !ok {
			zap.L().Debug("nominatim: dropping record with bad coordinates", zap.Int("index", i))
			continue
		}

		// jsonv2 renames "class" to "category".
		g := ClassifyOSM(string(rec.Type), firstNonEmpty(rec.Class, rec.Category))
		out = append(out, Candidate{
			Coordinate:   coord,
			DisplayName:  firstNonEmpty(rec.DisplayName, rec.Name),
			Granularity:  g,
			RadiusMeters: EstimateRadius(parseBoundingBox(rec.BoundingBox), g),
			Importance:   rec.Importance.orZero(),
			Source:       p.Name(),
			Raw:          r,
		})
	}
	return out
}
