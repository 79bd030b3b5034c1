package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// placesRequest is the JSON body of a places search.
type placesRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type placesResponse struct {
	Results []RawCandidate `json:"results"`
}

// placesRecord is one match from a tag-based places API.
type placesRecord struct {
	Lat              flexFloat  `json:"lat"`
	Lng              flexFloat  `json:"lng"`
	PlaceType        flexString `json:"place_type"`
	Confidence       flexFloat  `json:"confidence"`
	FormattedAddress flexString `json:"formatted_address"`
	Name             flexString `json:"name"`
	Address          flexString `json:"address"`
}

// PlacesProvider queries a bearer-token places API whose matches carry a
// single place_type tag and no bounding box.
type PlacesProvider struct {
	baseURL    string
	token      string
	limit      int
	httpClient *http.Client
}

// PlacesOption configures a PlacesProvider.
type PlacesOption func(*PlacesProvider)

// WithPlacesLimit sets the maximum number of matches requested.
func WithPlacesLimit(n int) PlacesOption {
	return func(p *PlacesProvider) {
		if n > 0 {
			p.limit = n
		}
	}
}

// WithPlacesHTTPClient sets a custom HTTP client.
func WithPlacesHTTPClient(hc *http.Client) PlacesOption {
	return func(p *PlacesProvider) {
		if hc != nil {
			p.httpClient = hc
		}
	}
}

// NewPlacesProvider creates a PlacesProvider for baseURL authenticated with token.
func NewPlacesProvider(baseURL, token string, opts ...PlacesOption) *PlacesProvider {
	p := &PlacesProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		limit:      defaultLimit,
		httpClient: newHTTPClient(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *PlacesProvider) Name() string { return "places" }

// Query implements Provider.
func (p *PlacesProvider) Query(ctx context.Context, text string) ([]RawCandidate, error) {
	if p.baseURL == "" {
		return nil, eris.New("geocode: places base url not configured")
	}

	payload, err := json.Marshal(placesRequest{Query: text, Limit: p.limit})
	if err != nil {
		return nil, eris.Wrap(err, "geocode: places encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/geocode", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "geocode: places build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	body, err := do(p.httpClient, req, p.Name())
	if err != nil {
		return nil, err
	}

	var resp placesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "geocode: places parse response")
	}
	return resp.Results, nil
}

// Normalize implements Provider. Records without usable coordinates are dropped.
func (p *PlacesProvider) Normalize(raw []RawCandidate) []Candidate {
	out := make([]Candidate, 0, len(raw))
	for i, r := range raw {
		var rec placesRecord
		if err := json.Unmarshal(r, &rec); err != nil {
			zap.L().Debug("places: dropping undecodable record", zap.Int("index", i), zap.Error(err))
			continue
		}
		coord, ok := parseCoordinate(rec.Lat, rec.Lng)
		if !ok {
			zap.L().Debug("places: dropping record with bad coordinates", zap.Int("index", i))
			continue
		}

		g := ClassifyPlaceType(string(rec.PlaceType))
		out = append(out, Candidate{
			Coordinate:   coord,
			DisplayName:  firstNonEmpty(rec.FormattedAddress, rec.Name, rec.Address),
			Granularity:  g,
			RadiusMeters: EstimateRadius(nil, g),
			Importance:   rec.Confidence.orZero(),
			Source:       p.Name(),
			Raw:          r,
		})
	}
	return out
}
