package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlacesProvider_Query(t *testing.T) {
	var gotAuth, gotMethod, gotPath string
	var gotBody placesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"results": [
			{"lat": 22.7586, "lng": 88.3808, "place_type": "locality", "confidence": 0.8, "name": "Serampore"},
			{"lat": "22.75", "lng": "88.34", "place_type": "House", "confidence": "0.95",
			 "formatted_address": "12 GT Road, Serampore", "name": "Ignored"}
		]}`)
	}))
	defer srv.Close()

	p := NewPlacesProvider(srv.URL, "secret-token", WithPlacesLimit(3))
	raw, err := p.Query(context.Background(), "GT Road Serampore")
	require.NoError(t, err)
	require.Len(t, raw, 2)

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/v1/geocode", gotPath)
	assert.Equal(t, placesRequest{Query: "GT Road Serampore", Limit: 3}, gotBody)

	got := p.Normalize(raw)
	require.Len(t, got, 2)

	assert.Equal(t, "Serampore", got[0].DisplayName)
	assert.Equal(t, GranularityNeighbourhood, got[0].Granularity)
	require.NotNil(t, got[0].RadiusMeters)
	assert.Equal(t, 1000.0, *got[0].RadiusMeters)

	assert.Equal(t, "12 GT Road, Serampore", got[1].DisplayName)
	assert.Equal(t, GranularityExact, got[1].Granularity)
	assert.InDelta(t, 0.95, got[1].Importance, 1e-9)
	require.NotNil(t, got[1].RadiusMeters)
	assert.Equal(t, 50.0, *got[1].RadiusMeters)
	assert.Equal(t, "places", got[1].Source)

	best := PickBest(got)
	require.NotNil(t, best)
	assert.Equal(t, "12 GT Road, Serampore", best.DisplayName)
}

func TestPlacesProvider_NormalizeDropsMalformed(t *testing.T) {
	p := NewPlacesProvider("http://unused", "")
	got := p.Normalize([]RawCandidate{
		RawCandidate(`{"lat": "abc", "lng": 88.3, "place_type": "house"}`),
		RawCandidate(`{"lat": 22.1, "lng": 88.3, "place_type": "country", "address": "India"}`),
		RawCandidate(`"just a string"`),
	})
	require.Len(t, got, 1)
	assert.Equal(t, "India", got[0].DisplayName)
	assert.Equal(t, GranularityCountry, got[0].Granularity)
	assert.Nil(t, got[0].RadiusMeters)
	assert.Zero(t, got[0].Importance)
}

func TestPlacesProvider_NormalizeToleratesMistypedFields(t *testing.T) {
	p := NewPlacesProvider("http://unused", "")
	got := p.Normalize([]RawCandidate{
		RawCandidate(`{"lat": 22.75, "lng": 88.34, "place_type": ["house", "poi"],
			"name": {"en": "GT Road"}, "address": "12 GT Road", "confidence": 0.8}`),
		RawCandidate(`{"lat": "22.76", "lng": "88.35", "place_type": "street",
			"formatted_address": 12, "name": "Station Road"}`),
	})
	require.Len(t, got, 2)

	assert.Equal(t, GranularityUnknown, got[0].Granularity)
	assert.Nil(t, got[0].RadiusMeters)
	assert.Equal(t, "12 GT Road", got[0].DisplayName)
	assert.Equal(t, 0.8, got[0].Importance)

	assert.Equal(t, GranularityStreet, got[1].Granularity)
	assert.Equal(t, "Station Road", got[1].DisplayName)
}

func TestPlacesProvider_EmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"results": []}`)
	}))
	defer srv.Close()

	p := NewPlacesProvider(srv.URL, "token")
	raw, err := p.Query(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Empty(t, p.Normalize(raw))
}

func TestPlacesProvider_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewPlacesProvider(srv.URL, "wrong")
	_, err := p.Query(context.Background(), "anywhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestPlacesProvider_NoBaseURL(t *testing.T) {
	p := NewPlacesProvider("", "token")
	_, err := p.Query(context.Background(), "anywhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
