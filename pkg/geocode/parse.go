package geocode

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// flexFloat accepts a JSON number or a numeric string. Providers are not
// consistent about which they send.
type flexFloat struct {
	value float64
	ok    bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = flexFloat{}
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return nil
		}
		s = strings.TrimSpace(str)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*f = flexFloat{value: v, ok: true}
	return nil
}

// orZero returns the parsed value, or 0 when absent or non-numeric.
func (f flexFloat) orZero() float64 {
	if !f.ok {
		return 0
	}
	return f.value
}

// flexString accepts a JSON string. Any other shape decodes as empty so a
// wrongly typed label or tag never drops the whole record.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*f = ""
		return nil
	}
	*f = flexString(s)
	return nil
}

// parseCoordinate builds a valid coordinate from two parsed fields.
func parseCoordinate(lat, lon flexFloat) (Coordinate, bool) {
	if !lat.ok || !lon.ok {
		return Coordinate{}, false
	}
	c := Coordinate{Latitude: lat.value, Longitude: lon.value}
	if !c.Valid() {
		return Coordinate{}, false
	}
	return c, true
}

// parseBoundingBox reads [latMin, latMax, lonMin, lonMax]. Anything other than
// an array of four numeric edges is treated as no box.
func parseBoundingBox(raw json.RawMessage) *BoundingBox {
	var edges []flexFloat
	if len(raw) == 0 || json.Unmarshal(raw, &edges) != nil || len(edges) != 4 {
		return nil
	}
	for _, e := range edges {
		if !e.ok {
			return nil
		}
	}
	return NewBoundingBox(edges[0].value, edges[1].value, edges[2].value, edges[3].value)
}

// firstNonEmpty returns the first value that is not blank.
func firstNonEmpty(values ...flexString) string {
	for _, v := range values {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}
