package geocode

import "strings"

// Granularity is the spatial precision tier of a geocoding candidate.
// Higher values are more precise.
type Granularity int

// Granularity tiers, coarsest first.
const (
	GranularityUnknown Granularity = iota
	GranularityCountry
	GranularityRegion
	GranularityCity
	GranularityNeighbourhood
	GranularityStreet
	GranularityExact
)

var granularityNames = map[Granularity]string{
	GranularityUnknown:       "unknown",
	GranularityCountry:       "country",
	GranularityRegion:        "region",
	GranularityCity:          "city",
	GranularityNeighbourhood: "neighbourhood",
	GranularityStreet:        "street",
	GranularityExact:         "exact",
}

func (g Granularity) String() string {
	if name, ok := granularityNames[g]; ok {
		return name
	}
	return "unknown"
}

// Rank returns the ordering weight of the tier: exact=6 down to unknown=0.
// Values outside the defined tiers rank as unknown.
func (g Granularity) Rank() int {
	if g < GranularityUnknown || g > GranularityExact {
		return int(GranularityUnknown)
	}
	return int(g)
}

// MarshalText implements encoding.TextMarshaler so tiers serialise by name.
func (g Granularity) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText parses a tier name; unrecognised names decode as unknown.
func (g *Granularity) UnmarshalText(text []byte) error {
	*g = ParseGranularity(string(text))
	return nil
}

// ParseGranularity returns the tier with the given name, or unknown.
func ParseGranularity(name string) Granularity {
	name = strings.ToLower(strings.TrimSpace(name))
	for g, n := range granularityNames {
		if n == name {
			return g
		}
	}
	return GranularityUnknown
}

type tagSet map[string]struct{}

func newTagSet(tags ...string) tagSet {
	s := make(tagSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

func (s tagSet) has(tag string) bool {
	_, ok := s[tag]
	return ok
}

type tierRule struct {
	tier Granularity
	tags tagSet
}

// placeTypeRules is the vocabulary of tag-based providers (single place_type).
var placeTypeRules = []tierRule{
	{GranularityExact, newTagSet("house", "building", "poi")},
	{GranularityStreet, newTagSet("street", "road")},
	{GranularityNeighbourhood, newTagSet("locality", "sublocality")},
	{GranularityCity, newTagSet("city", "village")},
	{GranularityRegion, newTagSet("district", "state")},
	{GranularityCountry, newTagSet("country")},
}

// osmTypeRules is the OSM type vocabulary used by Nominatim-style providers.
var osmTypeRules = []tierRule{
	{GranularityExact, newTagSet("house", "building", "residential", "yes", "commercial", "apartments")},
	{GranularityStreet, newTagSet("street", "road", "pedestrian")},
	{GranularityNeighbourhood, newTagSet("neighbourhood", "suburb", "quarter")},
	{GranularityCity, newTagSet("city", "town", "village", "municipality")},
	{GranularityRegion, newTagSet("state", "region", "province", "county")},
	{GranularityCountry, newTagSet("country")},
}

func classify(rules []tierRule, tag string) (Granularity, bool) {
	for _, r := range rules {
		if r.tags.has(tag) {
			return r.tier, true
		}
	}
	return GranularityUnknown, false
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// ClassifyPlaceType maps a single place_type tag to a tier. Matching is
// case-insensitive and ignores surrounding whitespace. Unrecognised or empty
// tags are unknown.
func ClassifyPlaceType(placeType string) Granularity {
	g, _ := classify(placeTypeRules, normalizeTag(placeType))
	return g
}

// ClassifyOSM maps an OSM type/class pair to a tier. The type vocabulary is
// checked first; class "place" with type "house" is then promoted to exact.
//
// The place/house rule only covers the one response shape seen so far and may
// need generalising to other place/* combinations.
func ClassifyOSM(osmType, osmClass string) Granularity {
	t := normalizeTag(osmType)
	if g, ok := classify(osmTypeRules, t); ok {
		return g
	}
	if normalizeTag(osmClass) == "place" && t == "house" {
		return GranularityExact
	}
	return GranularityUnknown
}
