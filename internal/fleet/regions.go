package fleet

import "strings"

// Region identifies one Fleet API region. Each region maps to exactly one
// audience (API base URL) and the probe order below is part of the contract.
type Region string

const (
	RegionEU Region = "eu"
	RegionNA Region = "na"
)

const (
	AudienceEU = "https://fleet-api.prd.eu.vn.cloud.tesla.com"
	AudienceNA = "https://fleet-api.prd.na.vn.cloud.tesla.com"
)

// DefaultAudience is used as the token-exchange audience before the true
// region is known, and as the fallback when detection fails.
const DefaultAudience = AudienceEU

// regionOrder defines probe priority for region detection. Not configurable.
var regionOrder = []Region{RegionEU, RegionNA}

var regionAudience = map[Region]string{
	RegionEU: AudienceEU,
	RegionNA: AudienceNA,
}

func (r Region) Audience() string {
	return regionAudience[r]
}

func (r Region) Valid() bool {
	_, ok := regionAudience[r]
	return ok
}

// RegionOrder returns the fixed probe priority.
func RegionOrder() []Region {
	out := make([]Region, len(regionOrder))
	copy(out, regionOrder)
	return out
}

// NormalizeRegions parses a comma-separated region list, lowercasing,
// dropping unknown entries and duplicates, preserving order.
func NormalizeRegions(value string) []Region {
	var out []Region
	seen := map[Region]bool{}
	for _, item := range strings.Split(value, ",") {
		region := Region(strings.ToLower(strings.TrimSpace(item)))
		if region.Valid() && !seen[region] {
			seen[region] = true
			out = append(out, region)
		}
	}
	return out
}
