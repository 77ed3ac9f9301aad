package places

import (
	"strings"

	"travel-planner/internal/geocoding"
	"travel-planner/internal/models"
)

// municipalityPrefixes maps province-level cities to their district code prefix
var municipalityPrefixes = map[string]string{
	"北京": "11",
	"上海": "31",
	"天津": "12",
	"重庆": "50",
}

// InCity reports whether a candidate belongs to the constrained city.
//
// With a prefix and a candidate district code the prefix alone decides.
// Otherwise the candidate's city name and address are compared with the
// city hint, and municipalities are accepted by province code. A constraint
// without prefix or hint accepts everything.
func InCity(c geocoding.Candidate, constraint models.CityConstraint) bool {
	if constraint.AdcodePrefix != "" && c.Adcode != "" {
		return strings.HasPrefix(c.Adcode, constraint.AdcodePrefix)
	}

	target := strings.TrimSpace(constraint.CityName)
	if target == "" {
		return true
	}

	city := strings.TrimSpace(c.CityName)
	if city != "" && (strings.Contains(city, target) || strings.Contains(target, city)) {
		return true
	}
	if strings.Contains(strings.TrimSpace(c.FormattedAddress), target) {
		return true
	}

	for name, prefix := range municipalityPrefixes {
		if strings.Contains(target, name) && strings.HasPrefix(c.Adcode, prefix) {
			return true
		}
	}
	return false
}

// PickDistrict chooses the best district for a city name: an exact name
// match, then the first city-level entry, then the first province, then
// whatever came first. ok is false for an empty list.
func PickDistrict(districts []geocoding.District, name string) (geocoding.District, bool) {
	if len(districts) == 0 {
		return geocoding.District{}, false
	}
	name = strings.TrimSpace(name)

	for _, d := range districts {
		if strings.TrimSpace(d.Name) == name {
			return d, true
		}
	}
	for _, level := range []string{"city", "province"} {
		for _, d := range districts {
			if d.Level == level {
				return d, true
			}
		}
	}
	return districts[0], true
}
