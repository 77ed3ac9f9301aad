package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coordinates represents a geographic point. Unless stated otherwise the
// datum is GCJ-02, which is what the map provider returns and accepts.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String formats the point the way the provider expects it: "lng,lat".
func (c Coordinates) String() string {
	return strconv.FormatFloat(c.Lng, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lat, 'f', 6, 64)
}

// ParseLngLat parses a "lng,lat" string.
func ParseLngLat(s string) (Coordinates, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return Coordinates{}, fmt.Errorf("invalid location %q: want \"lng,lat\"", s)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("invalid longitude in %q: %w", s, err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("invalid latitude in %q: %w", s, err)
	}
	return Coordinates{Lat: lat, Lng: lng}, nil
}

// RoundCoordinate rounds to 5 decimal places (~1m), used for cache keys
func RoundCoordinate(v float64) float64 {
	return math.Round(v*100000) / 100000
}

// GeoPoint is a named point
type GeoPoint struct {
	Name string  `json:"name"`
	Lng  float64 `json:"lng"`
	Lat  float64 `json:"lat"`
}

// GetCoords returns the coordinates of the point
func (p GeoPoint) GetCoords() Coordinates {
	return Coordinates{Lat: p.Lat, Lng: p.Lng}
}

// AdminInfo is the administrative metadata attached to a point
type AdminInfo struct {
	CityName string `json:"city,omitempty"`
	CityCode string `json:"citycode,omitempty"`
	Adcode   string `json:"adcode,omitempty"`
}

// ResolvedPlace is a point with the administrative metadata the transit
// planner needs.
type ResolvedPlace struct {
	Name             string
	Lng              float64
	Lat              float64
	FormattedAddress string
	CityName         string
	CityCode         string
	Adcode           string
}

// GetCoords returns the coordinates of the place
func (p ResolvedPlace) GetCoords() Coordinates {
	return Coordinates{Lat: p.Lat, Lng: p.Lng}
}

// Location returns the place as "lng,lat"
func (p ResolvedPlace) Location() string {
	return p.GetCoords().String()
}

// NeedsAdminInfo reports whether city code or district code is missing
func (p ResolvedPlace) NeedsAdminInfo() bool {
	return p.CityCode == "" || p.Adcode == ""
}

// FillAdminInfo copies metadata into fields that are still empty.
func (p *ResolvedPlace) FillAdminInfo(info AdminInfo) {
	if p.CityCode == "" {
		p.CityCode = info.CityCode
	}
	if p.Adcode == "" {
		p.Adcode = info.Adcode
	}
	if p.CityName == "" {
		p.CityName = info.CityName
	}
}

type resolvedPlaceJSON struct {
	Name             string  `json:"name"`
	Lng              float64 `json:"lng"`
	Lat              float64 `json:"lat"`
	Location         string  `json:"location"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	CityName         string  `json:"city,omitempty"`
	CityCode         string  `json:"citycode,omitempty"`
	Adcode           string  `json:"adcode,omitempty"`
}

func (p ResolvedPlace) MarshalJSON() ([]byte, error) {
	return json.Marshal(resolvedPlaceJSON{
		Name:             p.Name,
		Lng:              p.Lng,
		Lat:              p.Lat,
		Location:         p.Location(),
		FormattedAddress: p.FormattedAddress,
		CityName:         p.CityName,
		CityCode:         p.CityCode,
		Adcode:           p.Adcode,
	})
}

func (p *ResolvedPlace) UnmarshalJSON(data []byte) error {
	var raw resolvedPlaceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = ResolvedPlace{
		Name:             raw.Name,
		Lng:              raw.Lng,
		Lat:              raw.Lat,
		FormattedAddress: raw.FormattedAddress,
		CityName:         raw.CityName,
		CityCode:         raw.CityCode,
		Adcode:           raw.Adcode,
	}
	return nil
}

// CityConstraint restricts place resolution to one city.
// AdcodePrefix, when set, takes precedence over name matching.
type CityConstraint struct {
	QueryCity    string
	AdcodePrefix string
	CityName     string
}

// NewCityConstraint builds a constraint from a human city hint and a
// district code. Either may be empty.
func NewCityConstraint(cityHint, cityAdcode string) CityConstraint {
	hint := strings.TrimSpace(cityHint)
	code := strings.TrimSpace(cityAdcode)

	c := CityConstraint{QueryCity: hint, CityName: hint}
	if code != "" {
		c.QueryCity = code
		c.AdcodePrefix = AdcodePrefix(code)
	}
	return c
}

// AdcodePrefix returns the part of a district code shared by every district
// under it: two digits for a province-level code such as 110000 (the
// municipalities 北京, 上海, 天津, 重庆 resolve to these), four otherwise.
func AdcodePrefix(code string) string {
	switch {
	case len(code) == 6 && strings.HasSuffix(code, "0000"):
		return code[:2]
	case len(code) > 4:
		return code[:4]
	default:
		return code
	}
}

// TravelMode is the mode chosen for a leg
type TravelMode string

const (
	ModeTransit TravelMode = "transit"
	ModeWalk    TravelMode = "walk"
)

// WalkFallbackNote is attached to legs estimated without a transit plan
const WalkFallbackNote = "no transit plans; fallback to walk-only"

// NavigationLinks open the leg in the map app or on the web
type NavigationLinks struct {
	AppURI string `json:"app_uri"`
	WebURL string `json:"web_url"`
}

// Leg is one hop of an itinerary
type Leg struct {
	From            ResolvedPlace    `json:"from"`
	To              ResolvedPlace    `json:"to"`
	Mode            TravelMode       `json:"mode"`
	DistanceMeters  *float64         `json:"distance_m,omitempty"`
	DurationSeconds *float64         `json:"duration_s,omitempty"`
	CostYuan        *float64         `json:"cost_yuan,omitempty"`
	Note            string           `json:"note,omitempty"`
	Segments        json.RawMessage  `json:"segments,omitempty"`
	Navigation      *NavigationLinks `json:"navigation,omitempty"`
}

// Failure reason codes reported per place
const (
	ReasonNotFoundInCity   = "NotFoundInCity"
	ReasonDeadlineExceeded = "DeadlineExceeded"
)

// FailedPlace records a destination that could not be resolved
type FailedPlace struct {
	Name    string `json:"name"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// ItineraryResult is the full answer to a planning request.
// Legs[i].To is OrderedPlaces[i]; Legs[0].From is Origin.
type ItineraryResult struct {
	RequestID     string          `json:"request_id"`
	CityAdcode    string          `json:"city_adcode,omitempty"`
	Origin        ResolvedPlace   `json:"origin"`
	OrderedPlaces []ResolvedPlace `json:"ordered_places"`
	Legs          []Leg           `json:"legs"`
	Failed        []FailedPlace   `json:"failed"`
}

// OriginType selects how the origin is given
type OriginType string

const (
	OriginCoord OriginType = "coord"
	OriginText  OriginType = "text"
)

// OriginInput is either explicit coordinates or free text to resolve
type OriginInput struct {
	Type OriginType `json:"type"`
	Lng  *float64   `json:"lng,omitempty"`
	Lat  *float64   `json:"lat,omitempty"`
	Name string     `json:"name,omitempty"`
	Text string     `json:"text,omitempty"`

	// CoordSys is "gcj02" (default) or "wgs84"
	CoordSys string `json:"coord_sys,omitempty"`
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}
