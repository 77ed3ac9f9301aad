package geocoding

import (
	"context"
	"fmt"

	"travel-planner/internal/models"
)

// Candidate is one match returned by address lookup or keyword search
type Candidate struct {
	Name             string
	Address          string
	FormattedAddress string
	CityName         string
	CityCode         string
	Adcode           string
	District         string
	Type             string
	Tel              string
	Location         models.Coordinates
	HasLocation      bool
	Weight           float64
	Rating           float64
	DistanceMeters   *float64
}

// ToPlace converts the candidate into a resolved place named name
func (c Candidate) ToPlace(name string) models.ResolvedPlace {
	return models.ResolvedPlace{
		Name:             name,
		Lng:              c.Location.Lng,
		Lat:              c.Location.Lat,
		FormattedAddress: c.FormattedAddress,
		CityName:         c.CityName,
		CityCode:         c.CityCode,
		Adcode:           c.Adcode,
	}
}

// District is an administrative division
type District struct {
	Name     string             `json:"name"`
	Level    string             `json:"level"`
	Adcode   string             `json:"adcode"`
	CityCode string             `json:"citycode,omitempty"`
	Center   models.Coordinates `json:"center"`
}

// Tip is an autocomplete suggestion
type Tip struct {
	ID       string              `json:"id,omitempty"`
	Name     string              `json:"name"`
	Address  string              `json:"address,omitempty"`
	District string              `json:"district,omitempty"`
	Adcode   string              `json:"adcode,omitempty"`
	TypeCode string              `json:"typecode,omitempty"`
	Location *models.Coordinates `json:"location,omitempty"`
}

// Geocoder turns text into candidate points
type Geocoder interface {
	// Geocode looks up a structured address; city may be empty for an
	// unscoped lookup.
	Geocode(ctx context.Context, address, city string) ([]Candidate, error)
	// SearchPOI runs a keyword search limited to city
	SearchPOI(ctx context.Context, keywords, city string) ([]Candidate, error)
}

// ReverseGeocoder looks up administrative metadata for a point
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, loc models.Coordinates) (*models.AdminInfo, error)
}

// Service is everything the HTTP API needs from the provider
type Service interface {
	Geocoder
	ReverseGeocoder
	LookupDistrict(ctx context.Context, keyword string) ([]District, error)
	InputTips(ctx context.Context, keywords, city string) ([]Tip, error)
	SearchAround(ctx context.Context, center models.Coordinates, radiusMeters int, keywords, city string, limit int) ([]Candidate, error)
}

// ErrGeocodingFailed is returned when the provider cannot answer a lookup
type ErrGeocodingFailed struct {
	Address string
	Reason  string
	Err     error
}

func (e *ErrGeocodingFailed) Error() string {
	return fmt.Sprintf("geocoding failed for address: %s - %s", e.Address, e.Reason)
}

func (e *ErrGeocodingFailed) Unwrap() error {
	return e.Err
}
