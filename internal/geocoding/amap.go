package geocoding

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/url"
	"strconv"
	"strings"

	"travel-planner/internal/amap"
	"travel-planner/internal/models"
)

type amapGeocoder struct {
	client *amap.Client
}

// NewAMapGeocoder creates a provider-backed Service
func NewAMapGeocoder(client *amap.Client) Service {
	return &amapGeocoder{client: client}
}

type geocodeResponse struct {
	Geocodes []struct {
		FormattedAddress amap.FlexString `json:"formatted_address"`
		Province         amap.FlexString `json:"province"`
		City             amap.FlexString `json:"city"`
		CityCode         amap.FlexString `json:"citycode"`
		District         amap.FlexString `json:"district"`
		Adcode           amap.FlexString `json:"adcode"`
		Location         amap.FlexString `json:"location"`
	} `json:"geocodes"`
}

type poi struct {
	ID       amap.FlexString `json:"id"`
	Name     amap.FlexString `json:"name"`
	Type     amap.FlexString `json:"type"`
	Address  amap.FlexString `json:"address"`
	Location amap.FlexString `json:"location"`
	Tel      amap.FlexString `json:"tel"`
	PName    amap.FlexString `json:"pname"`
	CityName amap.FlexString `json:"cityname"`
	AdName   amap.FlexString `json:"adname"`
	Adcode   amap.FlexString `json:"adcode"`
	CityCode amap.FlexString `json:"citycode"`
	Distance amap.FlexFloat  `json:"distance"`
	Weight   amap.FlexFloat  `json:"weight"`
	Rating   amap.FlexFloat  `json:"rating"`
	BizExt   bizExt          `json:"biz_ext"`
}

// bizExt is an object when populated and [] otherwise
type bizExt struct {
	Rating amap.FlexFloat
}

func (b *bizExt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*b = bizExt{}
		return nil
	}
	var raw struct {
		Rating amap.FlexFloat `json:"rating"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Rating = raw.Rating
	return nil
}

type poiResponse struct {
	Pois []poi `json:"pois"`
}

type regeoResponse struct {
	Regeocode struct {
		FormattedAddress amap.FlexString `json:"formatted_address"`
		AddressComponent struct {
			Province amap.FlexString `json:"province"`
			City     amap.FlexCity   `json:"city"`
			CityCode amap.FlexString `json:"citycode"`
			District amap.FlexString `json:"district"`
			Adcode   amap.FlexString `json:"adcode"`
		} `json:"addressComponent"`
	} `json:"regeocode"`
}

type districtResponse struct {
	Districts []struct {
		Name     amap.FlexString `json:"name"`
		Level    amap.FlexString `json:"level"`
		Adcode   amap.FlexString `json:"adcode"`
		CityCode amap.FlexString `json:"citycode"`
		Center   amap.FlexString `json:"center"`
	} `json:"districts"`
}

type tipsResponse struct {
	Tips []struct {
		ID       amap.FlexString `json:"id"`
		Name     amap.FlexString `json:"name"`
		District amap.FlexString `json:"district"`
		Adcode   amap.FlexString `json:"adcode"`
		Location amap.FlexString `json:"location"`
		Address  amap.FlexString `json:"address"`
		TypeCode amap.FlexString `json:"typecode"`
	} `json:"tips"`
}

func (g *amapGeocoder) Geocode(ctx context.Context, address, city string) ([]Candidate, error) {
	params := url.Values{}
	params.Set("address", address)
	if city != "" {
		params.Set("city", city)
	}

	var resp geocodeResponse
	if err := g.client.Get(ctx, amap.PathGeocode, params, &resp); err != nil {
		return nil, &ErrGeocodingFailed{Address: address, Reason: "geocode request failed", Err: err}
	}

	candidates := make([]Candidate, 0, len(resp.Geocodes))
	for _, gc := range resp.Geocodes {
		cityName := string(gc.City)
		if cityName == "" {
			cityName = string(gc.Province)
		}
		c := Candidate{
			Name:             address,
			FormattedAddress: string(gc.FormattedAddress),
			CityName:         cityName,
			CityCode:         string(gc.CityCode),
			Adcode:           string(gc.Adcode),
			District:         string(gc.District),
		}
		if loc, err := models.ParseLngLat(string(gc.Location)); err == nil {
			c.Location = loc
			c.HasLocation = true
		}
		candidates = append(candidates, c)
	}

	log.Printf("[GEOCODING] Geocode: address=%s city=%s results_count=%d", address, city, len(candidates))
	return candidates, nil
}

func (g *amapGeocoder) SearchPOI(ctx context.Context, keywords, city string) ([]Candidate, error) {
	params := url.Values{}
	params.Set("keywords", keywords)
	if city != "" {
		params.Set("city", city)
		params.Set("citylimit", "true")
	}
	params.Set("offset", "10")
	params.Set("page", "1")
	params.Set("extensions", "all")

	var resp poiResponse
	if err := g.client.Get(ctx, amap.PathPlaceText, params, &resp); err != nil {
		return nil, &ErrGeocodingFailed{Address: keywords, Reason: "poi search failed", Err: err}
	}

	candidates := make([]Candidate, 0, len(resp.Pois))
	for _, p := range resp.Pois {
		candidates = append(candidates, p.toCandidate())
	}

	log.Printf("[GEOCODING] POI search: keywords=%s city=%s results_count=%d", keywords, city, len(candidates))
	return candidates, nil
}

func (g *amapGeocoder) ReverseGeocode(ctx context.Context, loc models.Coordinates) (*models.AdminInfo, error) {
	params := url.Values{}
	params.Set("location", loc.String())
	params.Set("extensions", "base")

	var resp regeoResponse
	if err := g.client.Get(ctx, amap.PathRegeo, params, &resp); err != nil {
		return nil, &ErrGeocodingFailed{Address: loc.String(), Reason: "reverse geocode failed", Err: err}
	}

	comp := resp.Regeocode.AddressComponent
	// Municipalities come back with city as an empty array.
	cityName := comp.City.Value
	if comp.City.IsArray || cityName == "" {
		cityName = string(comp.Province)
	}

	info := &models.AdminInfo{
		CityName: cityName,
		CityCode: string(comp.CityCode),
		Adcode:   string(comp.Adcode),
	}
	if info.CityCode == "" && info.Adcode == "" {
		return nil, &ErrGeocodingFailed{Address: loc.String(), Reason: "no administrative info"}
	}

	log.Printf("[GEOCODING] Regeo: location=%s city=%s citycode=%s adcode=%s", loc.String(), info.CityName, info.CityCode, info.Adcode)
	return info, nil
}

func (g *amapGeocoder) LookupDistrict(ctx context.Context, keyword string) ([]District, error) {
	params := url.Values{}
	params.Set("keywords", strings.TrimSpace(keyword))
	params.Set("subdistrict", "0")
	params.Set("extensions", "base")
	params.Set("offset", "10")

	var resp districtResponse
	if err := g.client.Get(ctx, amap.PathDistrict, params, &resp); err != nil {
		return nil, &ErrGeocodingFailed{Address: keyword, Reason: "district lookup failed", Err: err}
	}

	districts := make([]District, 0, len(resp.Districts))
	for _, d := range resp.Districts {
		district := District{
			Name:     string(d.Name),
			Level:    string(d.Level),
			Adcode:   string(d.Adcode),
			CityCode: string(d.CityCode),
		}
		if center, err := models.ParseLngLat(string(d.Center)); err == nil {
			district.Center = center
		}
		districts = append(districts, district)
	}
	return districts, nil
}

func (g *amapGeocoder) InputTips(ctx context.Context, keywords, city string) ([]Tip, error) {
	params := url.Values{}
	params.Set("keywords", keywords)
	params.Set("datatype", "all")
	if city != "" {
		params.Set("city", city)
	}
	params.Set("citylimit", "true")
	params.Set("offset", "20")

	var resp tipsResponse
	if err := g.client.Get(ctx, amap.PathInputTips, params, &resp); err != nil {
		return nil, &ErrGeocodingFailed{Address: keywords, Reason: "input tips failed", Err: err}
	}

	tips := make([]Tip, 0, len(resp.Tips))
	for _, t := range resp.Tips {
		if t.Name == "" {
			continue
		}
		tip := Tip{
			ID:       string(t.ID),
			Name:     string(t.Name),
			Address:  string(t.Address),
			District: string(t.District),
			Adcode:   string(t.Adcode),
			TypeCode: string(t.TypeCode),
		}
		if loc, err := models.ParseLngLat(string(t.Location)); err == nil {
			tip.Location = &loc
		}
		tips = append(tips, tip)
	}
	return tips, nil
}

func (g *amapGeocoder) SearchAround(ctx context.Context, center models.Coordinates, radiusMeters int, keywords, city string, limit int) ([]Candidate, error) {
	// Fetch extra so callers can sort before truncating; the API caps page size at 25.
	fetchN := limit * 2
	if fetchN < limit {
		fetchN = limit
	}
	if fetchN > 25 {
		fetchN = 25
	}
	if fetchN < 1 {
		fetchN = 1
	}

	params := url.Values{}
	params.Set("location", center.String())
	params.Set("radius", strconv.Itoa(radiusMeters))
	params.Set("keywords", keywords)
	params.Set("offset", strconv.Itoa(fetchN))
	params.Set("page", "1")
	params.Set("extensions", "all")
	if city != "" {
		params.Set("city", city)
	}

	var resp poiResponse
	if err := g.client.Get(ctx, amap.PathPlaceAround, params, &resp); err != nil {
		return nil, &ErrGeocodingFailed{Address: keywords, Reason: "around search failed", Err: err}
	}

	candidates := make([]Candidate, 0, len(resp.Pois))
	for _, p := range resp.Pois {
		candidates = append(candidates, p.toCandidate())
	}
	return candidates, nil
}

func (p poi) toCandidate() Candidate {
	rating := p.Rating
	if !rating.Valid {
		rating = p.BizExt.Rating
	}
	c := Candidate{
		Name:             string(p.Name),
		Address:          string(p.Address),
		FormattedAddress: string(p.Address),
		CityName:         string(p.CityName),
		CityCode:         string(p.CityCode),
		Adcode:           string(p.Adcode),
		District:         string(p.AdName),
		Type:             string(p.Type),
		Tel:              string(p.Tel),
		Weight:           p.Weight.Value,
		Rating:           rating.Value,
		DistanceMeters:   p.Distance.Ptr(),
	}
	if loc, err := models.ParseLngLat(string(p.Location)); err == nil {
		c.Location = loc
		c.HasLocation = true
	}
	return c
}
