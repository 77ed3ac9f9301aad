package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"travel-planner/internal/geocoding"
	"travel-planner/internal/models"
	"travel-planner/internal/transit"
)

// Call tracks a call made to a stub
type Call struct {
	Method string
	Query  string
	City   string
}

// StubGeocoder is a deterministic, concurrency-safe geocoding.Service.
// Lookups are keyed by query text and ignore the city unless a
// city-specific entry ("query@city") exists.
type StubGeocoder struct {
	mu sync.Mutex

	Geocodes  map[string][]geocoding.Candidate
	POIs      map[string][]geocoding.Candidate
	Regeo     map[string]models.AdminInfo
	Districts map[string][]geocoding.District
	Tips      map[string][]geocoding.Tip
	Around    map[string][]geocoding.Candidate

	// Errors fails any lookup of the query
	Errors map[string]error
	// Delays holds a lookup of the query back; it honors cancellation
	Delays map[string]time.Duration

	Calls []Call
}

// NewStubGeocoder creates an empty stub
func NewStubGeocoder() *StubGeocoder {
	return &StubGeocoder{
		Geocodes:  make(map[string][]geocoding.Candidate),
		POIs:      make(map[string][]geocoding.Candidate),
		Regeo:     make(map[string]models.AdminInfo),
		Districts: make(map[string][]geocoding.District),
		Tips:      make(map[string][]geocoding.Tip),
		Around:    make(map[string][]geocoding.Candidate),
		Errors:    make(map[string]error),
		Delays:    make(map[string]time.Duration),
	}
}

// Candidate builds a located candidate
func Candidate(name string, lng, lat float64, cityName, adcode string) geocoding.Candidate {
	return geocoding.Candidate{
		Name:             name,
		FormattedAddress: cityName + name,
		CityName:         cityName,
		CityCode:         "c" + adcode,
		Adcode:           adcode,
		Location:         models.Coordinates{Lat: lat, Lng: lng},
		HasLocation:      true,
	}
}

// RegeoKey is the key used by the Regeo map
func RegeoKey(loc models.Coordinates) string {
	return fmt.Sprintf("%.5f,%.5f", loc.Lng, loc.Lat)
}

// CallCount counts calls of method
func (s *StubGeocoder) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (s *StubGeocoder) begin(ctx context.Context, method, query, city string) error {
	s.mu.Lock()
	s.Calls = append(s.Calls, Call{Method: method, Query: query, City: city})
	delay := s.Delays[query]
	err := s.Errors[query]
	s.mu.Unlock()

	if err := sleep(ctx, delay); err != nil {
		return err
	}
	return err
}

func lookup[T any](s *StubGeocoder, m map[string][]T, query, city string) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := m[query+"@"+city]; ok {
		return append([]T(nil), v...)
	}
	return append([]T(nil), m[query]...)
}

func (s *StubGeocoder) Geocode(ctx context.Context, address, city string) ([]geocoding.Candidate, error) {
	if err := s.begin(ctx, "Geocode", address, city); err != nil {
		return nil, err
	}
	return lookup(s, s.Geocodes, address, city), nil
}

func (s *StubGeocoder) SearchPOI(ctx context.Context, keywords, city string) ([]geocoding.Candidate, error) {
	if err := s.begin(ctx, "SearchPOI", keywords, city); err != nil {
		return nil, err
	}
	return lookup(s, s.POIs, keywords, city), nil
}

func (s *StubGeocoder) ReverseGeocode(ctx context.Context, loc models.Coordinates) (*models.AdminInfo, error) {
	key := RegeoKey(loc)
	if err := s.begin(ctx, "ReverseGeocode", key, ""); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.Regeo[key]
	if !ok {
		return nil, &geocoding.ErrGeocodingFailed{Address: key, Reason: "no administrative info"}
	}
	return &info, nil
}

func (s *StubGeocoder) LookupDistrict(ctx context.Context, keyword string) ([]geocoding.District, error) {
	if err := s.begin(ctx, "LookupDistrict", keyword, ""); err != nil {
		return nil, err
	}
	return lookup(s, s.Districts, keyword, ""), nil
}

func (s *StubGeocoder) InputTips(ctx context.Context, keywords, city string) ([]geocoding.Tip, error) {
	if err := s.begin(ctx, "InputTips", keywords, city); err != nil {
		return nil, err
	}
	return lookup(s, s.Tips, keywords, city), nil
}

func (s *StubGeocoder) SearchAround(ctx context.Context, center models.Coordinates, radiusMeters int, keywords, city string, limit int) ([]geocoding.Candidate, error) {
	if err := s.begin(ctx, "SearchAround", keywords, city); err != nil {
		return nil, err
	}
	return lookup(s, s.Around, keywords, city), nil
}

// StubPlanner is a deterministic, concurrency-safe transit.Planner. Plans
// are keyed by "from->to" place names.
type StubPlanner struct {
	mu sync.Mutex

	Plans     map[string]*transit.Plan
	Durations map[string]float64
	Errors    map[string]error
	Delays    map[string]time.Duration

	Requests []transit.PlanRequest
}

// NewStubPlanner creates a planner that finds no plans
func NewStubPlanner() *StubPlanner {
	return &StubPlanner{
		Plans:     make(map[string]*transit.Plan),
		Durations: make(map[string]float64),
		Errors:    make(map[string]error),
		Delays:    make(map[string]time.Duration),
	}
}

// LegKey names a hop
func LegKey(from, to string) string {
	return from + "->" + to
}

func (p *StubPlanner) PlanTransit(ctx context.Context, req transit.PlanRequest) (*transit.Plan, error) {
	key := LegKey(req.From.Name, req.To.Name)

	p.mu.Lock()
	p.Requests = append(p.Requests, req)
	delay := p.Delays[key]
	err := p.Errors[key]
	plan := p.Plans[key]
	p.mu.Unlock()

	if err := sleep(ctx, delay); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, nil
	}
	cp := *plan
	return &cp, nil
}

func (p *StubPlanner) TransitDuration(ctx context.Context, from, to models.ResolvedPlace) (*float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.Durations[LegKey(from.Name, to.Name)]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// RequestFor returns the recorded request for a hop
func (p *StubPlanner) RequestFor(from, to string) (transit.PlanRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.Requests {
		if r.From.Name == from && r.To.Name == to {
			return r, true
		}
	}
	return transit.PlanRequest{}, false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
