package geocoding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel-planner/internal/cache"
	"travel-planner/internal/models"
)

type countingService struct {
	mu         sync.Mutex
	regeoCalls int
	distCalls  int
	geoCalls   int
	regeoErr   error
}

func (s *countingService) Geocode(ctx context.Context, address, city string) ([]Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.geoCalls++
	return []Candidate{{Name: address}}, nil
}

func (s *countingService) SearchPOI(ctx context.Context, keywords, city string) ([]Candidate, error) {
	return nil, nil
}

func (s *countingService) ReverseGeocode(ctx context.Context, loc models.Coordinates) (*models.AdminInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regeoCalls++
	if s.regeoErr != nil {
		return nil, s.regeoErr
	}
	return &models.AdminInfo{CityName: "成都市", CityCode: "028", Adcode: "510104"}, nil
}

func (s *countingService) LookupDistrict(ctx context.Context, keyword string) ([]District, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.distCalls++
	if keyword == "无此地" {
		return nil, nil
	}
	return []District{{Name: "成都市", Level: "city", Adcode: "510100", CityCode: "028"}}, nil
}

func (s *countingService) InputTips(ctx context.Context, keywords, city string) ([]Tip, error) {
	return nil, nil
}

func (s *countingService) SearchAround(ctx context.Context, center models.Coordinates, radiusMeters int, keywords, city string, limit int) ([]Candidate, error) {
	return nil, nil
}

func TestCachedGeocoderReverseGeocode(t *testing.T) {
	inner := &countingService{}
	svc := NewCachedGeocoder(inner, cache.NewMemoryStore(time.Hour), time.Hour)
	ctx := context.Background()

	loc := models.Coordinates{Lat: 30.670001, Lng: 104.060001}
	first, err := svc.ReverseGeocode(ctx, loc)
	require.NoError(t, err)

	// Same point after rounding hits the cache.
	second, err := svc.ReverseGeocode(ctx, models.Coordinates{Lat: 30.670002, Lng: 104.060002})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.regeoCalls)
}

func TestCachedGeocoderDoesNotCacheErrors(t *testing.T) {
	inner := &countingService{regeoErr: errors.New("boom")}
	svc := NewCachedGeocoder(inner, cache.NewMemoryStore(time.Hour), time.Hour)
	ctx := context.Background()

	loc := models.Coordinates{Lat: 30.67, Lng: 104.06}
	_, err := svc.ReverseGeocode(ctx, loc)
	require.Error(t, err)
	_, err = svc.ReverseGeocode(ctx, loc)
	require.Error(t, err)

	assert.Equal(t, 2, inner.regeoCalls)
}

func TestCachedGeocoderLookupDistrict(t *testing.T) {
	inner := &countingService{}
	svc := NewCachedGeocoder(inner, cache.NewMemoryStore(time.Hour), time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		districts, err := svc.LookupDistrict(ctx, "成都")
		require.NoError(t, err)
		require.Len(t, districts, 1)
		assert.Equal(t, "510100", districts[0].Adcode)
	}
	assert.Equal(t, 1, inner.distCalls)

	// Empty answers are not cached.
	for i := 0; i < 2; i++ {
		districts, err := svc.LookupDistrict(ctx, "无此地")
		require.NoError(t, err)
		assert.Empty(t, districts)
	}
	assert.Equal(t, 3, inner.distCalls)
}

func TestCachedGeocoderPassesSearchThrough(t *testing.T) {
	inner := &countingService{}
	svc := NewCachedGeocoder(inner, cache.NewMemoryStore(time.Hour), time.Hour)

	for i := 0; i < 2; i++ {
		_, err := svc.Geocode(context.Background(), "春熙路", "成都")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, inner.geoCalls)
}

func TestCachedGeocoderNilStore(t *testing.T) {
	inner := &countingService{}
	assert.Same(t, Service(inner), NewCachedGeocoder(inner, nil, time.Hour))
}

type ttlRecorder struct {
	cache.NopStore
	mu   sync.Mutex
	ttls []time.Duration
}

func (r *ttlRecorder) Set(_ context.Context, _ string, _ []byte, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ttls = append(r.ttls, ttl)
	return nil
}

func TestCachedGeocoderDefaultsNonPositiveTTL(t *testing.T) {
	for _, ttl := range []time.Duration{0, -time.Minute} {
		store := &ttlRecorder{}
		svc := NewCachedGeocoder(&countingService{}, store, ttl)

		_, err := svc.LookupDistrict(context.Background(), "成都")
		require.NoError(t, err)

		assert.Equal(t, []time.Duration{cache.DefaultTTL}, store.ttls, "ttl=%v", ttl)
	}
}
