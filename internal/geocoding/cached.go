package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"travel-planner/internal/cache"
	"travel-planner/internal/metrics"
	"travel-planner/internal/models"
)

// cachedGeocoder memoizes the lookups whose answers do not change between
// requests. Address and keyword search pass straight through.
type cachedGeocoder struct {
	Service
	store cache.Store
	ttl   time.Duration
}

// NewCachedGeocoder wraps svc so reverse geocoding and district lookups are
// served from store when possible. A ttl <= 0 means cache.DefaultTTL.
func NewCachedGeocoder(svc Service, store cache.Store, ttl time.Duration) Service {
	if store == nil {
		return svc
	}
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &cachedGeocoder{Service: svc, store: store, ttl: ttl}
}

func regeoKey(loc models.Coordinates) string {
	return fmt.Sprintf("regeo:%.5f,%.5f", models.RoundCoordinate(loc.Lng), models.RoundCoordinate(loc.Lat))
}

func districtKey(keyword string) string {
	return "district:" + strings.TrimSpace(keyword)
}

func (c *cachedGeocoder) ReverseGeocode(ctx context.Context, loc models.Coordinates) (*models.AdminInfo, error) {
	key := regeoKey(loc)

	var info models.AdminInfo
	if c.load(ctx, "regeo", key, &info) {
		return &info, nil
	}

	result, err := c.Service.ReverseGeocode(ctx, loc)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, result)
	return result, nil
}

func (c *cachedGeocoder) LookupDistrict(ctx context.Context, keyword string) ([]District, error) {
	key := districtKey(keyword)

	var districts []District
	if c.load(ctx, "district", key, &districts) {
		return districts, nil
	}

	result, err := c.Service.LookupDistrict(ctx, keyword)
	if err != nil {
		return nil, err
	}
	if len(result) > 0 {
		c.save(ctx, key, result)
	}
	return result, nil
}

// load reports a hit only when the entry exists and decodes. Cache errors
// degrade to a miss.
func (c *cachedGeocoder) load(ctx context.Context, kind, key string, out interface{}) bool {
	b, ok, err := c.store.Get(ctx, key)
	if err != nil {
		log.Printf("[CACHE] Get failed: key=%s err=%v", key, err)
	}
	if err != nil || !ok {
		metrics.CacheMissesTotal.WithLabelValues(kind).Inc()
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		log.Printf("[CACHE] Corrupt entry: key=%s err=%v", key, err)
		metrics.CacheMissesTotal.WithLabelValues(kind).Inc()
		return false
	}
	metrics.CacheHitsTotal.WithLabelValues(kind).Inc()
	return true
}

func (c *cachedGeocoder) save(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, b, c.ttl); err != nil {
		log.Printf("[CACHE] Set failed: key=%s err=%v", key, err)
	}
}
