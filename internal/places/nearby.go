package places

import (
	"context"
	"errors"
	"log"
	"math"
	"sort"
	"strings"

	"travel-planner/internal/geocoding"
	"travel-planner/internal/models"
)

const (
	DefaultNearbyRadius = 3000
	DefaultNearbyLimit  = 20
)

// NearbyCategory is one fixed kind of place offered around a stop
type NearbyCategory struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Keywords string `json:"-"`
}

// NearbyCategories are searched for every nearby request, in this order
var NearbyCategories = []NearbyCategory{
	{Key: "food", Title: "美食", Keywords: "美食 餐厅 小吃"},
	{Key: "coffee", Title: "咖啡/甜品", Keywords: "咖啡 甜品 奶茶"},
	{Key: "hotel", Title: "住宿", Keywords: "酒店 民宿"},
	{Key: "sight", Title: "附近景点", Keywords: "景点 公园 博物馆"},
	{Key: "metro", Title: "交通", Keywords: "地铁站 公交站"},
	{Key: "store", Title: "便利设施", Keywords: "便利店 药店 卫生间"},
}

// NearbyItem is a place found around the center
type NearbyItem struct {
	Name           string   `json:"name"`
	Address        string   `json:"address,omitempty"`
	Type           string   `json:"type,omitempty"`
	Tel            string   `json:"tel,omitempty"`
	Lng            float64  `json:"lng"`
	Lat            float64  `json:"lat"`
	Rating         *float64 `json:"rating,omitempty"`
	DistanceMeters *float64 `json:"distance_m,omitempty"`
}

// NearbySection groups the items of one category
type NearbySection struct {
	NearbyCategory
	Items []NearbyItem `json:"items"`
}

// NearbyRequest describes an around search
type NearbyRequest struct {
	Center       models.Coordinates
	RadiusMeters int
	City         string
	Limit        int
}

// Nearby searches every category around the center concurrently. A
// category that fails comes back empty; only when all of them fail is an
// error returned.
func Nearby(ctx context.Context, svc geocoding.Service, req NearbyRequest) ([]NearbySection, error) {
	if req.RadiusMeters <= 0 {
		req.RadiusMeters = DefaultNearbyRadius
	}
	if req.Limit <= 0 {
		req.Limit = DefaultNearbyLimit
	}

	type outcome struct {
		items []geocoding.Candidate
		err   error
	}
	slots := make([]chan outcome, len(NearbyCategories))
	for i, cat := range NearbyCategories {
		slots[i] = make(chan outcome, 1)
		go func(slot chan<- outcome, keywords string) {
			items, err := svc.SearchAround(ctx, req.Center, req.RadiusMeters, keywords, req.City, req.Limit)
			slot <- outcome{items: items, err: err}
		}(slots[i], cat.Keywords)
	}

	sections := make([]NearbySection, len(NearbyCategories))
	var errs []error
	for i, cat := range NearbyCategories {
		res := <-slots[i]
		sections[i] = NearbySection{NearbyCategory: cat, Items: []NearbyItem{}}
		if res.err != nil {
			log.Printf("[PLACES] Nearby category failed: category=%s err=%v", cat.Key, res.err)
			errs = append(errs, res.err)
			continue
		}
		sections[i].Items = nearbyItems(res.items, req.Limit)
	}

	if len(errs) == len(NearbyCategories) {
		return nil, errors.Join(errs...)
	}
	return sections, nil
}

// nearbyItems sorts by rating (highest first), then distance, and keeps limit
func nearbyItems(candidates []geocoding.Candidate, limit int) []NearbyItem {
	located := make([]geocoding.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.HasLocation && strings.TrimSpace(c.Name) != "" {
			located = append(located, c)
		}
	}

	sort.SliceStable(located, func(a, b int) bool {
		ra, rb := located[a].Rating, located[b].Rating
		if ra != rb {
			return ra > rb
		}
		return distanceOrInf(located[a]) < distanceOrInf(located[b])
	})

	if len(located) > limit {
		located = located[:limit]
	}

	items := make([]NearbyItem, len(located))
	for i, c := range located {
		item := NearbyItem{
			Name:           c.Name,
			Address:        c.Address,
			Type:           c.Type,
			Tel:            c.Tel,
			Lng:            c.Location.Lng,
			Lat:            c.Location.Lat,
			DistanceMeters: c.DistanceMeters,
		}
		if c.Rating > 0 {
			item.Rating = models.Float(c.Rating)
		}
		items[i] = item
	}
	return items
}

func distanceOrInf(c geocoding.Candidate) float64 {
	if c.DistanceMeters == nil {
		return math.Inf(1)
	}
	return *c.DistanceMeters
}
