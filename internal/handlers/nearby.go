package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"travel-planner/internal/geo"
	"travel-planner/internal/models"
	"travel-planner/internal/places"
)

// NearbyRequest is the body of POST /api/v1/nearby
type NearbyRequest struct {
	Center struct {
		Lng *float64 `json:"lng"`
		Lat *float64 `json:"lat"`
	} `json:"center"`
	RadiusMeters int    `json:"radius_m"`
	Limit        int    `json:"limit"`
	CityHint     string `json:"city_hint"`
	CityAdcode   string `json:"city_adcode"`
	CoordSys     string `json:"coord_sys"`
}

// NearbyResponse groups places around the center by category
type NearbyResponse struct {
	Center       models.Coordinates     `json:"center"`
	RadiusMeters int                    `json:"radius_m"`
	Sections     []places.NearbySection `json:"sections"`
}

// HandleNearby handles POST /api/v1/nearby
func (h *Handler) HandleNearby(c *gin.Context) {
	var req NearbyRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.Center.Lng == nil || req.Center.Lat == nil {
		h.handleValidationError(c, "center{lng,lat} is required")
		return
	}
	center := models.Coordinates{Lat: *req.Center.Lat, Lng: *req.Center.Lng}
	if !geo.ValidCoordinates(center) {
		h.handleValidationError(c, "center is out of range")
		return
	}
	if req.RadiusMeters < 0 || req.RadiusMeters > 50000 {
		h.handleValidationError(c, "radius_m must be between 0 and 50000")
		return
	}
	if req.Limit < 0 || req.Limit > 50 {
		h.handleValidationError(c, "limit must be between 0 and 50")
		return
	}
	center = toProvider(center, req.CoordSys)

	radius := req.RadiusMeters
	if radius == 0 {
		radius = places.DefaultNearbyRadius
	}
	constraint := models.NewCityConstraint(h.cityHint(c, req.CityHint, req.CityAdcode), req.CityAdcode)
	log.Printf("[HTTP] POST /api/v1/nearby: center=%s radius=%d", center.String(), radius)

	sections, err := places.Nearby(c.Request.Context(), h.Geocoder, places.NearbyRequest{
		Center:       center,
		RadiusMeters: radius,
		City:         constraint.QueryCity,
		Limit:        req.Limit,
	})
	if err != nil {
		h.handleUpstreamError(c, err)
		return
	}

	h.writeJSON(c, http.StatusOK, NearbyResponse{Center: center, RadiusMeters: radius, Sections: sections})
}
