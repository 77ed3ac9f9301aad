package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"travel-planner/internal/geocoding"
	"travel-planner/internal/models"
	"travel-planner/internal/places"
)

// GeocodeRequest is the body of POST /api/v1/geocode
type GeocodeRequest struct {
	Address    string `json:"address"`
	CityHint   string `json:"city_hint"`
	CityAdcode string `json:"city_adcode"`
}

// HandleGeocode handles POST /api/v1/geocode
func (h *Handler) HandleGeocode(c *gin.Context) {
	var req GeocodeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	address := strings.TrimSpace(req.Address)
	if address == "" {
		h.handleValidationError(c, "address is required")
		return
	}
	log.Printf("[HTTP] POST /api/v1/geocode: address=%s city_hint=%s city_adcode=%s", address, req.CityHint, req.CityAdcode)

	constraint := models.NewCityConstraint(h.cityHint(c, req.CityHint, req.CityAdcode), req.CityAdcode)
	place, err := h.Places.Resolve(c.Request.Context(), constraint, address)
	if err != nil {
		var notFound *places.ErrNotFoundInCity
		if errors.As(err, &notFound) {
			h.handleNotFound(c, notFound.Error())
			return
		}
		h.handleInternalError(c, err)
		return
	}

	h.writeJSON(c, http.StatusOK, place)
}

// CityAdcodeRequest is the body of POST /api/v1/city-adcode
type CityAdcodeRequest struct {
	CityName string `json:"city_name"`
}

// CityAdcodeResponse is the chosen administrative division
type CityAdcodeResponse struct {
	Name     string  `json:"name"`
	Level    string  `json:"level"`
	Adcode   string  `json:"adcode"`
	CityCode *string `json:"citycode"`
}

// HandleCityAdcode handles POST /api/v1/city-adcode
func (h *Handler) HandleCityAdcode(c *gin.Context) {
	var req CityAdcodeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	name := strings.TrimSpace(req.CityName)
	if name == "" {
		h.handleValidationError(c, "city_name is required")
		return
	}

	districts, err := h.Geocoder.LookupDistrict(c.Request.Context(), name)
	if err != nil {
		h.handleUpstreamError(c, err)
		return
	}

	best, ok := places.PickDistrict(districts, name)
	if !ok || best.Adcode == "" {
		h.handleNotFound(c, "Cannot resolve adcode for: "+name)
		return
	}

	log.Printf("[HTTP] POST /api/v1/city-adcode: city=%s adcode=%s level=%s", name, best.Adcode, best.Level)
	resp := CityAdcodeResponse{Name: best.Name, Level: best.Level, Adcode: best.Adcode}
	if best.CityCode != "" {
		resp.CityCode = &best.CityCode
	}
	h.writeJSON(c, http.StatusOK, resp)
}

// InputTipsRequest is the body of POST /api/v1/inputtips
type InputTipsRequest struct {
	Keywords   string `json:"keywords"`
	CityHint   string `json:"city_hint"`
	CityAdcode string `json:"city_adcode"`
}

// InputTipsResponse lists suggestions, best first
type InputTipsResponse struct {
	Tips []geocoding.Tip `json:"tips"`
}

// HandleInputTips handles POST /api/v1/inputtips
func (h *Handler) HandleInputTips(c *gin.Context) {
	var req InputTipsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	keywords := strings.TrimSpace(req.Keywords)
	log.Printf("[HTTP] POST /api/v1/inputtips: keywords=%s", keywords)

	if keywords == "" {
		h.writeJSON(c, http.StatusOK, InputTipsResponse{Tips: []geocoding.Tip{}})
		return
	}

	constraint := models.NewCityConstraint(h.cityHint(c, req.CityHint, req.CityAdcode), req.CityAdcode)
	tips, err := h.Geocoder.InputTips(c.Request.Context(), keywords, constraint.QueryCity)
	if err != nil {
		log.Printf("[ERROR] Failed to fetch tips: keywords=%s err=%v", keywords, err)
		h.writeJSON(c, http.StatusOK, InputTipsResponse{Tips: []geocoding.Tip{}})
		return
	}
	if tips == nil {
		tips = []geocoding.Tip{}
	}

	places.RankTips(keywords, tips)
	log.Printf("[HTTP] POST /api/v1/inputtips: keywords=%s results_count=%d", keywords, len(tips))
	h.writeJSON(c, http.StatusOK, InputTipsResponse{Tips: tips})
}
