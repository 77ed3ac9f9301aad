package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"travel-planner/internal/geo"
	"travel-planner/internal/models"
)

// TransitRequest is the body of POST /api/v1/transit. Points are "lng,lat".
type TransitRequest struct {
	Origin          string `json:"origin"`
	Destination     string `json:"destination"`
	OriginName      string `json:"origin_name"`
	DestinationName string `json:"destination_name"`
	CityAdcode      string `json:"city_adcode"`
	CoordSys        string `json:"coord_sys"`
}

// HandleTransit handles POST /api/v1/transit
func (h *Handler) HandleTransit(c *gin.Context) {
	var req TransitRequest
	if !h.bindJSON(c, &req) {
		return
	}

	from, ok := h.parsePoint(c, "origin", req.Origin, req.OriginName, "起点", req.CoordSys)
	if !ok {
		return
	}
	to, ok := h.parsePoint(c, "destination", req.Destination, req.DestinationName, "终点", req.CoordSys)
	if !ok {
		return
	}
	log.Printf("[HTTP] POST /api/v1/transit: from=%s to=%s", from.Location(), to.Location())

	leg := h.Legs.ResolveLeg(c.Request.Context(), strings.TrimSpace(req.CityAdcode), from, to)
	h.writeJSON(c, http.StatusOK, leg)
}

func (h *Handler) parsePoint(c *gin.Context, field, value, name, defaultName, coordSys string) (models.ResolvedPlace, bool) {
	coords, err := models.ParseLngLat(value)
	if err != nil || !geo.ValidCoordinates(coords) {
		h.handleValidationError(c, field+` must be "lng,lat"`)
		return models.ResolvedPlace{}, false
	}
	coords = toProvider(coords, coordSys)
	if name = strings.TrimSpace(name); name == "" {
		name = defaultName
	}
	return models.ResolvedPlace{Name: name, Lng: coords.Lng, Lat: coords.Lat}, true
}
