package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"travel-planner/internal/itinerary"
	"travel-planner/internal/models"
)

// MaxPlaces caps the destinations of one itinerary
const MaxPlaces = 50

// ItineraryRequest is the body of POST /api/v1/itinerary
type ItineraryRequest struct {
	Origin     models.OriginInput `json:"origin"`
	Places     []string           `json:"places"`
	CityHint   string             `json:"city_hint"`
	CityAdcode string             `json:"city_adcode"`
}

// HandlePlanItinerary handles POST /api/v1/itinerary
func (h *Handler) HandlePlanItinerary(c *gin.Context) {
	var req ItineraryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	names := make([]string, 0, len(req.Places))
	for _, p := range req.Places {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	if len(names) == 0 {
		h.handleValidationError(c, "places must contain at least one name")
		return
	}
	if len(names) > MaxPlaces {
		h.handleValidationError(c, "too many places")
		return
	}

	hint := h.cityHint(c, req.CityHint, req.CityAdcode)
	log.Printf("[HTTP] POST /api/v1/itinerary: places=%d city_hint=%s city_adcode=%s", len(names), hint, req.CityAdcode)

	result, err := h.Planner.PlanItinerary(c.Request.Context(), itinerary.PlanRequest{
		Origin:   req.Origin,
		Places:   names,
		CityHint: hint,
		CityCode: req.CityAdcode,
	})
	if err != nil {
		var invalid *itinerary.ErrInvalidOrigin
		var none *itinerary.ErrNoPlacesResolved
		switch {
		case errors.As(err, &invalid):
			h.writeError(c, http.StatusBadRequest, "INVALID_ORIGIN", invalid.Error(), nil)
		case errors.As(err, &none):
			h.writeError(c, http.StatusUnprocessableEntity, "NO_PLACES_RESOLVED",
				"No places found in target city. Please be more specific.",
				map[string]interface{}{"failed": none.Failed})
		default:
			h.handleInternalError(c, err)
		}
		return
	}

	log.Printf("[HTTP] POST /api/v1/itinerary: request_id=%s ordered=%d failed=%d",
		result.RequestID, len(result.OrderedPlaces), len(result.Failed))
	h.writeJSON(c, http.StatusOK, result)
}
