package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"travel-planner/internal/geo"
	"travel-planner/internal/geocoding"
	"travel-planner/internal/iplocate"
	"travel-planner/internal/itinerary"
	"travel-planner/internal/models"
)

// Itineraries plans whole itineraries
type Itineraries interface {
	PlanItinerary(ctx context.Context, req itinerary.PlanRequest) (*models.ItineraryResult, error)
}

// Handler provides common handler utilities and dependencies
type Handler struct {
	Planner  Itineraries
	Places   itinerary.PlaceResolver
	Legs     itinerary.LegResolver
	Geocoder geocoding.Service
	Locator  iplocate.Locator
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// writeError writes a JSON error response
func (h *Handler) writeError(c *gin.Context, status int, code, message string, details interface{}) {
	h.writeJSON(c, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// handleNotFound handles 404 errors
func (h *Handler) handleNotFound(c *gin.Context, message string) {
	h.writeError(c, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// handleValidationError handles 400 errors
func (h *Handler) handleValidationError(c *gin.Context, message string) {
	h.writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}

// handleUpstreamError handles 502 errors from the map provider
func (h *Handler) handleUpstreamError(c *gin.Context, err error) {
	log.Printf("[ERROR] Upstream error: path=%s err=%v", c.Request.URL.Path, err)
	h.writeError(c, http.StatusBadGateway, "UPSTREAM_ERROR", "The map provider request failed. Please try again.", nil)
}

// handleInternalError handles 500 errors
func (h *Handler) handleInternalError(c *gin.Context, err error) {
	log.Printf("[ERROR] Internal error: %v", err)
	h.writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An error occurred. Please try again.", nil)
}

// bindJSON decodes the body into dst, answering 400 on failure
func (h *Handler) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.handleValidationError(c, "Invalid request: "+err.Error())
		return false
	}
	return true
}

// cityHint falls back to the client's location when the request names no city
func (h *Handler) cityHint(c *gin.Context, hint, code string) string {
	hint = strings.TrimSpace(hint)
	if hint != "" || strings.TrimSpace(code) != "" || h.Locator == nil {
		return hint
	}
	if guess := h.Locator.CityHint(c.ClientIP()); guess != "" {
		log.Printf("[HTTP] City hint from client address: hint=%s", guess)
		return guess
	}
	return ""
}

// HandleHealth handles GET /api/v1/health
func (h *Handler) HandleHealth(c *gin.Context) {
	h.writeJSON(c, http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "travel-planner",
	})
}

// toProvider converts client coordinates into the provider's datum
func toProvider(c models.Coordinates, coordSys string) models.Coordinates {
	if strings.EqualFold(strings.TrimSpace(coordSys), "wgs84") {
		return geo.WGS84ToGCJ02(c)
	}
	return c
}
