package handlers

import (
	"errors"
	"net/http"

	"shutterhub/models"
	"shutterhub/services/matching"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SearchPhotographersHandler returns available photographers near a point,
// best match first.
func (hb *HandlerBundle) SearchPhotographersHandler(c *gin.Context) {
	var req struct {
		Longitude float64 `json:"longitude" binding:"required"`
		Latitude  float64 `json:"latitude" binding:"required"`
		RadiusKm  float64 `json:"radius_km"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if req.RadiusKm <= 0 {
		req.RadiusKm = 10
	}

	location := models.GeoPoint{Type: "Point", Coordinates: []float64{req.Longitude, req.Latitude}}
	results, err := hb.Matching.SearchNearby(location, req.RadiusKm)
	if err != nil {
		if errors.Is(err, matching.ErrNoPhotographersNearby) {
			c.JSON(http.StatusOK, gin.H{"photographers": []models.PhotographerDTO{}})
			return
		}
		getLogger(c).Error("Photographer search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"photographers": results})
}

// InstantRequestHandler records an instant photo request and auto-matches it
// with the best nearby photographer.
func (hb *HandlerBundle) InstantRequestHandler(c *gin.Context) {
	var req struct {
		Longitude float64 `json:"longitude" binding:"required"`
		Latitude  float64 `json:"latitude" binding:"required"`
		RadiusKm  float64 `json:"radius_km"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if req.RadiusKm <= 0 {
		req.RadiusKm = 10
	}

	location := models.GeoPoint{Type: "Point", Coordinates: []float64{req.Longitude, req.Latitude}}
	result, err := hb.Matching.AutoMatch(c.Request.Context(), c.GetString("userID"), location, req.RadiusKm)
	if err != nil {
		getLogger(c).Error("Instant match failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Instant match failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": result})
}

// ListInstantRequestsHandler returns the caller's instant requests.
func (hb *HandlerBundle) ListInstantRequestsHandler(c *gin.Context) {
	requests, err := hb.Matching.ListRequests(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list requests"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}
