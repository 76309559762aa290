package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"shutterhub/config"
	"shutterhub/models"
	"shutterhub/services/allocation"
	"shutterhub/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// availabilitySnapshot is the cached public view of a session's capacity.
type availabilitySnapshot struct {
	SessionID string `json:"session_id"`
	Capacity  int    `json:"capacity"`
	Remaining int    `json:"remaining"`
	Full      bool   `json:"full"`
}

// CreateSessionHandler creates an unpublished photo session owned by the
// caller. Validation happens at publish time, so drafts can stay incomplete.
func (hb *HandlerBundle) CreateSessionHandler(c *gin.Context) {
	var req models.PhotoSession
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	now := time.Now()
	req.ID = uuid.New().String()
	req.OrganizerID = c.GetString("userID")
	req.CurrentCount = 0
	req.Published = false
	if req.Currency == "" {
		req.Currency = config.AppConfig.DefaultCurrency
	}
	if req.Lottery != nil {
		req.Lottery.Drawn = false
		req.Lottery.DrawSeed = ""
	}
	req.CreatedAt = now
	req.UpdatedAt = now

	if err := hb.Sessions.Create(&req); err != nil {
		getLogger(c).Error("Session creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}
	c.JSON(http.StatusCreated, req)
}

// PublishSessionHandler validates a session's configuration and makes it
// bookable. Misconfigured sessions are rejected here, before any booking
// attempt can hit them.
func (hb *HandlerBundle) PublishSessionHandler(c *gin.Context) {
	sessionID := c.Param("id")
	session, err := hb.Sessions.GetByID(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	role := c.GetString("role")
	if session.OrganizerID != c.GetString("userID") && role != models.RoleAdmin && role != models.RoleSuperAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the organizer can publish this session"})
		return
	}

	if err := allocation.ValidateSessionConfig(session); err != nil {
		utils.JSONError(c, http.StatusUnprocessableEntity, "Invalid session configuration", err.Error())
		return
	}

	if err := hb.Sessions.SetPublished(sessionID, true); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session published", "session_id": sessionID})
}

// ListSessionsHandler returns all published sessions.
func (hb *HandlerBundle) ListSessionsHandler(c *gin.Context) {
	sessions, err := hb.Sessions.ListPublished()
	if err != nil {
		getLogger(c).Error("Session listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// GetSessionHandler returns one session.
func (hb *HandlerBundle) GetSessionHandler(c *gin.Context) {
	session, err := hb.Sessions.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// GetAvailabilityHandler returns a briefly cached capacity snapshot. The
// snapshot is advisory; the booking path re-checks capacity atomically.
func (hb *HandlerBundle) GetAvailabilityHandler(c *gin.Context) {
	sessionID := c.Param("id")
	ctx := context.Background()
	cacheKey := utils.AvailabilityCachePrefix + sessionID

	if hb.CacheClient != nil {
		if cached, err := hb.CacheClient.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			var snap availabilitySnapshot
			if err := json.Unmarshal([]byte(cached), &snap); err == nil {
				c.JSON(http.StatusOK, snap)
				return
			}
		}
	}

	session, err := hb.Sessions.GetByID(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	snap := availabilitySnapshot{
		SessionID: session.ID,
		Capacity:  session.Capacity,
		Remaining: session.Remaining(),
		Full:      session.IsFull(),
	}
	if hb.CacheClient != nil {
		if data, err := json.Marshal(snap); err == nil {
			hb.CacheClient.Set(ctx, cacheKey, data, utils.AvailabilityCacheTTL)
		}
	}
	c.JSON(http.StatusOK, snap)
}
