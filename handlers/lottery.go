package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EnterLotteryHandler records the caller's application to a lottery session.
func (hb *HandlerBundle) EnterLotteryHandler(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
		Message   string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	entry, err := hb.Engine.EnterLottery(c.Request.Context(), c.GetString("userID"), req.SessionID, req.Message)
	if err != nil {
		hb.respondBookingError(c, nil, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// ConductDrawHandler triggers a lottery draw. An optional seed makes the
// draw reproducible for audit; draws normally run from the background worker
// when the lottery date passes, so this endpoint is the manual override.
func (hb *HandlerBundle) ConductDrawHandler(c *gin.Context) {
	sessionID := c.Param("id")
	var req struct {
		Seed string `json:"seed"`
	}
	// Body is optional.
	_ = c.ShouldBindJSON(&req)

	result, err := hb.Engine.ConductDraw(c.Request.Context(), sessionID, req.Seed)
	if err != nil {
		hb.respondBookingError(c, nil, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": result.SessionID,
		"winners":    len(result.WinnerIDs),
		"losers":     len(result.LoserIDs),
		"bookings":   result.Bookings,
	})
}

// SelectWinnersHandler confirms an explicit admin selection on an
// admin-lottery session.
func (hb *HandlerBundle) SelectWinnersHandler(c *gin.Context) {
	sessionID := c.Param("id")
	var req struct {
		EntryIDs []string `json:"entry_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	bookings, err := hb.Engine.SelectAdminWinners(c.Request.Context(), sessionID, req.EntryIDs)
	if err != nil {
		getLogger(c).Warn("Admin selection failed", zap.Error(err))
		// Partial selections are possible; return what was confirmed.
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "bookings": bookings})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// RejectEntryHandler explicitly rejects one admin-lottery application.
func (hb *HandlerBundle) RejectEntryHandler(c *gin.Context) {
	if err := hb.Engine.RejectAdminEntry(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Entry rejected"})
}

// ListEntriesHandler returns a session's lottery entries, optionally
// filtered by ?status=.
func (hb *HandlerBundle) ListEntriesHandler(c *gin.Context) {
	sessionID := c.Param("id")
	var statuses []string
	if status := c.Query("status"); status != "" {
		statuses = append(statuses, status)
	}

	entries, err := hb.Engine.Entries.ListBySession(sessionID, statuses...)
	if err != nil {
		getLogger(c).Error("Entry listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list entries"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
