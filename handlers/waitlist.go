package handlers

import (
	"errors"
	"net/http"

	"shutterhub/services/waitlist"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JoinWaitlistHandler queues the caller for a full session.
func (hb *HandlerBundle) JoinWaitlistHandler(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
		Message   string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	entry, err := hb.Waitlist.Join(c.Request.Context(), req.SessionID, c.GetString("userID"), req.Message)
	if err != nil {
		switch {
		case errors.Is(err, waitlist.ErrSessionNotFull),
			errors.Is(err, waitlist.ErrWaitlistDisabled):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, waitlist.ErrAlreadyQueued):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			getLogger(c).Error("Waitlist join failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join waitlist"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// ConfirmPromotionHandler turns the caller's promotion into a booking.
func (hb *HandlerBundle) ConfirmPromotionHandler(c *gin.Context) {
	entryID := c.Param("id")
	booking, err := hb.Waitlist.ConfirmPromotion(c.Request.Context(), entryID, c.GetString("userID"))
	if err != nil {
		switch {
		case errors.Is(err, waitlist.ErrPromotionDeadlinePassed):
			c.JSON(http.StatusGone, gin.H{"error": err.Error()})
		case errors.Is(err, waitlist.ErrNotPromoted),
			errors.Is(err, waitlist.ErrEntryOwnershipMismatch):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			getLogger(c).Error("Promotion confirmation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm promotion"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// CancelWaitlistHandler withdraws the caller's waiting entry.
func (hb *HandlerBundle) CancelWaitlistHandler(c *gin.Context) {
	entryID := c.Param("id")
	if err := hb.Waitlist.Cancel(c.Request.Context(), entryID, c.GetString("userID")); err != nil {
		switch {
		case errors.Is(err, waitlist.ErrNotWaiting),
			errors.Is(err, waitlist.ErrEntryOwnershipMismatch):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel waitlist entry"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Waitlist entry cancelled"})
}

// ListWaitlistHandler returns a session's queue in position order.
func (hb *HandlerBundle) ListWaitlistHandler(c *gin.Context) {
	entries, err := hb.Waitlist.ListBySession(c.Param("id"))
	if err != nil {
		getLogger(c).Error("Waitlist listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list waitlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
