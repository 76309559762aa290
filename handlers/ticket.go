package handlers

import (
	"errors"
	"net/http"
	"time"

	"shutterhub/services/user"

	"github.com/gin-gonic/gin"
)

// IssueTicketHandler grants a single-use priority ticket (admin/organizer).
func (hb *HandlerBundle) IssueTicketHandler(c *gin.Context) {
	var req struct {
		UserID    string    `json:"user_id" binding:"required"`
		SessionID string    `json:"session_id" binding:"required"`
		ExpiresAt time.Time `json:"expires_at" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	ticket, err := hb.Users.IssueTicket(c.Request.Context(), req.UserID, req.SessionID, c.GetString("userID"), req.ExpiresAt)
	if err != nil {
		if errors.Is(err, user.ErrTicketExpiry) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticket": ticket})
}

// ListMyTicketsHandler returns the caller's priority tickets.
func (hb *HandlerBundle) ListMyTicketsHandler(c *gin.Context) {
	tickets, err := hb.Users.ListTickets(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tickets"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}
