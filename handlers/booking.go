package handlers

import (
	"errors"
	"net/http"
	"time"

	"shutterhub/services/allocation"
	"shutterhub/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestBookingHandler runs one booking attempt against a session. Expected
// rejections map to descriptive statuses; "full" carries whether the waitlist
// is open as the caller's next move.
func (hb *HandlerBundle) RequestBookingHandler(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	userID := c.GetString("userID")

	outcome, err := hb.Engine.RequestBooking(c.Request.Context(), userID, req.SessionID)
	if err != nil {
		hb.respondBookingError(c, outcome, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": outcome.Booking})
}

// respondBookingError maps allocation outcomes to HTTP responses.
func (hb *HandlerBundle) respondBookingError(c *gin.Context, outcome *allocation.BookingOutcome, err error) {
	var notYetOpen *allocation.NotYetOpenError
	var confErr *allocation.ConfigurationError

	switch {
	case errors.As(err, &notYetOpen):
		c.JSON(http.StatusForbidden, utils.ErrorResponse{
			Message:       "Booking not yet open",
			Details:       err.Error(),
			AvailableFrom: notYetOpen.AvailableFrom.Format(time.RFC3339),
		})
	case errors.Is(err, allocation.ErrFull):
		waitlistAvailable := outcome != nil && outcome.WaitlistAvailable
		c.JSON(http.StatusConflict, gin.H{
			"error":              "Session is full",
			"waitlist_available": waitlistAvailable,
		})
	case errors.Is(err, allocation.ErrDuplicateBooking),
		errors.Is(err, allocation.ErrTicketExpiredOrConsumed),
		errors.Is(err, allocation.ErrAlreadyEntered):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, allocation.ErrNoEligibility),
		errors.Is(err, allocation.ErrBookingClosed),
		errors.Is(err, allocation.ErrEntryWindowClosed):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, allocation.ErrNotPublished):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, allocation.ErrLotteryMode),
		errors.Is(err, allocation.ErrAlreadyDrawn),
		errors.Is(err, allocation.ErrDrawNotDue):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &confErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		getLogger(c).Error("Booking request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Booking failed, please try again"})
	}
}

// CancelBookingHandler cancels the caller's booking and frees its seat.
func (hb *HandlerBundle) CancelBookingHandler(c *gin.Context) {
	bookingID := c.Param("id")
	if err := hb.Engine.CancelBooking(c.Request.Context(), bookingID, c.GetString("userID")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled"})
}

// ListMyBookingsHandler returns the caller's bookings, newest first.
func (hb *HandlerBundle) ListMyBookingsHandler(c *gin.Context) {
	bookings, err := hb.Engine.Bookings.ListByUser(c.GetString("userID"))
	if err != nil {
		getLogger(c).Error("Booking listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list bookings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}
