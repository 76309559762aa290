package handlers

import (
	"errors"
	"net/http"

	"shutterhub/services/escrow"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OpenDisputeHandler freezes a booking's escrowed funds pending review.
func (hb *HandlerBundle) OpenDisputeHandler(c *gin.Context) {
	var req struct {
		BookingID string `json:"booking_id" binding:"required"`
		Reason    string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	dispute, err := hb.Ledger.OpenDispute(c.Request.Context(), req.BookingID, c.GetString("userID"), req.Reason)
	if err != nil {
		if errors.Is(err, escrow.ErrEscrowNotHeld) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		getLogger(c).Error("Dispute creation failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"dispute": dispute})
}

// InvestigateDisputeHandler moves a dispute under active admin review.
func (hb *HandlerBundle) InvestigateDisputeHandler(c *gin.Context) {
	if err := hb.Ledger.StartInvestigation(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, escrow.ErrAlreadyResolved) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Dispute under investigation"})
}

// ResolveDisputeHandler settles a dispute and moves the held funds.
func (hb *HandlerBundle) ResolveDisputeHandler(c *gin.Context) {
	var req struct {
		Resolution string `json:"resolution" binding:"required"`
		Amount     int64  `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	payment, err := hb.Ledger.Resolve(c.Request.Context(), c.Param("id"), req.Resolution, req.Amount, c.GetString("userID"))
	if err != nil {
		switch {
		case errors.Is(err, escrow.ErrAlreadyResolved),
			errors.Is(err, escrow.ErrEscrowNotHeld),
			errors.Is(err, escrow.ErrEscrowSettled):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, escrow.ErrInvalidResolutionAmount),
			errors.Is(err, escrow.ErrUnknownResolution):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			var gwErr *escrow.GatewayError
			if errors.As(err, &gwErr) {
				// The dispute is still open; the admin can retry.
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "retryable": true})
				return
			}
			getLogger(c).Error("Dispute resolution failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve dispute"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"escrow": payment})
}

// EscalateDisputeHandler flags a dispute for senior review, or reopens a
// resolved one.
func (hb *HandlerBundle) EscalateDisputeHandler(c *gin.Context) {
	if err := hb.Ledger.Escalate(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Dispute escalated"})
}

// ListOpenDisputesHandler returns disputes awaiting a decision.
func (hb *HandlerBundle) ListOpenDisputesHandler(c *gin.Context) {
	disputes, err := hb.Ledger.ListOpenDisputes()
	if err != nil {
		getLogger(c).Error("Dispute listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list disputes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"disputes": disputes})
}
