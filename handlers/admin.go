package handlers

import (
	"errors"
	"net/http"

	"shutterhub/services/user"

	"github.com/gin-gonic/gin"
)

// SetRankHandler pins a user's rank by admin decision, with an audit reason.
func (hb *HandlerBundle) SetRankHandler(c *gin.Context) {
	var req struct {
		Rank   string `json:"rank" binding:"required"`
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := hb.Users.SetRankManual(c.Request.Context(), c.Param("id"), req.Rank, req.Reason, c.GetString("userID")); err != nil {
		if errors.Is(err, user.ErrUnknownRank) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rank updated"})
}

// ClearRankHandler removes the manual pin and recalculates from history.
func (hb *HandlerBundle) ClearRankHandler(c *gin.Context) {
	if err := hb.Users.ClearManualRank(c.Request.Context(), c.Param("id"), c.GetString("userID")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rank pin cleared"})
}

// RecalculateRankHandler recomputes a user's rank from participation history.
func (hb *HandlerBundle) RecalculateRankHandler(c *gin.Context) {
	rank, err := hb.Users.RecalculateRank(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rank": rank})
}
