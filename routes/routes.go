package routes

import (
	"net/http"

	"shutterhub/handlers"
	"shutterhub/middleware"
	"shutterhub/models"
	"shutterhub/utils"

	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes registers account endpoints.
func RegisterAuthRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/auth")
	{
		api.POST("/register", hb.RegisterHandler)
		api.POST("/login", hb.LoginHandler)

		// Protected routes (Require Authentication)
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("/logout", hb.LogoutHandler)
		api.GET("/me", hb.MeHandler)
		api.PUT("/fcm-token", hb.UpdateFCMTokenHandler)
	}
}

// RegisterSessionRoutes registers session management and discovery endpoints.
func RegisterSessionRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/sessions")
	{
		api.GET("", hb.ListSessionsHandler)
		api.GET("/:id", hb.GetSessionHandler)
		api.GET("/:id/availability", hb.GetAvailabilityHandler)

		protected := api.Group("")
		protected.Use(middleware.JWTAuthMiddleware())
		protected.POST("", hb.CreateSessionHandler)
		protected.POST("/:id/publish", hb.PublishSessionHandler)
		protected.GET("/:id/waitlist", hb.ListWaitlistHandler)
	}
}

// RegisterBookingRoutes registers the allocation endpoints: direct booking,
// lottery entry, and waitlist.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bookings")
	api.Use(middleware.JWTAuthMiddleware())
	{
		api.POST("", hb.RequestBookingHandler)
		api.DELETE("/:id", hb.CancelBookingHandler)
		api.GET("/mine", hb.ListMyBookingsHandler)
	}

	lottery := r.Group("/api/lottery")
	lottery.Use(middleware.JWTAuthMiddleware())
	{
		lottery.POST("/enter", hb.EnterLotteryHandler)
	}

	waitlist := r.Group("/api/waitlist")
	waitlist.Use(middleware.JWTAuthMiddleware())
	{
		waitlist.POST("/join", hb.JoinWaitlistHandler)
		waitlist.POST("/:id/confirm", hb.ConfirmPromotionHandler)
		waitlist.DELETE("/:id", hb.CancelWaitlistHandler)
	}
}

// RegisterMatchingRoutes registers instant photo matching endpoints.
func RegisterMatchingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/matching")
	api.Use(middleware.JWTAuthMiddleware())
	{
		api.POST("/search", hb.SearchPhotographersHandler)
		api.POST("/instant", hb.InstantRequestHandler)
		api.GET("/instant", hb.ListInstantRequestsHandler)
	}
}

// RegisterTicketRoutes registers priority ticket endpoints.
func RegisterTicketRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/tickets")
	api.Use(middleware.JWTAuthMiddleware())
	{
		api.GET("/mine", hb.ListMyTicketsHandler)
		api.POST("", middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin), hb.IssueTicketHandler)
	}
}

// RegisterDisputeRoutes registers the dispute and escrow endpoints. Opening a
// dispute is open to any authenticated guest; settlement is admin-only.
func RegisterDisputeRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/disputes")
	api.Use(middleware.JWTAuthMiddleware())
	{
		api.POST("", hb.OpenDisputeHandler)

		admin := api.Group("")
		admin.Use(middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))
		admin.GET("/open", hb.ListOpenDisputesHandler)
		admin.POST("/:id/investigate", hb.InvestigateDisputeHandler)
		admin.POST("/:id/resolve", hb.ResolveDisputeHandler)
		admin.POST("/:id/escalate", hb.EscalateDisputeHandler)
	}
}

// RegisterAdminRoutes registers admin-only curation endpoints.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/admin")
	api.Use(middleware.JWTAuthMiddleware(), middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))
	{
		api.POST("/sessions/:id/draw", hb.ConductDrawHandler)
		api.POST("/sessions/:id/select", hb.SelectWinnersHandler)
		api.GET("/sessions/:id/entries", hb.ListEntriesHandler)
		api.POST("/entries/:id/reject", hb.RejectEntryHandler)

		api.PUT("/users/:id/rank", hb.SetRankHandler)
		api.DELETE("/users/:id/rank", hb.ClearRankHandler)
		api.POST("/users/:id/rank/recalculate", hb.RecalculateRankHandler)
	}
}

// RegisterHealthRoutes registers the health snapshot endpoint.
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		status := utils.GetHealthStatus()
		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})
}

// RegisterAllRoutes wires every route group onto the router.
func RegisterAllRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	RegisterAuthRoutes(r, hb)
	RegisterSessionRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterMatchingRoutes(r, hb)
	RegisterTicketRoutes(r, hb)
	RegisterDisputeRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
	RegisterHealthRoutes(r)
}
