package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shutterhub/config"
	"shutterhub/cron"
	"shutterhub/database"
	bookingRepoPkg "shutterhub/database/repository/booking"
	escrowRepoPkg "shutterhub/database/repository/escrow"
	instantRepoPkg "shutterhub/database/repository/instant"
	lotteryRepoPkg "shutterhub/database/repository/lottery"
	sessionRepoPkg "shutterhub/database/repository/session"
	userRepoPkg "shutterhub/database/repository/user"
	waitlistRepoPkg "shutterhub/database/repository/waitlist"
	"shutterhub/handlers"
	"shutterhub/middleware"
	"shutterhub/routes"
	"shutterhub/services/allocation"
	"shutterhub/services/escrow"
	"shutterhub/services/matching"
	"shutterhub/services/notification"
	"shutterhub/services/user"
	"shutterhub/services/waitlist"
	"shutterhub/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitAuthCache()
	utils.FirebaseInit()
	stripe.Key = config.AppConfig.StripeKey

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(cors.Default())

	// repositories.
	sessionRepo := sessionRepoPkg.NewMongoSessionRepo()
	bookingRepo := bookingRepoPkg.NewMongoBookingRepo()
	lotteryRepo := lotteryRepoPkg.NewMongoLotteryRepo()
	waitlistRepo := waitlistRepoPkg.NewMongoWaitlistRepo()
	escrowRepo := escrowRepoPkg.NewMongoEscrowRepo()
	userRepo := userRepoPkg.NewMongoUserRepo()
	instantRepo := instantRepoPkg.NewMongoInstantRequestRepo()

	// services.
	notifier, err := notification.NewFCMNotificationService(userRepo, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize notification service: %v", err)
	}

	userService := &user.DefaultUserService{
		Repo:   userRepo,
		Logger: logger,
	}

	ledger := &escrow.Ledger{
		Repo:     escrowRepo,
		Gateway:  escrow.NewStripeGateway(),
		Notifier: notifier,
		Logger:   logger,
	}

	tracker := allocation.NewCapacityTracker(sessionRepo)

	engine := &allocation.Engine{
		Sessions: sessionRepo,
		Bookings: bookingRepo,
		Entries:  lotteryRepo,
		Users:    userRepo,
		Capacity: tracker,
		Payments: ledger,
		Notifier: notifier,
		Logger:   logger,
	}

	manager := &waitlist.Manager{
		Entries:     waitlistRepo,
		Sessions:    sessionRepo,
		Bookings:    bookingRepo,
		Capacity:    tracker,
		Notifier:    notifier,
		Logger:      logger,
		GracePeriod: time.Duration(config.AppConfig.PromotionGraceHours) * time.Hour,
	}
	// Freed seats cascade to the waitlist through the engine.
	engine.Waitlist = manager

	matchingService := &matching.DefaultMatchingService{
		Users:       userRepo,
		Requests:    instantRepo,
		CacheClient: utils.GetCacheClient(),
		Notifier:    notifier,
		Logger:      logger,
	}

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		Engine:      engine,
		Waitlist:    manager,
		Ledger:      ledger,
		Matching:    matchingService,
		Users:       userService,
		Sessions:    sessionRepo,
		CacheClient: utils.GetCacheClient(),
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterAllRoutes(router, handlerBundle)

	// Background worker: waitlist expiry sweep and due lottery draws.
	cron.InitAllocationWorker(engine, manager, sessionRepo)

	utils.StartHealthMonitor(
		map[string]*redis.Client{
			"cache":      utils.GetCacheClient(),
			"auth_cache": utils.GetAuthCacheClient(),
		},
		database.MongoClient,
	)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
