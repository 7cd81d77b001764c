package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ramanjali-g/endless-path-services/internal/config"
	"github.com/Ramanjali-g/endless-path-services/internal/database"
	"github.com/Ramanjali-g/endless-path-services/internal/handlers"
	"github.com/Ramanjali-g/endless-path-services/internal/middleware"
	"github.com/Ramanjali-g/endless-path-services/internal/services"
	"github.com/Ramanjali-g/endless-path-services/pkg/jwt"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Endless Path Services Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Payment repositories need *sqlx.DB for the context-aware query methods
	sqlxDB, ok := db.(*database.PostgresDB)
	if !ok {
		logger.Fatal("Failed to cast database connection to PostgresDB")
	}

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	bookingRepo := database.NewBookingRepository(db)
	paymentRepo := database.NewPaymentRepository(sqlxDB.DB, logger)
	auditRepo := database.NewPaymentAuditRepository(sqlxDB.DB, logger)

	razorpayService := services.NewRazorpayService(&cfg.Razorpay, logger)
	if !razorpayService.IsConfigured() {
		logger.Warn("Razorpay credentials not configured - payment endpoints will reject requests")
	}

	bookingService := services.NewBookingService(bookingRepo, logger)
	paymentService := services.NewPaymentService(bookingRepo, paymentRepo, auditRepo, razorpayService, logger)

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, logger)
	webhookHandler := handlers.NewWebhookHandler(paymentService, razorpayService, logger)

	// Initialize Gin router
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Gateway webhook is authenticated by its signature, not a bearer token
		v1.POST("/payments/webhook", webhookHandler.HandleRazorpayWebhook)

		authenticated := v1.Group("")
		authenticated.Use(middleware.AuthMiddleware(jwtService))
		{
			bookings := authenticated.Group("/bookings")
			{
				bookings.POST("", bookingHandler.CreateBooking)
				bookings.GET("", bookingHandler.ListBookings)
				bookings.GET("/:id", bookingHandler.GetBooking)
				bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
			}

			provider := authenticated.Group("/provider")
			provider.Use(middleware.RequireRole(jwt.RoleProvider, jwt.RoleAdmin))
			{
				provider.GET("/bookings", bookingHandler.ListProviderBookings)
				provider.POST("/bookings/:id/accept", bookingHandler.AcceptBooking)
				provider.POST("/bookings/:id/reject", bookingHandler.RejectBooking)
				provider.POST("/bookings/:id/start", bookingHandler.StartBooking)
				provider.POST("/bookings/:id/complete", bookingHandler.CompleteBooking)
			}

			payments := authenticated.Group("/payments")
			{
				payments.POST("/order", paymentHandler.CreateOrder)
				payments.POST("/verify", paymentHandler.VerifyPayment)
			}
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
		} else {
			status := c.Writer.Status()
			switch {
			case status >= 500:
				entry.Error("Request completed with server error")
			case status >= 400:
				entry.Warn("Request completed with client error")
			default:
				entry.Info("Request completed successfully")
			}
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
