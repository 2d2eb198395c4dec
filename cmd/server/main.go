package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"claimtrace/internal/config"
	"claimtrace/internal/database"
	"claimtrace/internal/handlers"
	"claimtrace/internal/services"
	"claimtrace/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load database configuration
	dbConfig := database.LoadConfig()

	// Connect to database
	if err := database.Connect(dbConfig); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	engineConfig := config.LoadEngineConfig()

	// Initialize and start background workers
	workerService := worker.NewWorkerService(engineConfig)
	if err := workerService.Start(); err != nil {
		log.Fatal("Failed to start background workers:", err)
	}

	// Setup graceful shutdown
	setupGracefulShutdown(workerService)

	// Setup HTTP server
	setupServer(workerService)
}

func setupGracefulShutdown(workerService *worker.WorkerService) {
	// Setup signal handling for graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Received shutdown signal, gracefully shutting down...")

		// Stop background workers
		workerService.Stop()

		// Close database connection
		database.Close()

		log.Println("Shutdown complete")
		os.Exit(0)
	}()
}

func setupServer(workerService *worker.WorkerService) {
	// Set Gin mode based on environment
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Initialize handlers
	pipeline := workerService.Pipeline()
	verificationService := services.NewVerificationService(database.DB, pipeline.Metrics())
	seedService := services.NewSeedService(database.DB)

	eventsHandler := handlers.NewEventsHandler(database.DB, pipeline)
	adminHandler := handlers.NewAdminHandler(database.DB, verificationService, seedService)
	docsHandler := handlers.NewDocsHandler()

	// Health check
	r.GET("/health", eventsHandler.HealthCheck)

	// Serve Markdown documentation as HTML
	r.GET("/doc/:doc", docsHandler.ServeMarkdownAsHTML)

	// Public API
	api := r.Group("/api")
	{
		api.POST("/posts", eventsHandler.ProcessPost)
		api.GET("/events", eventsHandler.ListEvents)
		api.GET("/events/:id", eventsHandler.GetEvent)
		api.GET("/accounts/leaderboard", eventsHandler.GetLeaderboard)
		api.GET("/accounts/:account", eventsHandler.GetAccount)
	}

	// Admin API
	admin := r.Group("/api/admin")
	admin.POST("/login", adminHandler.Login)
	authorized := admin.Group("")
	authorized.Use(adminHandler.AdminAuth())
	{
		authorized.POST("/events/:id/verify", adminHandler.VerifyEvent)
		authorized.POST("/seed", adminHandler.SeedAccounts)
		authorized.GET("/stats", adminHandler.GetStats)
		authorized.GET("/workers", func(c *gin.Context) {
			c.JSON(200, workerService.GetStatus())
		})
	}

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
