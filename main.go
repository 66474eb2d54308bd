package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	handler "leadbridge/api"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found, using environment variables")
	} else {
		log.Printf("✅ Loaded configuration from .env file")
	}

	// Load configuration from environment variables
	config := handler.LoadConfig()

	// Set Gin mode based on configuration
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Label/custom-field mapping tables (file overrides compiled defaults)
	labelMap, err := handler.LoadLabelMap(config.LabelMapFile)
	if err != nil {
		log.Fatalf("❌ Failed to load label map from %s: %v", config.LabelMapFile, err)
	}

	// Initialize services
	pipedriveService := handler.NewPipedriveService(config, labelMap)
	mailer := handler.NewMailerFromConfig(config)

	// Create Gin router
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Secret-Token")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/health", handler.HealthCheckHandler)

	// Webhook endpoint (secret-guarded)
	router.POST("/listener",
		handler.RequireSecretToken(config),
		handler.ListenerHandler(config, pipedriveService, mailer))

	log.Printf("🚀 Starting Lead Bridge on port %s", config.Port)
	log.Printf("📋 Available endpoints:")
	log.Printf("   GET  /health")
	log.Printf("   POST /listener")

	if config.HasPipedriveConfig() {
		log.Printf("✅ Pipedrive API configured (owner id %d, mode %q)", config.OwnerID, config.DealFieldMode)
	} else {
		log.Printf("⚠️  Pipedrive API not configured")
		log.Printf("   Set PIPEDRIVE_API_KEY to enable lead forwarding")
	}

	if config.HasMailConfig() {
		log.Printf("✅ Lead notifications will be mailed to %s", config.AdminEmail)
	} else {
		log.Printf("⚠️  SMTP not configured, lead notification emails disabled")
	}

	// Start the server
	if err := router.Run(":" + config.Port); err != nil {
		log.Fatalf("❌ Server stopped: %v", err)
	}
}
