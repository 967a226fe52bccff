package main

import (
	"log"
	"os"
	"time"

	"github.com/campusride/rideshare-backend/internal/database"
	"github.com/campusride/rideshare-backend/internal/handlers"
	"github.com/campusride/rideshare-backend/internal/middleware"
	"github.com/campusride/rideshare-backend/internal/services"
	"github.com/campusride/rideshare-backend/internal/stores"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize database
	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Get underlying SQL DB instance
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Initialize Redis (optional - presence and pub/sub degrade gracefully)
	if err := services.InitRedis(); err != nil {
		log.Printf("Redis initialization warning: %v", err)
	}

	// Initialize Firebase (optional - will log warning if not configured)
	if err := services.InitFirebase(); err != nil {
		log.Printf("Firebase initialization warning: %v", err)
	}

	// Initialize Storage (S3 or local fallback)
	if err := services.InitStorage(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Stores
	rideStore := stores.NewRideStore(db)
	messageStore := stores.NewMessageStore(db)
	notifier := services.NewRideJoinNotifier(db)

	// Initialize WebSocket hub
	hub := services.NewHub(messageStore, rideStore)
	go hub.Run()

	// Initialize router
	r := gin.Default()

	// Configure CORS
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	// Serve locally stored uploads
	r.Static("/uploads", "./uploads")

	// Routes
	api := r.Group("/api")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(db))
			auth.POST("/login", handlers.Login(db))
		}

		// Public ride browsing
		api.GET("/rides", handlers.GetRides(rideStore))

		// WebSocket connection
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocketHandler(hub))

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			// User routes
			users := protected.Group("/users")
			{
				users.GET("/profile", handlers.GetProfile(db))
				users.PUT("/profile", handlers.UpdateProfile(db))
				users.POST("/profile/avatar", handlers.UploadAvatar(db))
			}

			// Ride routes
			rides := protected.Group("/rides")
			{
				rides.POST("", handlers.CreateRide(rideStore))
				rides.GET("/created", handlers.GetCreatedRides(rideStore))
				rides.GET("/joined", handlers.GetJoinedRides(rideStore))
				rides.POST("/:rideId/join", handlers.JoinRide(rideStore, notifier))
				rides.GET("/:rideId", handlers.GetRideByID(rideStore))
				rides.PUT("/:rideId", handlers.UpdateRide(rideStore))
				rides.DELETE("/:rideId", handlers.DeleteRide(rideStore))
			}

			// Chat history
			protected.GET("/messages/:rideId", handlers.GetMessages(messageStore, rideStore))

			// Notification routes
			notifications := protected.Group("/notifications")
			{
				notifications.POST("/register-token", handlers.RegisterDeviceToken(db))
				notifications.DELETE("/remove-token", handlers.RemoveDeviceToken(db))
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
