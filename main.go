package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"cityfix-be/config"
	"cityfix-be/controllers"
	"cityfix-be/jobs"
	"cityfix-be/logger"
	"cityfix-be/models"
	"cityfix-be/notify"
	"cityfix-be/routes"
	"cityfix-be/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	dotenvErr := godotenv.Load()

	log := logger.New()
	if dotenvErr != nil {
		log.Debug().Msg("no .env file found")
	}

	db := config.ConnectDB()
	if db == nil {
		log.Fatal().Msg("failed to connect to MongoDB")
	}
	log.Info().Msg("MongoDB connection established")

	config.ConnectRedis()
	log.Info().Msg("Redis connection established")

	if err := models.EnsureNotificationIndex(config.GetCollection("notifications")); err != nil {
		log.Warn().Err(err).Msg("failed to ensure notification index")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := storage.Init(ctx); err != nil {
		log.Warn().Err(err).Msg("object storage unavailable, uploads disabled")
	}
	cancel()

	escalator := jobs.NewEscalator(log, notify.NewDispatcher(controllers.Directory()))
	escalator.Start()
	defer escalator.Stop()

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(getenvDefault("CORS_ORIGINS", "http://localhost:3000"), ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.AuthRoutes(r)
	routes.IssueRoutes(r)
	routes.NotificationRoutes(r)
	routes.UserRoutes(r)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	port := getenvDefault("PORT", "8080")
	if err := r.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
