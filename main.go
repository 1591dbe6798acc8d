package main

import (
	"context"
	"log"
	"os"
	"time"

	"labstock/cmd"
	"labstock/internal/core/container"
	"labstock/internal/core/logger"
	"labstock/internal/core/routes"
	"labstock/internal/database"
	"labstock/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env file, but don't overwrite system environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, falling back to system environment variables.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cmd.Execute(ctx) {
		return
	}

	zapLogger := logger.NewLogger()
	defer func() { _ = zapLogger.Sync() }()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		zapLogger.Fatal("DATABASE_URL environment variable is not set")
	}

	db, err := database.NewPostgresConnection(dbURL)
	if err != nil {
		zapLogger.Fatal("failed to connect to the database", zap.Error(err))
	}
	defer db.Close()

	zapLogger.Info("connected to the database")

	appContainer := container.NewAppContainer(db, zapLogger)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.TimeoutMiddleware(60 * time.Second))

	routes.RegisterUtilityRoutes(router)
	routes.RegisterPublicRoutes(router, appContainer)
	routes.RegisterProtectedRoutes(router, appContainer)

	host := os.Getenv("APP_HOST")
	if host == "" {
		host = ":8080"
	}

	zapLogger.Info("starting server", zap.String("host", host))
	if err := router.Run(host); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}
