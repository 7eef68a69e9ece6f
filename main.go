package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/food-delivery-app/config"
	"github.com/yeremiapane/food-delivery-app/database"
	"github.com/yeremiapane/food-delivery-app/kds"
	"github.com/yeremiapane/food-delivery-app/router"
	"github.com/yeremiapane/food-delivery-app/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load("")
	if err != nil {
		utils.Logger.Fatalf("Failed to load config: %v", err)
	}
	if err := utils.InitLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		utils.Logger.Fatalf("Failed to init logger: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	db, err := config.InitDB(cfg.Database, utils.Logger)
	if err != nil {
		utils.Logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := config.CloseDB(db); err != nil {
			utils.Logger.WithError(err).Error("close database")
		}
	}()

	if err := database.Migrate(db, utils.Logger); err != nil {
		utils.Logger.Fatalf("Failed to migrate: %v", err)
	}

	hub := kds.NewHub(utils.Logger)
	defer hub.Close()

	r := router.SetupRouter(cfg, db, hub)
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		utils.Logger.WithError(err).Warn("set trusted proxies")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.Logger.WithField("env", cfg.AppEnv).Infof("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Logger.WithError(err).Error("Server forced to shutdown")
	}
	utils.Logger.Info("Server exited")
}
