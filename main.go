package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Gamequic/ProfileDirectory/pkg/database"
	featuresApi "github.com/Gamequic/ProfileDirectory/pkg/features"
	"github.com/Gamequic/ProfileDirectory/utils"
	"github.com/Gamequic/ProfileDirectory/utils/middlewares"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Staged uploads older than this were abandoned with their form.
const pendingMaxAge = 24 * time.Hour

var Logger *zap.Logger

func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	Logger = utils.NewLogger(cfg.LogDir)
	defer Logger.Sync() // flushes buffer, if any
	database.Logger = Logger
	middlewares.Logger = Logger

	backend := strings.ToLower(cfg.StorageBackend)
	if backend == "sqlite" || backend == "postgres" {
		if err := database.InitDB(backend, cfg.DatabaseDSN); err != nil {
			Logger.Fatal("Error opening database", zap.Error(err))
		}
		defer database.CloseDB()
	}
	if cfg.RedisHost != "" {
		if err := database.InitRedis(cfg.RedisHost, cfg.RedisDB); err != nil {
			Logger.Fatal("Error connecting to Redis", zap.Error(err))
		}
		defer database.CloseRedis()
	}

	slot, err := featuresApi.OpenSlot(cfg)
	if err != nil {
		Logger.Fatal("Error opening profile storage", zap.Error(err))
	}
	services, err := featuresApi.NewServices(cfg, slot, Logger)
	if err != nil {
		Logger.Fatal("Error preparing services", zap.Error(err))
	}
	if n := services.Files.SweepPending(pendingMaxAge); n > 0 {
		Logger.Info("Removed abandoned uploads", zap.Int("count", n))
	}

	mainRouter := mux.NewRouter()
	mainRouter.Use(middlewares.ErrorHandler)

	mainRouter.HandleFunc("/checkhealth", utils.CheckHealth)

	// api, files and pages
	featuresApi.RegisterSubRoutes(mainRouter, cfg, services, Logger)

	// CORS
	corsObj := handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	server := &http.Server{
		Addr:    fmt.Sprint(":", cfg.Port),
		Handler: corsObj(mainRouter),
	}

	go func() {
		Logger.Info(fmt.Sprint("Running on 0.0.0.0:", cfg.Port), zap.String("storage", backend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Fatal("Server stopped", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		Logger.Error("Error shutting down", zap.Error(err))
	}
	Logger.Info("Server stopped")
}
