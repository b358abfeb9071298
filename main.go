package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"sagastream/api"
	"sagastream/config"
	"sagastream/handlers"
	"sagastream/internal/database"
	"sagastream/services/franchise"
	"sagastream/services/metadata"
	"sagastream/utils"
)

func main() {
	configPath := os.Getenv("SAGASTREAM_CONFIG")
	if configPath == "" {
		configPath = "./data/config.json"
	}

	cfgManager, err := config.NewManager(configPath)
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	cfg := cfgManager.Get()

	if cfg.LogFile != "" {
		log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			Compress:   true,
		}))
	}

	db, err := database.NewDB(database.Config{DatabasePath: cfg.DatabasePath})
	if err != nil {
		log.Fatalf("[main] failed to open database: %v", err)
	}
	defer db.Close()

	franchiseRepo := database.NewFranchiseRepository(db.Connection())

	metadataSvc := metadata.NewService(cfg.TMDBAccessToken, cfg.Language, cfg.CacheDir, cfg.CacheTTLHours, nil)
	curator := franchise.NewGeminiCurator(cfg.GeminiAPIKey, nil)
	franchiseSvc := franchise.NewService(curator, metadataSvc, franchiseRepo)

	if cfg.TMDBAccessToken == "" {
		log.Printf("[main] TMDB access token not set, metadata lookups will fail")
	}
	if !curator.IsConfigured() {
		log.Printf("[main] Gemini API key not set, curation is disabled")
	}

	franchiseHandler := handlers.NewFranchiseHandler(franchiseSvc)
	metadataHandler := handlers.NewMetadataHandler(metadataSvc)
	settingsHandler := handlers.NewSettingsHandler(cfgManager)
	settingsHandler.SetMetadataService(metadataSvc)
	settingsHandler.SetCurator(curator)

	router := utils.NewRouter()
	router.Use(api.RequestIDMiddleware())
	router.Use(api.AccessLogMiddleware())

	// curation fans out to Gemini and TMDB, keep it at 5 requests per minute per IP
	curateLimiter := api.NewIPRateLimiter(rate.Every(12*time.Second), 5)

	router.HandleFunc("/api/franchise", api.RateLimitHandlerFunc(curateLimiter, franchiseHandler.Timeline)).Methods(http.MethodPost)
	router.HandleFunc("/api/franchises", franchiseHandler.List).Methods(http.MethodGet)
	router.HandleFunc("/api/franchises/{id}", franchiseHandler.Get).Methods(http.MethodGet)
	router.HandleFunc("/api/franchises/{id}", franchiseHandler.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/api/franchises/{id}/content", franchiseHandler.Content).Methods(http.MethodGet)
	router.HandleFunc("/api/search", metadataHandler.Search).Methods(http.MethodGet)
	router.HandleFunc("/api/trending", metadataHandler.Trending).Methods(http.MethodGet)
	router.HandleFunc("/api/settings", settingsHandler.GetSettings).Methods(http.MethodGet)
	router.HandleFunc("/api/settings", settingsHandler.PutSettings).Methods(http.MethodPut)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("[main] listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Printf("[main] shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[main] shutdown error: %v", err)
	}
}
