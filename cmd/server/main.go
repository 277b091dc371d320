package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alihamza/deceptron/internal/api"
	"alihamza/deceptron/internal/config"
	"alihamza/deceptron/internal/recordstore"
	"alihamza/deceptron/internal/repository/record"
	"alihamza/deceptron/internal/service"
	"alihamza/deceptron/internal/upload"

	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("Starting Deceptron backend...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Record Store ---
	store, err := recordstore.Open(cfg.Storage.StoreFile)
	if err != nil {
		log.Fatalf("FATAL: Could not open record store: %v", err)
	}
	defer func() {
		log.Println("Closing record store...")
		if err := store.Close(); err != nil {
			log.Printf("ERROR: Failed to close record store: %v", err)
		}
	}()
	log.Printf("Record store ready at %s", cfg.Storage.StoreFile)

	// --- File Layout ---
	layout := upload.NewLayout(cfg.Storage.WebDir)
	if err := layout.EnsureDirs(); err != nil {
		log.Fatalf("FATAL: Could not create media directories: %v", err)
	}

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	accountRepo := record.NewAccountRepository(store)
	mediaRepo := record.NewMediaRepository(store)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	authService := service.NewAuthService(accountRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	defer func() {
		// Runs before the store's deferred Close: no background write
		// may land after the store flushes.
		if err := authService.Close(); err != nil {
			log.Printf("ERROR: Failed to close auth service: %v", err)
		}
	}()
	mediaService := service.NewMediaService(mediaRepo, layout)
	uploadManager := upload.NewManager(layout, mediaRepo)
	defer func() {
		// Releases handles of any session abandoned mid-upload.
		if err := uploadManager.Close(); err != nil {
			log.Printf("ERROR: Failed to close upload manager: %v", err)
		}
	}()

	// --- Initialize Gin Engine ---
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT.Secret, authService, mediaService, uploadManager)

	// The browser UI is served straight from the web root, so the
	// "../uploads/..." paths stored on media records resolve in-page.
	if _, err := os.Stat(cfg.Storage.WebDir); err == nil {
		router.Static("/app", cfg.Storage.WebDir)
	} else {
		log.Printf("WARN: web dir %s not found, UI will not be served", cfg.Storage.WebDir)
	}

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
