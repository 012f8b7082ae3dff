package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/manp-monitoring/report-service/internal/config"
	"github.com/manp-monitoring/report-service/internal/drive"
	"github.com/manp-monitoring/report-service/internal/server"
	"github.com/manp-monitoring/report-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.Default()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := store.NewSQLiteStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if cfg.DatabaseAuthToken != "" {
		logger.Warn("DATABASE_AUTH_TOKEN is set but the embedded database driver does not use it")
	}

	srv, err := server.NewServer(server.Config{
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		GoogleRedirectURI:  cfg.GoogleRedirectURI,
		UploadsDir:         cfg.UploadsDir,
	}, db, logger)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	tokens := drive.NewTokenStore(cfg.DriveTokenFile)
	srv.SetTokenStore(tokens)

	if cfg.DriveConfigured() {
		oauthCfg := drive.OAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)
		httpClient, err := drive.NewHTTPClient(ctx, oauthCfg, tokens)
		if err != nil {
			// No token minted yet; reports are still accepted, photos stay
			// in the local staging directory.
			logger.Warn("drive uploads disabled", "error", err)
		} else {
			srv.SetUploader(drive.NewClient(httpClient, cfg.DriveRootFolderID))
			logger.Info("drive uploads enabled", "root_folder", cfg.DriveRootFolderID)
		}
	} else {
		logger.Info("drive uploads disabled: no OAuth client configured")
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Handler(),
	}

	go func() {
		log.Printf("Listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
}
