package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mirabellier/backend/internal/auth"
	"github.com/mirabellier/backend/internal/blob"
	"github.com/mirabellier/backend/internal/config"
	httpapp "github.com/mirabellier/backend/internal/http"
	"github.com/mirabellier/backend/internal/rate"
	"github.com/mirabellier/backend/internal/store/sqlite"
)

func main() {
	// Missing .env is fine; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer store.Close()

	blobs, err := blob.NewStore(cfg.ImagesDir, cfg.VideosDir)
	if err != nil {
		log.Fatalf("failed to prepare media dirs: %v", err)
	}

	limiter := rate.NewMemory()
	go func() {
		for range time.Tick(10 * time.Minute) {
			limiter.Prune()
		}
	}()

	authSvc := auth.NewService(store, cfg.TokenSecret)
	discord := auth.NewDiscord(cfg.Discord)

	server, err := httpapp.NewServer(store, authSvc, discord, blobs, limiter, cfg)
	if err != nil {
		log.Fatalf("failed to initialize server: %v", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("mirabellier listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
}
