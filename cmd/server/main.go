package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"battlescore-backend/internal/config"
	"battlescore-backend/internal/handlers"
	"battlescore-backend/internal/logging"
	"battlescore-backend/internal/middleware"
	"battlescore-backend/internal/state"
	"battlescore-backend/internal/store"
)

func main() {
	log := logging.New("server")
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("loading configuration failed", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := store.Open(ctx, store.Options{
		Backend:           cfg.StoreBackend,
		DataDir:           cfg.DataDir,
		MongoURI:          cfg.MongoURI,
		MongoDatabase:     cfg.MongoDatabase,
		MySQLDSN:          cfg.MySQLDSN,
		FirestoreProject:  cfg.FirestoreProject,
		FirestoreDatabase: cfg.FirestoreDatabase,
	})
	if err != nil {
		log.Fatalw("opening store failed", "backend", cfg.StoreBackend, "error", err)
	}
	log.Infow("store opened", "backend", cfg.StoreBackend)

	manager := state.New(s, log)
	if err := manager.Load(ctx); err != nil {
		log.Fatalw("loading scoring state failed", "error", err)
	}

	h := handlers.New(manager)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: middleware.CORS(cfg.CORSOrigin)(mux),
	}

	go func() {
		log.Infow("server starting", "port", cfg.Port, "cors_origin", cfg.CORSOrigin)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server shutdown failed", "error", err)
	}
	if err := manager.Close(shutdownCtx); err != nil {
		log.Errorw("closing store failed", "error", err)
	}
}
