package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ewilliams-labs/resonate/internal/adapters/memstore"
	"github.com/ewilliams-labs/resonate/internal/adapters/redisstore"
	"github.com/ewilliams-labs/resonate/internal/adapters/rest"
	"github.com/ewilliams-labs/resonate/internal/adapters/spotify"
	"github.com/ewilliams-labs/resonate/internal/adapters/sqlite"
	"github.com/ewilliams-labs/resonate/internal/config"
	"github.com/ewilliams-labs/resonate/internal/core/ports"
	"github.com/ewilliams-labs/resonate/internal/core/services"
	"github.com/ewilliams-labs/resonate/internal/worker"
)

func main() {
	// 1. Configuration (Environment Variables)
	owner := os.Getenv("RESONATE_USER")
	if owner == "" {
		owner = "local"
	}

	cfg, err := config.Load(os.Getenv("RESONATE_CONFIG"))
	if err != nil {
		log.Printf("WARN main: taste config unusable, using defaults: %v", err)
	}

	// 2. Initialize "Driven" Adapters (The Tools)
	// -- Keyed Store Adapter
	storageDriver := os.Getenv("STORAGE_DRIVER")
	if storageDriver == "" {
		storageDriver = "sqlite"
	}

	var store ports.KeyValueStore

	switch storageDriver {
	case "sqlite":
		path := os.Getenv("SQLITE_PATH")
		if path == "" {
			path = "resonate.db"
		}
		adapter, err := sqlite.NewAdapter(path, 0)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize database: %v", err)
		}
		store = adapter
	case "redis":
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		adapter, err := redisstore.NewAdapter(addr, 0)
		if err != nil {
			log.Fatalf("FATAL: Failed to connect to redis: %v", err)
		}
		store = adapter
	case "memory":
		store = memstore.NewAdapter(0)
	default:
		log.Fatalf("Unknown storage driver: %s", storageDriver)
	}
	defer store.Close()

	// -- Catalog Adapter
	catalog := spotify.NewClient(os.Getenv("SPOTIFY_BASE_URL"))

	// 3. Initialize Core Logic (The Driver)
	// The compiler guarantees that the adapters implement the core ports.
	svc := services.NewAnalyzer(owner, catalog, store, cfg)
	svc.Load(context.Background())

	// An already-acquired token can be handed in at boot; the UI's token
	// exchange can also push one later via POST /token.
	if token := os.Getenv("SPOTIFY_TOKEN"); token != "" {
		svc.SetToken(token)
	}

	// 4. Initialize "Driving" Adapter (The Interface)
	pool := worker.NewPool(svc, 100)
	pool.Start(1)
	defer pool.Stop()

	handler := rest.NewHandler(svc, pool)

	// 5. Start the Server
	log.Println("------------------------------------------------")
	log.Printf("🎧 Resonate API is running on http://localhost:8080 (store: %s)", store.Name())
	log.Println("------------------------------------------------")

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			log.Fatal(err)
		}
	case <-ctx.Done():
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}
}
