package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jameshendricken/iot-dashboard/internal/api"
	"github.com/jameshendricken/iot-dashboard/internal/config"
	"github.com/jameshendricken/iot-dashboard/internal/db"
	"github.com/jameshendricken/iot-dashboard/internal/obs"
	"github.com/jameshendricken/iot-dashboard/internal/server"
)

func main() {
	cfg := config.Load()

	addr := flag.String("addr", cfg.ListenAddr, "HTTP listen address")
	dbPath := flag.String("db", cfg.DBPath, "path to SQLite database file")
	flag.Parse()
	cfg.ListenAddr = *addr
	cfg.DBPath = *dbPath

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("starting dispensing dashboard")

	obs.Init()

	// ── Database ────────────────────────────────────────────────────────
	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	// ── Backend client + HTTP server ────────────────────────────────────
	backend := api.New(cfg.APIBaseURL, cfg.RequestTimeout)

	srv, err := server.New(cfg, database, backend)
	if err != nil {
		log.Fatalf("server: %v", err)
	}

	// Start server in a goroutine so we can listen for shutdown signals.
	srv.StartBackgroundJobs()
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	// ── Graceful Shutdown ───────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("received %s, shutting down...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}

	log.Println("shutdown complete")
}
