package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repoassess/internal/assess"
	"repoassess/internal/clone"
	"repoassess/internal/config"
	"repoassess/internal/jobs"
	"repoassess/internal/server"
	"repoassess/internal/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	graphs, closeStore, err := store.Open(context.Background(), cfg.StoreOptions())
	if err != nil {
		log.Fatalf("Failed to open graph store: %v", err)
	}
	defer closeStore()

	svc := assess.New(
		assess.WithCloner(clone.New(cfg.Workdir)),
		assess.WithStore(graphs),
		assess.WithWorkers(cfg.Workers),
		assess.WithCache(cfg.CacheSize, cfg.CacheTTL),
	)
	js := jobs.NewStore(svc.RunJob,
		jobs.WithErrorKind(assess.Kind),
		jobs.WithRetention(cfg.JobRetention),
	)

	srv := server.New(cfg.Port, server.NewAPI(js, graphs).Routes())
	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	js.Close()

	log.Println("Server exiting")
}
