package main

import (
	"context"
	"flag"
	"log"
	"time"

	"grading-coordinator/internal/config"
	pg "grading-coordinator/internal/infra/db/postgres"
	red "grading-coordinator/internal/infra/redis"
)

// This script sets up a clean, predictable state for manual end-to-end
// testing: apply the schema, wipe both tables and drop cached projections.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, pg.Schema); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE grading_jobs, reference_keys;`); err != nil {
		log.Fatalf("truncate: %v", err)
	}
	log.Println("schema applied, tables truncated")

	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Printf("redis unavailable, skipping cache flush: %v", err)
		return
	}
	defer redisClient.Close()
	if err := redisClient.FlushDB(ctx); err != nil {
		log.Printf("cache flush failed: %v", err)
	} else {
		log.Println("cache flushed")
	}
}
