package main

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/blockshare-labs/share-backend/config"
	"github.com/blockshare-labs/share-backend/internal/bootstrap"
	"github.com/blockshare-labs/share-backend/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: postgres.DSN(&cfg.Database)})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("redis unavailable, read cache disabled: %v", err)
			rdb = nil
		}
	}

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "share-backend",
		Version:     cfg.App.Version,
		DB:          pool,
		Redis:       rdb,
	})

	log.Printf("listening on :%s", cfg.Server.Port)
	log.Fatal(r.Run(":" + cfg.Server.Port))
}
