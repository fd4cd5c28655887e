package main

import (
	"log"

	"github.com/blockshare-labs/share-backend/config"
	"github.com/blockshare-labs/share-backend/internal/storage/postgres"
)

// dbinit provisions the projects schema. It is an administrative
// one-shot, never run from the serving path, and safe to re-run.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	log.Println("projects schema ready")
}
