// Command migrate copies all scoring collections from one store backend to
// another, e.g. from the JSON file store used early on to MongoDB. With
// -init it also creates the destination schema first (MySQL only; the
// document backends create collections implicitly).
//
// Source and destination are selected with SRC_STORE_BACKEND and
// DST_STORE_BACKEND; connection settings are shared with the server config.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"battlescore-backend/internal/config"
	"battlescore-backend/internal/store"
)

func main() {
	initSchema := flag.Bool("init", false, "create destination schema before copying")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	srcBackend := os.Getenv("SRC_STORE_BACKEND")
	dstBackend := os.Getenv("DST_STORE_BACKEND")
	if srcBackend == "" || dstBackend == "" {
		log.Fatal("SRC_STORE_BACKEND and DST_STORE_BACKEND are required")
	}

	ctx := context.Background()

	src, err := openBackend(ctx, srcBackend, cfg)
	if err != nil {
		log.Fatalf("Failed to open source store: %v", err)
	}
	defer src.Close(ctx)

	dst, err := openBackend(ctx, dstBackend, cfg)
	if err != nil {
		log.Fatalf("Failed to open destination store: %v", err)
	}
	defer dst.Close(ctx)

	if *initSchema {
		if mysql, ok := dst.(*store.MySQLStore); ok {
			if err := mysql.InitSchema(ctx); err != nil {
				log.Fatalf("Failed to initialize destination schema: %v", err)
			}
			fmt.Println("Destination schema initialized")
		}
	}

	fmt.Printf("Migrating %s -> %s\n\n", srcBackend, dstBackend)

	total := 0
	for _, collection := range []string{store.Teams, store.Participants, store.Points} {
		recs, err := src.Find(ctx, collection, store.Filter{})
		if err != nil {
			log.Fatalf("Failed to read %s: %v", collection, err)
		}
		fmt.Printf("%s: %d record(s)\n", collection, len(recs))

		copied := 0
		for _, rec := range recs {
			if err := dst.InsertOne(ctx, collection, rec); err != nil {
				fmt.Printf("  SKIP: %v\n", err)
				continue
			}
			copied++
		}
		fmt.Printf("  OK: %d copied\n", copied)
		total += copied
	}

	fmt.Printf("\nDone. Migrated %d record(s).\n", total)
}

func openBackend(ctx context.Context, backend string, cfg *config.Config) (store.Store, error) {
	return store.Open(ctx, store.Options{
		Backend:           backend,
		DataDir:           cfg.DataDir,
		MongoURI:          cfg.MongoURI,
		MongoDatabase:     cfg.MongoDatabase,
		MySQLDSN:          cfg.MySQLDSN,
		FirestoreProject:  cfg.FirestoreProject,
		FirestoreDatabase: cfg.FirestoreDatabase,
	})
}
