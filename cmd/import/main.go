// Command import loads the CSV telemetry dataset into the SQLite record store.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jengzang/hexmap-backend-go/internal/database"
	"github.com/jengzang/hexmap-backend-go/internal/loader"
	"github.com/jengzang/hexmap-backend-go/internal/logging"
	"github.com/jengzang/hexmap-backend-go/internal/repository"
)

func main() {
	csvPath := flag.String("csv", "../data/geo_locations_astana_hackathon.csv", "CSV dataset to import")
	dbPath := flag.String("db", "./data/records.db", "SQLite database path")
	replace := flag.Bool("replace", false, "delete existing records before importing")
	flag.Parse()

	logging.Init(logging.Config{Level: os.Getenv("LOG_LEVEL"), Format: "console"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *csvPath, *dbPath, *replace); err != nil {
		logging.Fatal().Err(err).Msg("import failed")
	}
}

func run(ctx context.Context, csvPath, dbPath string, replace bool) error {
	records, err := loader.NewCSVLoader(csvPath).Load(ctx)
	if err != nil {
		return err
	}

	db, err := database.Open(database.Config{Path: dbPath})
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repository.NewRecordRepository(db)
	if replace {
		if err := repo.DeleteAll(ctx); err != nil {
			return err
		}
	}
	if err := repo.InsertRecords(ctx, records); err != nil {
		return err
	}

	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	logging.Info().Int("imported", len(records)).Int64("total", total).Str("db", dbPath).Msg("import complete")
	return nil
}
