package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/sat-explorer/internal/config"
	"github.com/stemsi/sat-explorer/internal/database"
	"github.com/stemsi/sat-explorer/internal/dataset"
	"github.com/stemsi/sat-explorer/internal/logger"
	"github.com/stemsi/sat-explorer/internal/repository"
)

// import-scores replaces the sat_scores table with the rows of a
// .parquet, .csv or .xlsx file.
func main() {
	cfg := config.Load()

	var path string
	var dryRun bool
	flag.StringVar(&path, "file", cfg.DataFile, "Score file to import (.parquet, .csv, .xlsx)")
	flag.BoolVar(&dryRun, "dry-run", false, "Validate the file without writing to the database")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: import-scores [-file path] [-dry-run]")
		flag.PrintDefaults()
	}
	flag.Parse()

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat).With().Str("component", "import").Logger()

	start := time.Now()
	ds, err := dataset.LoadFile(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read score file")
	}
	log.Info().
		Str("file", path).
		Int("rows", ds.Len()).
		Int("majors", len(ds.Majors)-1).
		Str("fingerprint", ds.Fingerprint).
		Msg("Score file parsed")

	if dryRun {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	n, err := repository.NewScoreRepository(pool).ReplaceAll(ctx, ds.Records)
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}
	log.Info().Int64("rows", n).Dur("took", time.Since(start)).Msg("Import complete")
}
