package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"venueadmin/internal/importer"
	"venueadmin/shared/go/logging"
)

func main() {
	if err := godotenv.Load("config/local.env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load config/local.env")
	}

	file := flag.String("file", envOr("IMPORT_FILE", "data/places.json"), "JSON array of places to import")
	baseURL := flag.String("base-url", envOr("BASE_URL", "http://localhost:8080"), "admin API base URL")
	limit := flag.Int("limit", 0, "import at most this many places (overrides IMPORT_LIMIT)")
	flag.Parse()

	logging.SetGlobalLogger(logging.New(logging.Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: envOr("LOG_FORMAT", "text"),
	}))

	if *limit == 0 {
		if n, err := strconv.Atoi(os.Getenv("IMPORT_LIMIT")); err == nil {
			*limit = n
		}
	}

	client, err := importer.NewClient(*baseURL, os.Getenv("ADMIN_IMPORT_SECRET"), nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Import aborted")
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("open import file")
	}
	places, err := importer.LoadPlaces(f)
	f.Close()
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("read import file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := importer.Run(ctx, client, places, *limit)
	if err != nil {
		log.Error().Err(err).Msg("Import interrupted")
	}

	log.Info().
		Int("total", sum.Total).
		Int("inserted", len(sum.Inserted)).
		Int("updated", len(sum.Updated)).
		Int("skipped_missing", len(sum.SkippedMissing)).
		Int("skipped_duplicate", len(sum.SkippedDuplicate)).
		Int("failed", len(sum.Failed)).
		Msg("Import summary")
	if len(sum.Inserted) > 0 {
		log.Info().Strs("ids", sum.Inserted).Msg("Inserted")
	}
	if len(sum.Updated) > 0 {
		log.Info().Strs("ids", sum.Updated).Msg("Updated")
	}
	for _, s := range sum.SkippedMissing {
		log.Info().Str("id", s.ID).Str("destination_slug", s.DestinationSlug).
			Str("slug", s.Slug).Str("name", s.Name).Msg("Skipped missing")
	}
	if len(sum.SkippedDuplicate) > 0 {
		log.Info().Strs("ids", sum.SkippedDuplicate).Msg("Skipped duplicates")
	}
	for _, fail := range sum.Failed {
		log.Warn().Str("id", fail.ID).Int("status", fail.Status).Str("error", fail.Error).Msg("Failed")
	}

	if err != nil || len(sum.Failed) > 0 {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
