package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"venueadmin/internal/migrate"
	"venueadmin/migrations"
	"venueadmin/shared/go/config"
	"venueadmin/shared/go/logging"
)

func main() {
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: migrate [-dir path] [up|status]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}
	if command != "up" && command != "status" {
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load("config/local.env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load config/local.env")
	}
	logging.SetGlobalLogger(logging.New(logging.Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	}))

	dbCfg, err := config.LoadDatabase()
	if err != nil {
		log.Fatal().Err(err).Msg("load database config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", dbCfg.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}

	var files fs.FS = migrations.FS
	if *dir != "" {
		files = os.DirFS(*dir)
	}
	runner := migrate.New(db, files)

	switch command {
	case "status":
		pending, err := runner.Pending(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Migration status failed")
		}
		log.Info().Int("count", len(pending)).Strs("pending", pending).Msg("Migration status")
	default:
		res, err := runner.Up(ctx)
		if err != nil {
			log.Fatal().Err(err).Strs("applied", res.Applied).Msg("Migration failed")
		}
		log.Info().Int("applied", len(res.Applied)).Int("skipped", len(res.Skipped)).Msg("Migrations complete")
	}
}
