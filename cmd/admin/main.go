package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"eyegic/internal/api"
	"eyegic/internal/config"
	"eyegic/internal/database"
	"eyegic/internal/export"
	"eyegic/internal/google"
	"eyegic/internal/logging"
	"eyegic/internal/service"

	"github.com/rs/zerolog"
)

const usage = `usage: admin <command> [flags]

commands:
  token -sub <principal> [-ttl 24h]   issue a bearer token
  seed-catalog [-file catalog.yaml]   upsert rental items from YAML
  export                              write all bookings to an XLSX file
  resync-sheets                       rewrite the bookings sheet from the store
  backup                              copy the database into the backup directory
  sync-stats                          show sheets sync queue counts by status
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(command string, args []string) error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if command == "token" {
		return issueToken(cfg, args)
	}

	db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	switch command {
	case "seed-catalog":
		return seedCatalog(ctx, cfg, db, args, logger)
	case "export":
		return exportBookings(ctx, cfg, db, logger)
	case "resync-sheets":
		return resyncSheets(ctx, cfg, db, logger)
	case "backup":
		path, err := database.NewBackupService(cfg.Database.Path, cfg.Backup, logging.Component(logger, "backup")).PerformBackup()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	case "sync-stats":
		return syncStats(ctx, db)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logging.Component(logger, "admin"), closer, nil
}

func issueToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	sub := fs.String("sub", "", "principal to issue the token for")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sub == "" {
		return fmt.Errorf("-sub is required")
	}
	if cfg.API.Auth.JWTSecret == "" {
		return fmt.Errorf("api.auth.jwt_secret is not configured")
	}

	token, err := api.NewTokenAuth(cfg.API.Auth).Sign(*sub, *ttl)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Println(token)
	return nil
}

func seedCatalog(ctx context.Context, cfg *config.Config, db *database.DB, args []string, logger *zerolog.Logger) error {
	fs := flag.NewFlagSet("seed-catalog", flag.ContinueOnError)
	file := fs.String("file", cfg.Catalog.Path, "path to the catalog YAML")
	if err := fs.Parse(args); err != nil {
		return err
	}

	items, err := service.LoadCatalog(*file)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("no items in %s", *file)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := service.NewRentalService(db, logger).SeedCatalog(ctx, items); err != nil {
		return err
	}
	fmt.Printf("done: items=%d\n", len(items))
	return nil
}

func exportBookings(ctx context.Context, cfg *config.Config, db *database.DB, logger *zerolog.Logger) error {
	bookings, err := db.ListBookings(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		return fmt.Errorf("create exports dir: %w", err)
	}
	path, err := export.SaveBookings(cfg.Exports.Path, bookings, time.Now())
	if err != nil {
		return err
	}
	logger.Info().Str("path", path).Int("bookings", len(bookings)).Msg("bookings exported")
	fmt.Println(path)
	return nil
}

func resyncSheets(ctx context.Context, cfg *config.Config, db *database.DB, logger *zerolog.Logger) error {
	if !cfg.SheetsEnabled() {
		return fmt.Errorf("google sheets is not configured")
	}
	sheets, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.BookingsSpreadsheetID, cfg.Google.BookingsSheetName)
	if err != nil {
		return err
	}
	bookings, err := db.ListBookings(ctx)
	if err != nil {
		return err
	}
	if err := sheets.ReplaceBookingsSheet(ctx, bookings); err != nil {
		return err
	}
	logger.Info().Int("bookings", len(bookings)).Msg("bookings sheet rewritten")
	return nil
}

func syncStats(ctx context.Context, db *database.DB) error {
	stats, err := db.SyncQueueStats(ctx)
	if err != nil {
		return err
	}
	statuses := make([]string, 0, len(stats))
	for s := range stats {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Printf("%-10s %d\n", s, stats[s])
	}
	return nil
}
