package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eyegic/internal/api"
	"eyegic/internal/config"
	"eyegic/internal/database"
	"eyegic/internal/domain"
	"eyegic/internal/events"
	"eyegic/internal/google"
	"eyegic/internal/logging"
	"eyegic/internal/metrics"
	"eyegic/internal/notify"
	"eyegic/internal/pricing"
	"eyegic/internal/repository"
	"eyegic/internal/service"
	"eyegic/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const healthInterval = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, baseLogger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := logging.Component(baseLogger, "api-main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.Database.Path, logging.Component(baseLogger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	access := service.NewAccessService(db, logging.Component(baseLogger, "access"))
	if err := access.SeedAdmins(ctx, cfg.Admins); err != nil {
		return fmt.Errorf("seed admins: %w", err)
	}

	rentals := service.NewRentalService(db, logging.Component(baseLogger, "rentals"))
	if err := seedCatalog(ctx, cfg, rentals, logger); err != nil {
		return err
	}

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	bus := events.NewEventBus()
	bus.SetLogger(logging.Component(baseLogger, "events"))

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		metrics.SubscribeEvents(bus)
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
	}

	if cfg.Telegram.Enabled {
		if err := initNotifier(ctx, cfg, bus, logging.Component(baseLogger, "telegram")); err != nil {
			logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		}
	}

	var syncWorker domain.SyncWorker
	if sheetsWorker := initSheetsWorker(ctx, cfg, db, redisClient, baseLogger); sheetsWorker != nil {
		go sheetsWorker.Start(ctx)
		syncWorker = sheetsWorker
	}

	table, err := pricing.NewTable(cfg.Pricing.Fees)
	if err != nil {
		return fmt.Errorf("pricing table: %w", err)
	}

	providers, err := service.NewProviderDirectory(db, bus, 0, logging.Component(baseLogger, "providers"))
	if err != nil {
		return fmt.Errorf("provider directory: %w", err)
	}

	otpStore := initOTPStore(redisClient, logging.Component(baseLogger, "otp"))
	verifications := service.NewVerificationService(db, otpStore, nil, bus, cfg.OTP, logging.Component(baseLogger, "verification"))
	if cfg.Monitoring.PrometheusEnabled {
		verifications.SetObserver(metrics.Observer{})
	}

	svc := api.Services{
		Bookings:      service.NewBookingService(db, table, bus, syncWorker, cfg.Bookings.RelaxedTransitions, logging.Component(baseLogger, "bookings")),
		Providers:     providers,
		Profiles:      service.NewProfileService(db, logging.Component(baseLogger, "profiles")),
		Verifications: verifications,
		Access:        access,
		Rentals:       rentals,
		Store:         db,
	}

	backup := database.NewBackupService(cfg.Database.Path, cfg.Backup, logging.Component(baseLogger, "backup"))
	go backup.Start(ctx)

	return startServers(ctx, cfg, svc, db, baseLogger, logger)
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

	return cfg, logger, closer, nil
}

func seedCatalog(ctx context.Context, cfg *config.Config, rentals *service.RentalService, logger *zerolog.Logger) error {
	items, err := service.LoadCatalog(cfg.Catalog.Path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn().Str("catalog_path", cfg.Catalog.Path).Msg("catalog file not found, skipping seed")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if err := rentals.SeedCatalog(ctx, items); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	logger.Info().Int("items", len(items)).Msg("rental catalog seeded")
	return nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

// initOTPStore prefers Redis and falls back to process memory when it is absent or down.
func initOTPStore(redisClient *redis.Client, logger *zerolog.Logger) domain.OTPRepository {
	memory := repository.NewMemoryOTPRepository()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverOTPRepository(repository.NewRedisOTPRepository(redisClient), memory, logger)
}

func initNotifier(ctx context.Context, cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) error {
	bot, err := notify.NewBotSender(cfg.Telegram.BotToken, cfg.Telegram.Debug)
	if err != nil {
		return err
	}
	notifier := notify.NewNotifier(bot, cfg.Telegram.AdminChatIDs, logger)
	notifier.Subscribe(bus)
	go notifier.Run(ctx)
	logger.Info().Int("chats", len(cfg.Telegram.AdminChatIDs)).Msg("telegram notifications enabled")
	return nil
}

func initSheetsWorker(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	baseLogger *zerolog.Logger,
) *worker.SheetsWorker {
	if !cfg.SheetsEnabled() {
		return nil
	}
	logger := logging.Component(baseLogger, "sheets")

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.BookingsSpreadsheetID, cfg.Google.BookingsSheetName)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets unreachable, continuing without sheets")
		return nil
	}
	if err := sheetsService.WarmUpCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("sheets cache warm-up failed")
	}

	w := worker.NewSheetsWorker(db, sheetsService, redisClient, worker.RetryPolicy{}, logger)
	if cfg.Monitoring.PrometheusEnabled {
		w.SetObserver(metrics.Observer{})
	}
	logger.Info().Str("spreadsheet", cfg.Google.BookingsSpreadsheetID).Msg("google sheets sync enabled")
	return w
}

func startServers(
	ctx context.Context,
	cfg *config.Config,
	svc api.Services,
	db *database.DB,
	baseLogger *zerolog.Logger,
	logger *zerolog.Logger,
) error {
	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		var err error
		grpcServer, err = api.NewGRPCServer(cfg.API, baseLogger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
		go grpcServer.MonitorHealth(ctx, db, healthInterval)
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	httpServer := api.NewHTTPServer(cfg.API, svc, baseLogger)
	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Bool("grpc", cfg.API.GRPC.Enabled).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
