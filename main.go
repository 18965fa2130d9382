package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"healthsync/internal/config"
	"healthsync/internal/database"
	"healthsync/internal/domain"
	"healthsync/internal/logger"
	"healthsync/internal/oauthstate"
	"healthsync/internal/providers"
	"healthsync/internal/providers/ultrahuman"
	"healthsync/internal/repository"
	"healthsync/internal/services"
)

func main() {
	var (
		email        = flag.String("user", "", "email of the user to sync")
		providerName = flag.String("provider", ultrahuman.ProviderName, "provider to sync from")
		startDate    = flag.String("start", "", "sync window start (YYYY-MM-DD, default: 30 days ago)")
		endDate      = flag.String("end", "", "sync window end (YYYY-MM-DD, default: today)")
	)
	flag.Parse()

	if *email == "" {
		log.Fatal("missing required -user flag")
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.InitWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := database.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Info("Database connection established and migrations completed")

	states, err := oauthstate.NewRedisStore(cfg.Redis.Host, cfg.Redis.Port)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer states.Close()

	userRepo := repository.NewUserRepository(db)
	connectionRepo := repository.NewConnectionRepository(db)
	eventStore := repository.NewGormEventStore(db)

	registry := providers.NewRegistry(
		ultrahuman.NewStrategy(cfg.Ultrahuman, states, connectionRepo, logger.GetLogger()),
	)

	userService := services.NewUserService(userRepo, connectionRepo)
	syncService := services.NewSyncService(registry, eventStore, logger.GetLogger())

	ctx := context.Background()

	user, err := userService.GetUserByEmail(ctx, *email)
	if err != nil {
		logger.Fatalf("Failed to find user %s: %v", *email, err)
	}

	start, end, err := parseWindow(*startDate, *endDate)
	if err != nil {
		logger.Fatalf("Invalid date range: %v", err)
	}

	result, err := syncService.SyncUser(ctx, *providerName, user.ID, start, end)
	if err != nil {
		logger.Fatalf("Sync failed: %v", err)
	}

	logger.Info("Sync completed",
		"sleep_sessions_synced", result.SleepSessionsSynced,
		"activity_samples", result.ActivitySamples,
		"recovery_days_synced", result.RecoveryDaysSynced,
		"failed_days", result.FailedDays)
	for _, syncErr := range result.Errors {
		logger.Warn("Day failed", "date", syncErr.Date, "error", syncErr.Error)
	}
}

// parseWindow parses the optional -start/-end flags. A half-specified range
// is completed: a lone -start runs through today, a lone -end covers the 30
// days before it. Both empty select the default window downstream.
func parseWindow(start, end string) (time.Time, time.Time, error) {
	var s, e time.Time
	var err error
	if start != "" {
		s, err = time.Parse(domain.DateFormat, start)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if end != "" {
		e, err = time.Parse(domain.DateFormat, end)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if !s.IsZero() && e.IsZero() {
		e = time.Now().UTC()
	}
	if s.IsZero() && !e.IsZero() {
		s = e.AddDate(0, 0, -30)
	}
	if !s.IsZero() && s.After(e) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %s is after end date %s", start, end)
	}
	return s, e, nil
}
