package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"velora/internal/api"
	"velora/internal/clients"
	"velora/internal/config"
	"velora/internal/engine"
	"velora/internal/events"
	"velora/internal/export"
	"velora/internal/lifecycle"
	"velora/internal/metrics"
	"velora/internal/models"
	"velora/internal/notify"
	"velora/internal/payment"
	"velora/internal/remind"
	"velora/internal/store"
	"velora/internal/voucher"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg("no .env file, relying on the environment")
	}

	cfg, err := config.Load(os.Getenv("VELORA_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	records := store.New(db, &logger)
	directory := clients.New(db, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Reference data comes from catalog.yaml and is re-synced on edit.
	catalogPath := os.Getenv("VELORA_CATALOG_PATH")
	err = config.WatchCatalog(ctx, catalogPath, 0, func(cat *config.CatalogConfig) {
		if err := records.SyncCenters(ctx, cat.ModelCenters()); err != nil {
			logger.Error().Err(err).Msg("sync centers failed")
			return
		}
		if err := records.SyncLanes(ctx, cat.ModelLanes()); err != nil {
			logger.Error().Err(err).Msg("sync lanes failed")
			return
		}
		if err := records.SyncServices(ctx, cat.ModelServices()); err != nil {
			logger.Error().Err(err).Msg("sync services failed")
			return
		}
		logger.Info().Str("catalog", cat.String()).Msg("reference data synced")
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("load catalog error")
	}

	var (
		bus    *events.RedisBus
		pub    engine.Publisher
		apiBus api.Pinger
	)
	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		bus = events.NewRedisBus(rdb, &logger)
		pub = bus
		apiBus = bus
	} else {
		pub = events.NewLocalBus()
	}

	var redeemer engine.Redeemer
	if cfg.Voucher.BaseURL != "" {
		redeemer = voucher.NewClient(cfg.Voucher.BaseURL, cfg.Voucher.APIKey)
	}

	rules := engine.Rules{
		MinAdvance: cfg.BookingMinAdvance(),
		MaxAdvance: cfg.BookingMaxAdvance(),
	}
	eng := engine.New(records, directory, redeemer, pub, rules, &logger)

	notifier := notify.New(nil, cfg.Telegram.OperatorChatID, cfg.SMTP, &logger)
	if cfg.Telegram.BotToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Fatal().Err(err).Msg("create bot error")
		}
		notifier = notify.New(bot, cfg.Telegram.OperatorChatID, cfg.SMTP, &logger)
	}

	var gateway lifecycle.Gateway
	if cfg.Payment.BaseURL != "" {
		gateway = payment.NewClient(cfg.Payment.BaseURL, cfg.Payment.APIKey)
	}
	charger := lifecycle.NewService(records, gateway, notifier, &logger)

	if cfg.Backup.Enabled {
		backup := store.NewBackup(cfg.Database.Path, store.BackupConfig{
			Enabled:       true,
			Interval:      time.Duration(cfg.Backup.IntervalHours) * time.Hour,
			Dir:           cfg.Backup.Path,
			RetentionDays: cfg.Backup.RetentionDays,
		}, &logger)
		go backup.Run(ctx)
	}

	if cfg.Reminders.Enabled {
		reminders := remind.New(records, notifier, cfg.ReminderLead(), cfg.ReminderInterval(), &logger)
		go reminders.Run(ctx)
	}

	if cfg.Sheets.Enabled {
		sheets, err := export.NewSheetsService(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("create sheets service error")
		}
		go pushDaily(ctx, records, sheets, &logger)
	}

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
	}

	server := api.NewServer(records, eng, charger, apiBus, &logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: server.Routes(),
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", cfg.HTTP.Port).Msg("velora started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("http server error")
	}
}

// pushDaily mirrors today's schedule of every center to the spreadsheet once
// an hour.
func pushDaily(ctx context.Context, records *store.Store, sheets *export.SheetsService, logger *zerolog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		pushToday(ctx, records, sheets, logger)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func pushToday(ctx context.Context, records *store.Store, sheets *export.SheetsService, logger *zerolog.Logger) {
	now := time.Now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	centers, err := records.ListCenters(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("list centers for sheets push failed")
		return
	}
	services, err := records.ListServices(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("list services for sheets push failed")
		return
	}
	svcByID := make(map[int64]models.Service, len(services))
	for _, svc := range services {
		svcByID[svc.ID] = svc
	}

	for _, center := range centers {
		lanes, err := records.ListLanes(ctx, center.ID)
		if err != nil {
			logger.Error().Err(err).Int64("center", center.ID).Msg("list lanes for sheets push failed")
			continue
		}
		bookings, err := records.ListBookings(ctx, center.ID, day)
		if err != nil {
			logger.Error().Err(err).Int64("center", center.ID).Msg("list bookings for sheets push failed")
			continue
		}
		blocks, err := records.ListBlocks(ctx, center.ID, day)
		if err != nil {
			logger.Error().Err(err).Int64("center", center.ID).Msg("list blocks for sheets push failed")
			continue
		}

		ds := export.DaySchedule{
			Date:     day.Format("2006-01-02"),
			Lanes:    lanes,
			Bookings: bookings,
			Blocks:   blocks,
			Services: svcByID,
		}
		if err := sheets.PushDay(ctx, ds); err != nil {
			logger.Error().Err(err).Int64("center", center.ID).Msg("sheets push failed")
		}
	}
}
