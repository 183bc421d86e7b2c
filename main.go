package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/omriShneor/realtor_assistant/internal/config"
	"github.com/omriShneor/realtor_assistant/internal/database"
	"github.com/omriShneor/realtor_assistant/internal/extractor"
	"github.com/omriShneor/realtor_assistant/internal/logging"
	"github.com/omriShneor/realtor_assistant/internal/notify"
	"github.com/omriShneor/realtor_assistant/internal/router"
	"github.com/omriShneor/realtor_assistant/internal/server"
	"github.com/omriShneor/realtor_assistant/internal/sheets"
	"github.com/omriShneor/realtor_assistant/internal/timeutil"
	"github.com/omriShneor/realtor_assistant/internal/whatsapp"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.LoadFromEnv()
	log := logging.New(cfg.LogLevel, cfg.LogPretty)

	loc, fellBack := timeutil.ResolveLocation(cfg.Timezone)
	if fellBack && cfg.Timezone != "" {
		log.Warn().Str("timezone", cfg.Timezone).Msg("unknown timezone, using UTC")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Phase 1: Core infrastructure
	db, err := initDatabase(cfg)
	if err != nil {
		fatal(log, "creating database", err)
	}
	defer db.Close()

	ext, err := initExtractor(ctx, cfg, loc)
	if err != nil {
		fatal(log, "configuring extractor", err)
	}
	log.Info().Str("provider", cfg.ExtractorProvider).Msg("extractor configured")

	notifyService := initNotifyService(cfg, loc, log)
	sheetWorker := initSheetSync(ctx, db, cfg, loc, log)

	// Phase 2: Turn router
	opts := router.Options{
		ContextTurns:      cfg.ContextTurns,
		RealtorName:       cfg.RealtorName,
		Location:          loc,
		ExtractionTimeout: cfg.ExtractionTimeout,
		DefaultDuration:   time.Duration(cfg.DefaultDurationMinutes) * time.Minute,
		Notifier:          notifyService,
	}
	if sheetWorker != nil {
		opts.Sync = sheetWorker
	}
	rt := router.New(db, ext, log, opts)

	// Phase 3: Transports
	waClient, waHandler := initWhatsApp(ctx, cfg, rt, log)

	srvCfg := server.Config{
		DB:    db,
		Turns: rt,
		Port:  cfg.HTTPPort,
		Log:   log,
	}
	if sheetWorker != nil {
		srvCfg.Sync = sheetWorker
	}
	if waClient != nil {
		srvCfg.WhatsApp = waClient
	}
	srv := server.New(srvCfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if waClient != nil {
			waClient.Disconnect()
			waHandler.Wait()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http server shutdown")
		}
		if sheetWorker != nil {
			sheetWorker.Stop()
		}
		notifyService.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		fatal(log, "running", err)
	}
}

func initDatabase(cfg *config.Config) (*database.DB, error) {
	return database.New(cfg.DBPath)
}

func initExtractor(ctx context.Context, cfg *config.Config, loc *time.Location) (extractor.Extractor, error) {
	parser := extractor.NewParser(loc, time.Duration(cfg.DefaultDurationMinutes)*time.Minute)

	switch cfg.ExtractorProvider {
	case "claude":
		claude := extractor.NewClaude(extractor.ClaudeOptions{
			APIKey:      cfg.AnthropicAPIKey,
			Model:       cfg.ClaudeModel,
			Temperature: cfg.ExtractorTemperature,
			RealtorName: cfg.RealtorName,
			Location:    loc,
			Parser:      parser,
		})
		if !claude.IsConfigured() {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the claude provider")
		}
		return claude, nil
	case "gemini", "":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
		return extractor.NewGemini(ctx, extractor.GeminiOptions{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.ExtractorTemperature,
			RealtorName: cfg.RealtorName,
			Location:    loc,
			Parser:      parser,
		})
	default:
		return nil, fmt.Errorf("unknown EXTRACTOR_PROVIDER %q", cfg.ExtractorProvider)
	}
}

func initNotifyService(cfg *config.Config, loc *time.Location, log zerolog.Logger) *notify.Service {
	emailNotifier := notify.NewResendNotifier(cfg.ResendAPIKey, cfg.EmailFrom, loc)
	service := notify.NewService(emailNotifier, cfg.RealtorEmail, log)
	if service.IsEmailAvailable() {
		log.Info().Msg("email notification service configured (Resend)")
	} else {
		log.Info().Msg("email notifications disabled (RESEND_API_KEY and REALTOR_EMAIL required)")
	}
	return service
}

func initSheetSync(ctx context.Context, db *database.DB, cfg *config.Config, loc *time.Location, log zerolog.Logger) *sheets.Worker {
	if !cfg.SheetSyncEnabled() {
		log.Info().Msg("sheet sync: not configured (SHEET_ID required)")
		return nil
	}

	credentials, err := sheets.ServiceAccountOption(ctx, cfg.GoogleServiceAccountFile)
	if err != nil {
		log.Warn().Err(err).Msg("sheet sync disabled: could not load service account")
		return nil
	}

	client, err := sheets.NewClient(ctx, cfg.SheetID, cfg.SheetName, credentials)
	if err != nil {
		log.Warn().Err(err).Msg("sheet sync disabled: could not create sheets client")
		return nil
	}

	synchronizer := sheets.NewSynchronizer(db, client, loc, log)
	worker := sheets.NewWorker(synchronizer, sheets.WorkerConfig{PollInterval: cfg.SheetSyncInterval}, log)
	worker.Start()
	return worker
}

func initWhatsApp(ctx context.Context, cfg *config.Config, turns whatsapp.TurnHandler, log zerolog.Logger) (*whatsapp.Client, *whatsapp.Handler) {
	if !cfg.WhatsAppEnabled {
		return nil, nil
	}

	handler := whatsapp.NewHandler(turns, log)
	client, err := whatsapp.NewClient(handler, cfg.WhatsAppDBPath, log)
	if err != nil {
		log.Warn().Err(err).Msg("WhatsApp transport disabled")
		return nil, nil
	}

	if err := client.Connect(ctx); err != nil {
		log.Warn().Err(err).Msg("WhatsApp failed to connect")
	} else if !client.IsLoggedIn() {
		log.Info().Int("port", cfg.HTTPPort).Msg("WhatsApp needs pairing, scan the QR from /api/whatsapp/qr")
	}

	return client, handler
}

func fatal(log zerolog.Logger, context string, err error) {
	log.Error().Err(err).Msgf("error %s", context)
	os.Exit(1)
}
