// Package main provides a local server for trying conversations end to end.
// It runs with in-memory SQLite, the configured language model, and an
// in-memory spreadsheet instead of Google Sheets.
//
// Usage:
//
//	GEMINI_API_KEY=... go run ./cmd/testserver
//
// The server exposes additional test control endpoints:
//   - GET  /api/test/sheet - List the in-memory sheet rows
//   - POST /api/test/sheet/{id}/status - Edit a row's status the way the realtor would
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/omriShneor/realtor_assistant/internal/config"
	"github.com/omriShneor/realtor_assistant/internal/database"
	"github.com/omriShneor/realtor_assistant/internal/extractor"
	"github.com/omriShneor/realtor_assistant/internal/logging"
	"github.com/omriShneor/realtor_assistant/internal/notify"
	"github.com/omriShneor/realtor_assistant/internal/router"
	"github.com/omriShneor/realtor_assistant/internal/server"
	"github.com/omriShneor/realtor_assistant/internal/sheets"
	"github.com/omriShneor/realtor_assistant/internal/testutil"
	"github.com/omriShneor/realtor_assistant/internal/timeutil"
)

func main() {
	cfg := config.LoadFromEnv()
	log := logging.New(cfg.LogLevel, true)
	loc, _ := timeutil.ResolveLocation(cfg.Timezone)

	db, err := database.New(":memory:")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create database")
	}
	defer db.Close()

	parser := extractor.NewParser(loc, time.Duration(cfg.DefaultDurationMinutes)*time.Minute)
	var ext extractor.Extractor
	switch {
	case cfg.ExtractorProvider == "claude" && cfg.AnthropicAPIKey != "":
		ext = extractor.NewClaude(extractor.ClaudeOptions{
			APIKey:      cfg.AnthropicAPIKey,
			Model:       cfg.ClaudeModel,
			Temperature: cfg.ExtractorTemperature,
			RealtorName: cfg.RealtorName,
			Location:    loc,
			Parser:      parser,
		})
	case cfg.GeminiAPIKey != "":
		ext, err = extractor.NewGemini(context.Background(), extractor.GeminiOptions{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.ExtractorTemperature,
			RealtorName: cfg.RealtorName,
			Location:    loc,
			Parser:      parser,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create gemini extractor")
		}
	default:
		log.Fatal().Msg("GEMINI_API_KEY or ANTHROPIC_API_KEY (with EXTRACTOR_PROVIDER=claude) is required")
	}

	sheet := testutil.NewMockSheet()
	worker := sheets.NewWorker(sheets.NewSynchronizer(db, sheet, loc, log), sheets.WorkerConfig{PollInterval: cfg.SheetSyncInterval}, log)
	worker.Start()

	notifyService := notify.NewService(nil, "", log)

	rt := router.New(db, ext, log, router.Options{
		ContextTurns:      cfg.ContextTurns,
		RealtorName:       cfg.RealtorName,
		Location:          loc,
		ExtractionTimeout: cfg.ExtractionTimeout,
		DefaultDuration:   time.Duration(cfg.DefaultDurationMinutes) * time.Minute,
		Notifier:          notifyService,
		Sync:              worker,
	})

	srv := server.New(server.Config{
		DB:    db,
		Turns: rt,
		Sync:  worker,
		Port:  cfg.HTTPPort,
		Log:   log,
	})

	testMux := http.NewServeMux()
	testMux.HandleFunc("GET /api/test/sheet", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, sheet.Rows())
	})
	testMux.HandleFunc("POST /api/test/sheet/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		sheet.SetStatus(r.PathValue("id"), req.Status)
		respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	})
	testMux.Handle("/", srv.Handler())

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: testMux,
	}

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("test server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Info().Msg("shutting down test server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpSrv.Shutdown(ctx)
	worker.Stop()
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
