package sheets

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	stopWaitTimeout = 5 * time.Second
	initialDelay    = 5 * time.Second
)

// Worker runs the synchronizer on a schedule and on demand.
type Worker struct {
	sync         *Synchronizer
	pollInterval time.Duration
	log          zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	trigger chan struct{}
}

// WorkerConfig contains configuration for the sheet sync worker.
type WorkerConfig struct {
	PollInterval time.Duration
}

// NewWorker creates a new sheet sync worker.
func NewWorker(s *Synchronizer, config WorkerConfig, log zerolog.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	pollInterval := config.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}

	return &Worker{
		sync:         s,
		pollInterval: pollInterval,
		log:          log.With().Str("component", "sheets_worker").Logger(),
		ctx:          ctx,
		cancel:       cancel,
		trigger:      make(chan struct{}, 1),
	}
}

// Start begins the periodic sync loop.
func (w *Worker) Start() {
	w.log.Info().Dur("interval", w.pollInterval).Msg("starting sheet sync worker")

	w.wg.Add(1)
	go w.pollLoop()
}

// Stop gracefully shuts down the worker.
func (w *Worker) Stop() {
	w.log.Info().Msg("stopping sheet sync worker")
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.log.Info().Msg("sheet sync worker stopped")
	case <-time.After(stopWaitTimeout):
		w.log.Warn().Dur("timeout", stopWaitTimeout).Msg("sheet sync worker stop timed out; continuing shutdown")
	}
}

// PollNow requests a sync as soon as the current one (if any) finishes.
// Requests made while one is already pending are coalesced.
func (w *Worker) PollNow() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// RunNow performs a sync synchronously and returns its result.
func (w *Worker) RunNow(ctx context.Context) (Result, error) {
	return w.sync.Run(ctx)
}

func (w *Worker) pollLoop() {
	defer w.wg.Done()

	// Do an initial poll after a short delay so startup path is not blocked.
	select {
	case <-w.ctx.Done():
		return
	case <-time.After(initialDelay):
	case <-w.trigger:
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.poll()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		case <-w.trigger:
			w.poll()
		}
	}
}

func (w *Worker) poll() {
	result, err := w.sync.Run(w.ctx)
	if err != nil {
		event := w.log.Error().Err(err)
		if IsNotFound(err) {
			event = event.Bool("spreadsheet_not_found", true)
		}
		event.Int("writes", result.Writes()).Msg("sheet sync failed, will retry next run")
		return
	}
	if result.Writes() > 0 {
		w.log.Info().
			Int("rows_upserted", result.RowsUpserted).
			Int("rows_deleted", result.RowsDeleted).
			Int("records_deleted", result.RecordsDeleted).
			Msg("sheet sync complete")
	}
}
