package sheets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/omriShneor/realtor_assistant/internal/database"
)

// Result counts the writes one run performed
type Result struct {
	RowsUpserted   int `json:"rows_upserted"`
	RowsDeleted    int `json:"rows_deleted"`
	RecordsDeleted int `json:"records_deleted"`
}

// Writes is the total number of writes in the run.
func (r Result) Writes() int {
	return r.RowsUpserted + r.RowsDeleted + r.RecordsDeleted
}

// Synchronizer reconciles the appointment store with the sheet. The store is
// authoritative except for DONE, which the realtor sets in the sheet.
type Synchronizer struct {
	db    *database.DB
	sheet Sheet
	loc   *time.Location
	log   zerolog.Logger

	mu            sync.Mutex
	headerEnsured bool
}

func NewSynchronizer(db *database.DB, sheet Sheet, loc *time.Location, log zerolog.Logger) *Synchronizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Synchronizer{
		db:    db,
		sheet: sheet,
		loc:   loc,
		log:   log.With().Str("component", "sheets").Logger(),
	}
}

// Run performs one reconciliation pass. Runs never overlap. Individual write
// failures do not stop the pass; they are joined into the returned error and
// retried by the next run.
func (s *Synchronizer) Run(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result Result

	if !s.headerEnsured {
		if err := s.sheet.EnsureHeader(ctx); err != nil {
			return result, fmt.Errorf("failed to ensure sheet header: %w", err)
		}
		s.headerEnsured = true
	}

	records, err := s.db.ListAppointments(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to snapshot appointments: %w", err)
	}
	rows, err := s.sheet.ListRows(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list sheet rows: %w", err)
	}

	byID := make(map[string]database.Appointment, len(records))
	for _, a := range records {
		byID[a.ID] = a
	}
	rowsByID := make(map[string]Row, len(rows))
	for _, r := range rows {
		rowsByID[r.ID] = r
	}

	var errs []error
	handled := make(map[string]bool)

	// Rows the realtor marked DONE: drop the record, then the row.
	for _, row := range rows {
		if !row.IsDone() || handled[row.ID] {
			continue
		}
		handled[row.ID] = true

		if _, ok := byID[row.ID]; ok {
			if err := s.db.DeleteAppointment(ctx, row.ID); err != nil {
				errs = append(errs, fmt.Errorf("failed to delete record %s: %w", row.ID, err))
				continue
			}
			result.RecordsDeleted++
		}
		if err := s.sheet.DeleteRow(ctx, row.ID); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete row %s: %w", row.ID, err))
			continue
		}
		result.RowsDeleted++
		s.log.Info().Str("appointment_id", row.ID).Msg("removed appointment marked done in sheet")
	}

	// Records marked DONE in the store: drop any row, then the record. The
	// DONE record is the only trace of the row, so it goes last.
	for _, a := range records {
		if a.Status != database.StatusDone || handled[a.ID] {
			continue
		}
		handled[a.ID] = true

		if _, ok := rowsByID[a.ID]; ok {
			if err := s.sheet.DeleteRow(ctx, a.ID); err != nil {
				errs = append(errs, fmt.Errorf("failed to delete row %s: %w", a.ID, err))
				continue
			}
			result.RowsDeleted++
		}

		if err := s.db.DeleteAppointment(ctx, a.ID); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete record %s: %w", a.ID, err))
			continue
		}
		result.RecordsDeleted++
		s.log.Info().Str("appointment_id", a.ID).Msg("removed appointment marked done")
	}

	// Everything else: push rows that are missing or stale.
	for _, a := range records {
		if handled[a.ID] {
			continue
		}
		want := RowFor(a, s.loc)
		if have, ok := rowsByID[a.ID]; ok && have.Equal(want) {
			continue
		}
		if err := s.sheet.UpsertRow(ctx, want); err != nil {
			errs = append(errs, fmt.Errorf("failed to upsert row %s: %w", a.ID, err))
			continue
		}
		result.RowsUpserted++
	}

	if err := errors.Join(errs...); err != nil {
		return result, err
	}
	return result, nil
}
