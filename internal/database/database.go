package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/omriShneor/realtor_assistant/internal/conflict"
	"github.com/omriShneor/realtor_assistant/internal/database/migrations"
)

var (
	// ErrNotFound is returned when a record addressed by id does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrOverlap is returned when the store's overlap guard rejects a write.
	ErrOverlap = errors.New("appointment overlaps an active booking")
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type DB struct {
	*sql.DB
	appointments
}

// Tx is one store transaction. It exposes the appointment operations only;
// the conversation ledger is always written outside of booking transactions.
type Tx struct {
	tx *sql.Tx
	appointments
}

func New(dbPath string) (*DB, error) {
	// WAL for concurrent readers, busy timeout to wait instead of failing,
	// and immediate transactions so a booking's check and write hold the write lock together.
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DB{
		DB:           db,
		appointments: appointments{q: db, engine: conflict.New(conflict.DefaultBuffer)},
	}, nil
}

func (d *DB) Close() error {
	return d.DB.Close()
}

// InTx runs fn inside one immediate transaction. fn's error rolls the transaction back.
func (d *DB) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classify(err))
	}

	tx := &Tx{
		tx:           sqlTx,
		appointments: appointments{q: sqlTx, engine: d.engine},
	}

	if err := fn(tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}
	return nil
}

// IsRetryable reports errors that may succeed when the turn re-runs its check:
// the overlap guard and SQLite lock contention.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrOverlap) {
		return true
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

// classify maps driver errors raised by the overlap triggers onto ErrOverlap.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintTrigger &&
		strings.Contains(se.Error(), migrations.OverlapMessage) {
		return fmt.Errorf("%w: %v", ErrOverlap, err)
	}
	if strings.Contains(err.Error(), migrations.OverlapMessage) {
		return fmt.Errorf("%w: %v", ErrOverlap, err)
	}
	return err
}
