package testutil

import (
	"context"
	"sync"

	"github.com/omriShneor/realtor_assistant/internal/sheets"
)

// MockSheet simulates the appointments spreadsheet in memory
type MockSheet struct {
	mu           sync.Mutex
	header       bool
	rows         []sheets.Row
	upserts      int
	deletes      int
	failUpsert   error
	failDelete   error
	failList     error
	headerWrites int
}

// NewMockSheet creates an empty mock sheet
func NewMockSheet() *MockSheet {
	return &MockSheet{}
}

// EnsureHeader records that the header row exists
func (m *MockSheet) EnsureHeader(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.header {
		m.header = true
		m.headerWrites++
	}
	return nil
}

// ListRows returns a copy of the rows
func (m *MockSheet) ListRows(ctx context.Context) ([]sheets.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList != nil {
		return nil, m.failList
	}
	return append([]sheets.Row{}, m.rows...), nil
}

// UpsertRow replaces the row with the same id or appends it
func (m *MockSheet) UpsertRow(ctx context.Context, row sheets.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpsert != nil {
		return m.failUpsert
	}
	m.upserts++
	for i := range m.rows {
		if m.rows[i].ID == row.ID {
			m.rows[i] = row
			return nil
		}
	}
	m.rows = append(m.rows, row)
	return nil
}

// DeleteRow removes the row with the given id, if present
func (m *MockSheet) DeleteRow(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete != nil {
		return m.failDelete
	}
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			m.deletes++
			return nil
		}
	}
	return nil
}

// SetStatus edits a row's status the way the realtor would by hand
func (m *MockSheet) SetStatus(id, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].Status = status
		}
	}
}

// AddRow inserts a row directly, bypassing the write counters
func (m *MockSheet) AddRow(row sheets.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
}

// Rows returns a copy of the current rows
func (m *MockSheet) Rows() []sheets.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sheets.Row{}, m.rows...)
}

// Writes returns the number of upserts and effective deletes performed
func (m *MockSheet) Writes() (upserts, deletes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts, m.deletes
}

// HeaderWrites returns how many times the header was written
func (m *MockSheet) HeaderWrites() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.headerWrites
}

// FailUpserts makes every UpsertRow return err (nil to recover)
func (m *MockSheet) FailUpserts(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failUpsert = err
}

// FailDeletes makes every DeleteRow return err (nil to recover)
func (m *MockSheet) FailDeletes(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failDelete = err
}

// FailList makes ListRows return err (nil to recover)
func (m *MockSheet) FailList(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failList = err
}
