package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/omriShneor/realtor_assistant/internal/database"
	"github.com/omriShneor/realtor_assistant/internal/timeutil"
)

// Header is the first row of the appointments sheet.
var Header = []string{"id", "type", "date", "time", "clientName", "phone", "status"}

// Row is one appointment as it appears in the sheet
type Row struct {
	ID         string
	Type       string
	Date       string
	Time       string
	ClientName string
	Phone      string
	Status     string
}

// Sheet is the spreadsheet boundary the synchronizer reconciles against.
// Rows are keyed by ID; UpsertRow and DeleteRow are idempotent.
type Sheet interface {
	EnsureHeader(ctx context.Context) error
	ListRows(ctx context.Context) ([]Row, error)
	UpsertRow(ctx context.Context, row Row) error
	DeleteRow(ctx context.Context, id string) error
}

// RowFor renders an appointment in the realtor's time zone.
func RowFor(a database.Appointment, loc *time.Location) Row {
	if loc == nil {
		loc = time.UTC
	}
	start := a.StartTime.In(loc)
	return Row{
		ID:         a.ID,
		Type:       string(a.Type),
		Date:       timeutil.FormatDate(start),
		Time:       timeutil.FormatClock(start),
		ClientName: a.PartyName,
		Phone:      a.ConversationID,
		Status:     string(a.Status),
	}
}

// Equal compares rows ignoring surrounding whitespace and status case.
func (r Row) Equal(o Row) bool {
	return strings.TrimSpace(r.ID) == strings.TrimSpace(o.ID) &&
		strings.TrimSpace(r.Type) == strings.TrimSpace(o.Type) &&
		strings.TrimSpace(r.Date) == strings.TrimSpace(o.Date) &&
		strings.TrimSpace(r.Time) == strings.TrimSpace(o.Time) &&
		strings.TrimSpace(r.ClientName) == strings.TrimSpace(o.ClientName) &&
		strings.TrimSpace(r.Phone) == strings.TrimSpace(o.Phone) &&
		strings.EqualFold(strings.TrimSpace(r.Status), strings.TrimSpace(o.Status))
}

// IsDone reports whether the realtor marked the row finished.
func (r Row) IsDone() bool {
	status, ok := database.ParseStatus(r.Status)
	return ok && status == database.StatusDone
}

func (r Row) values() []interface{} {
	return []interface{}{r.ID, r.Type, r.Date, r.Time, r.ClientName, r.Phone, r.Status}
}

func rowFromValues(values []interface{}) Row {
	cell := func(i int) string {
		if i >= len(values) || values[i] == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(values[i]))
	}
	return Row{
		ID:         cell(0),
		Type:       cell(1),
		Date:       cell(2),
		Time:       cell(3),
		ClientName: cell(4),
		Phone:      cell(5),
		Status:     cell(6),
	}
}
