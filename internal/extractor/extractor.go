package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/omriShneor/realtor_assistant/internal/database"
)

var (
	// ErrUnavailable covers timeouts, transport failures and provider API errors.
	ErrUnavailable = errors.New("extraction unavailable")
	// ErrUnparseable is returned when the model output is not the expected JSON.
	ErrUnparseable = errors.New("extraction output unparseable")
)

// Extractor turns a conversation turn into a reply and an optional candidate.
type Extractor interface {
	Extract(ctx context.Context, req Request) (*Extraction, error)
}

// Request is the input to one extraction call
type Request struct {
	ConversationID string
	Turns          []database.ConversationTurn
	Appointments   []database.Appointment
	Text           string
	Now            time.Time
}

// Extraction is the structured result of one call
type Extraction struct {
	Reply          string
	Candidate      *Candidate
	IsCancellation bool
}

// MaxDuration bounds a requested appointment length. Longer requests are
// treated as unspecified.
const MaxDuration = 12 * time.Hour

// Candidate is a possibly-incomplete appointment request. Fields the model did
// not provide stay zero or nil.
type Candidate struct {
	PartyName           string
	Type                database.AppointmentType
	Date                *time.Time
	Start               *time.Time
	Duration            time.Duration
	TargetAppointmentID string
}

// Complete reports whether the candidate carries everything needed to book.
func (c *Candidate) Complete() bool {
	return c != nil && c.PartyName != "" && c.Start != nil && c.Type.Bookable()
}

// Missing lists the fields still needed to book, in the order they are asked for.
func (c *Candidate) Missing() []string {
	if c == nil {
		return []string{"name", "appointment type", "date", "time"}
	}
	var missing []string
	if c.PartyName == "" {
		missing = append(missing, "name")
	}
	if !c.Type.Bookable() {
		missing = append(missing, "appointment type")
	}
	if c.Date == nil && c.Start == nil {
		missing = append(missing, "date")
	}
	if c.Start == nil {
		missing = append(missing, "time")
	}
	return missing
}

// Guard bounds an extractor with a timeout and converts panics into ErrUnavailable,
// so callers always get either a value or a classified error.
type Guard struct {
	next    Extractor
	timeout time.Duration
}

func NewGuard(next Extractor, timeout time.Duration) *Guard {
	return &Guard{next: next, timeout: timeout}
}

func (g *Guard) Extract(ctx context.Context, req Request) (*Extraction, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	type outcome struct {
		extraction *Extraction
		err        error
	}
	done := make(chan outcome, 1)
	panicked := make(chan any, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				panicked <- r
			}
		}()
		e, err := g.next.Extract(ctx, req)
		done <- outcome{e, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	case r := <-panicked:
		return nil, fmt.Errorf("%w: provider panicked: %v", ErrUnavailable, r)
	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, ErrUnavailable) || errors.Is(out.err, ErrUnparseable) {
				return nil, out.err
			}
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, out.err)
		}
		if out.extraction == nil {
			return nil, fmt.Errorf("%w: empty extraction", ErrUnparseable)
		}
		return out.extraction, nil
	}
}
