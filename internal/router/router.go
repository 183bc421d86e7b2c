package router

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/omriShneor/realtor_assistant/internal/conflict"
	"github.com/omriShneor/realtor_assistant/internal/database"
	"github.com/omriShneor/realtor_assistant/internal/extractor"
	"github.com/omriShneor/realtor_assistant/internal/timeutil"
)

const tracerName = "github.com/omriShneor/realtor_assistant/internal/router"

// Route names the terminal branch a turn took
type Route string

const (
	RouteExtractionFailed Route = "extraction_failed"
	RouteCancelled        Route = "cancelled"
	RouteNothingToCancel  Route = "nothing_to_cancel"
	RouteClarify          Route = "clarify"
	RouteConflict         Route = "conflict"
	RouteBooked           Route = "booked"
	RouteAlreadyBooked    Route = "already_booked"
	RouteStoreFailure     Route = "store_failure"
)

// Inbound is one message as received from the transport
type Inbound struct {
	From       string
	Body       string
	ReceivedAt time.Time
}

// TurnResult is what the transport sends back, plus the decision taken
type TurnResult struct {
	Reply       string
	Route       Route
	Appointment *database.Appointment
}

// Notifier is told about appointment changes after they are committed.
type Notifier interface {
	AppointmentBooked(ctx context.Context, a database.Appointment)
	AppointmentCancelled(ctx context.Context, a database.Appointment)
}

// SyncTrigger requests an out-of-schedule sheet sync.
type SyncTrigger interface {
	PollNow()
}

// Options configures a Router
type Options struct {
	ContextTurns      int
	RealtorName       string
	Location          *time.Location
	ExtractionTimeout time.Duration
	DefaultDuration   time.Duration
	Notifier          Notifier
	Sync              SyncTrigger
	Now               func() time.Time
}

// Router runs the per-turn state machine
type Router struct {
	db           *database.DB
	extractor    extractor.Extractor
	log          zerolog.Logger
	locks        *keyedMutex
	tracer       trace.Tracer
	contextTurns int
	duration     time.Duration
	realtorName  string
	loc          *time.Location
	notifier     Notifier
	sync         SyncTrigger
	now          func() time.Time
}

// New creates a Router. The extractor is wrapped in an extractor.Guard bounded by
// opts.ExtractionTimeout.
func New(db *database.DB, ext extractor.Extractor, log zerolog.Logger, opts Options) *Router {
	if opts.ContextTurns <= 0 {
		opts.ContextTurns = 6
	}
	if opts.RealtorName == "" {
		opts.RealtorName = "Sherri"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.ExtractionTimeout <= 0 {
		opts.ExtractionTimeout = 20 * time.Second
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Router{
		db:           db,
		extractor:    extractor.NewGuard(ext, opts.ExtractionTimeout),
		log:          log.With().Str("component", "router").Logger(),
		locks:        newKeyedMutex(),
		tracer:       otel.Tracer(tracerName),
		contextTurns: opts.ContextTurns,
		duration:     opts.DefaultDuration,
		realtorName:  opts.RealtorName,
		loc:          opts.Location,
		notifier:     opts.Notifier,
		sync:         opts.Sync,
		now:          opts.Now,
	}
}

// NormalizeSender turns a transport sender id into a conversation id.
func NormalizeSender(from string) string {
	from = strings.TrimSpace(from)
	from = strings.TrimPrefix(from, "whatsapp:")
	return strings.TrimSpace(from)
}

// HandleTurn processes one inbound message and always returns a reply.
// Turns from the same sender run one at a time.
func (r *Router) HandleTurn(ctx context.Context, in Inbound) TurnResult {
	conversationID := NormalizeSender(in.From)
	if conversationID == "" {
		return TurnResult{Reply: genericErrorReply, Route: RouteStoreFailure}
	}
	if in.ReceivedAt.IsZero() {
		in.ReceivedAt = r.now()
	}

	unlock := r.locks.Lock(conversationID)
	defer unlock()

	ctx, span := r.tracer.Start(ctx, "router.HandleTurn",
		trace.WithAttributes(attribute.String("conversation.id", conversationID)))
	defer span.End()

	log := r.log.With().Str("conversation_id", conversationID).Logger()

	result := r.decide(ctx, log, conversationID, in)
	result.Reply = capReply(result.Reply)

	if err := r.db.AppendTurn(ctx, &database.ConversationTurn{
		ConversationID: conversationID,
		Direction:      database.DirectionOutbound,
		Text:           result.Reply,
		Timestamp:      r.now(),
	}); err != nil {
		log.Error().Err(err).Msg("failed to append outbound turn")
		span.RecordError(err)
	}

	span.SetAttributes(attribute.String("turn.route", string(result.Route)))
	if result.Route == RouteStoreFailure {
		span.SetStatus(codes.Error, "store failure")
	}
	log.Info().Str("route", string(result.Route)).Msg("turn handled")

	return result
}

func (r *Router) decide(ctx context.Context, log zerolog.Logger, conversationID string, in Inbound) TurnResult {
	history, err := r.db.RecentTurns(ctx, conversationID, r.contextTurns)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load conversation history, continuing without it")
		history = nil
	}

	if err := r.db.AppendTurn(ctx, &database.ConversationTurn{
		ConversationID: conversationID,
		Direction:      database.DirectionInbound,
		Text:           in.Body,
		Timestamp:      in.ReceivedAt,
	}); err != nil {
		log.Error().Err(err).Msg("failed to append inbound turn")
		return TurnResult{Reply: genericErrorReply, Route: RouteStoreFailure}
	}

	active, err := r.db.ListActiveAppointmentsByConversation(ctx, conversationID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load active appointments for context")
		active = nil
	}

	extraction, err := r.extractor.Extract(ctx, extractor.Request{
		ConversationID: conversationID,
		Turns:          history,
		Appointments:   active,
		Text:           in.Body,
		Now:            in.ReceivedAt,
	})
	if err != nil {
		log.Warn().Err(err).
			Bool("unavailable", errors.Is(err, extractor.ErrUnavailable)).
			Bool("unparseable", errors.Is(err, extractor.ErrUnparseable)).
			Msg("extraction failed")
		return TurnResult{Reply: genericErrorReply, Route: RouteExtractionFailed}
	}

	if extraction.IsCancellation {
		return r.cancel(ctx, log, conversationID, extraction.Candidate)
	}

	candidate := extraction.Candidate
	if !candidate.Complete() {
		return TurnResult{Reply: clarifyReply(extraction), Route: RouteClarify}
	}
	if candidate.Start.Before(r.now()) {
		return TurnResult{Reply: pastTimeReply, Route: RouteClarify}
	}

	return r.book(ctx, log, conversationID, candidate)
}

// book checks the candidate and writes it in one transaction. Overlap-guard and
// lock errors get one fresh attempt.
func (r *Router) book(ctx context.Context, log zerolog.Logger, conversationID string, c *extractor.Candidate) TurnResult {
	duration := c.Duration
	if duration <= 0 || duration > extractor.MaxDuration {
		duration = r.duration
	}
	iv := conflict.NewInterval(*c.Start, duration)

	var (
		result TurnResult
		err    error
	)
	for attempt := 0; attempt < 2; attempt++ {
		result, err = r.tryBook(ctx, conversationID, c, iv)
		if err == nil || !database.IsRetryable(err) {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt+1).Msg("booking write contended, retrying")
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to book appointment")
		return TurnResult{Reply: genericErrorReply, Route: RouteStoreFailure}
	}

	switch result.Route {
	case RouteBooked:
		log.Info().Str("appointment_id", result.Appointment.ID).Msg("appointment booked")
		if r.notifier != nil {
			r.notifier.AppointmentBooked(ctx, *result.Appointment)
		}
		if r.sync != nil {
			r.sync.PollNow()
		}
	case RouteConflict:
		log.Info().Str("conflicts_with", result.Appointment.ID).Msg("requested slot conflicts")
		// The colliding appointment may belong to another client.
		result.Appointment = nil
	}
	return result
}

func (r *Router) tryBook(ctx context.Context, conversationID string, c *extractor.Candidate, iv conflict.Interval) (TurnResult, error) {
	var result TurnResult
	err := r.db.InTx(ctx, func(tx *database.Tx) error {
		clash, err := tx.FindActiveOverlap(ctx, iv, "")
		if err != nil {
			return err
		}
		if clash != nil {
			if sameBooking(clash, conversationID, c, iv) {
				result = TurnResult{Reply: r.confirmationReply(clash), Route: RouteAlreadyBooked, Appointment: clash}
			} else {
				result = TurnResult{Reply: r.conflictReply(), Route: RouteConflict, Appointment: clash}
			}
			return nil
		}

		a := &database.Appointment{
			ConversationID: conversationID,
			PartyName:      c.PartyName,
			Type:           c.Type,
			StartTime:      iv.Start,
			EndTime:        iv.End,
			Status:         database.StatusConfirmed,
		}
		if err := tx.InsertAppointment(ctx, a); err != nil {
			return err
		}
		result = TurnResult{Reply: r.confirmationReply(a), Route: RouteBooked, Appointment: a}
		return nil
	})
	return result, err
}

func sameBooking(a *database.Appointment, conversationID string, c *extractor.Candidate, iv conflict.Interval) bool {
	return a.ConversationID == conversationID &&
		a.StartTime.Equal(iv.Start) &&
		a.EndTime.Equal(iv.End) &&
		strings.EqualFold(strings.TrimSpace(a.PartyName), c.PartyName)
}

// cancel marks the targeted active appointment CANCELLED in one transaction.
func (r *Router) cancel(ctx context.Context, log zerolog.Logger, conversationID string, c *extractor.Candidate) TurnResult {
	var target *database.Appointment
	err := r.db.InTx(ctx, func(tx *database.Tx) error {
		active, err := tx.ListActiveAppointmentsByConversation(ctx, conversationID)
		if err != nil {
			return err
		}
		target = r.cancellationTarget(active, c)
		if target == nil {
			return nil
		}
		if err := tx.UpdateAppointmentStatus(ctx, target.ID, database.StatusCancelled); err != nil {
			return err
		}
		target.Status = database.StatusCancelled
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to cancel appointment")
		return TurnResult{Reply: genericErrorReply, Route: RouteStoreFailure}
	}
	if target == nil {
		return TurnResult{Reply: nothingToCancel, Route: RouteNothingToCancel}
	}

	log.Info().Str("appointment_id", target.ID).Msg("appointment cancelled")
	if r.notifier != nil {
		r.notifier.AppointmentCancelled(ctx, *target)
	}
	if r.sync != nil {
		r.sync.PollNow()
	}
	return TurnResult{Reply: r.cancellationReply(target), Route: RouteCancelled, Appointment: target}
}

// cancellationTarget picks the referenced appointment, then the one on the
// requested date, then the most recently created. A requested date with no
// appointment on it matches nothing. active is newest first.
func (r *Router) cancellationTarget(active []database.Appointment, c *extractor.Candidate) *database.Appointment {
	if len(active) == 0 {
		return nil
	}
	if c != nil && c.TargetAppointmentID != "" {
		for i := range active {
			if active[i].ID == c.TargetAppointmentID {
				return &active[i]
			}
		}
	}
	if c != nil && (c.Start != nil || c.Date != nil) {
		day := c.Date
		if day == nil {
			day = c.Start
		}
		for i := range active {
			if timeutil.SameDay(active[i].StartTime, *day, r.loc) {
				return &active[i]
			}
		}
		return nil
	}
	return &active[0]
}
