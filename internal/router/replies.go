package router

import (
	"fmt"
	"strings"

	"github.com/omriShneor/realtor_assistant/internal/database"
	"github.com/omriShneor/realtor_assistant/internal/extractor"
	"github.com/omriShneor/realtor_assistant/internal/timeutil"
)

// MaxReplyLength is the longest body a WhatsApp message sent through Twilio may carry.
const MaxReplyLength = 1600

const (
	genericErrorReply = "I'm having trouble processing that right now. Please try again."
	nothingToCancel   = "I couldn't find an upcoming appointment to cancel. Is there anything else I can help with?"
	pastTimeReply     = "That time has already passed. Could you choose a future date and time?"
)

func (r *Router) confirmationReply(a *database.Appointment) string {
	start := a.StartTime.In(r.loc)
	return fmt.Sprintf("✓ Confirmed! %s's %s on %s at %s.",
		a.PartyName, a.Type, timeutil.FormatDate(start), timeutil.FormatClock(start))
}

func (r *Router) conflictReply() string {
	return fmt.Sprintf("Sorry, %s already has an appointment at that time. Could you choose another time?", r.realtorName)
}

func (r *Router) cancellationReply(a *database.Appointment) string {
	start := a.StartTime.In(r.loc)
	return fmt.Sprintf("✓ Cancellation noted. %s's %s on %s at %s has been cancelled.",
		a.PartyName, a.Type, timeutil.FormatDate(start), timeutil.FormatClock(start))
}

// clarifyReply prefers the model's own wording and falls back to asking for the missing fields.
func clarifyReply(e *extractor.Extraction) string {
	if e != nil && strings.TrimSpace(e.Reply) != "" {
		return e.Reply
	}
	var c *extractor.Candidate
	if e != nil {
		c = e.Candidate
	}
	missing := c.Missing()
	if len(missing) == 0 {
		return "I'd be happy to help! Could you tell me a bit more about the appointment you'd like?"
	}
	return fmt.Sprintf("I'd be happy to help! Could you provide your %s?", joinFields(missing))
}

func joinFields(fields []string) string {
	switch len(fields) {
	case 1:
		return fields[0]
	case 2:
		return fields[0] + " and " + fields[1]
	default:
		return strings.Join(fields[:len(fields)-1], ", ") + " and " + fields[len(fields)-1]
	}
}

// capReply truncates to MaxReplyLength runes.
func capReply(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxReplyLength {
		return text
	}
	return string(runes[:MaxReplyLength-3]) + "..."
}
