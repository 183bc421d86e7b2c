package extractor

import (
	"bytes"
	"fmt"
	"time"

	"github.com/omriShneor/realtor_assistant/internal/database"
)

const systemPromptTemplate = `You are %[1]s's real estate assistant. Extract appointment details from WhatsApp messages and respond naturally.

## Context Provided
- Recent conversation: the last turns with this client (oldest first)
- Active appointments: appointments this client already holds, with their ids
- New message: the message that just arrived
- Current date/time: for resolving relative dates like "tomorrow" or "Friday"

## Rules
- Use the recent conversation to remember details the client already gave (name, type, preferences).
- Only fill a field when the client stated it or it is in the recent conversation. NEVER invent a name, date or time. Use null for anything unknown.
- If all details are present (name, type, date, time), say "Let me check %[1]s's availability for that time..." and nothing more about the booking.
- If details are missing, ask only for what is missing.
- NEVER say "confirmed" or "booked". Confirmation is sent separately.
- If the client wants to cancel, set is_cancellation to true and type to "cancellation". When the cancellation clearly refers to one of the active appointments, put its id in appointment_id and its date in date.
- If the client is just chatting, set appointmentinfo to null and respond naturally.
- Keep user_text under 200 characters.

## Response Format

Always respond with valid JSON in this exact format:

{
  "user_text": "your reply to the client",
  "is_cancellation": false,
  "appointmentinfo": {
    "name": "full name or null",
    "type": "showing|consultation|cancellation or null",
    "date": "YYYY-MM-DD or null",
    "time": "HH:MM (24-hour) or null",
    "duration_minutes": 60,
    "appointment_id": "id of the appointment being cancelled, otherwise null"
  }
}`

// SystemPrompt renders the system instruction for the given realtor.
func SystemPrompt(realtorName string) string {
	return fmt.Sprintf(systemPromptTemplate, realtorName)
}

// BuildUserPrompt constructs the prompt with conversation history and context
func BuildUserPrompt(req Request, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var prompt bytes.Buffer

	prompt.WriteString("## Recent Conversation\n\n")
	if len(req.Turns) == 0 {
		prompt.WriteString("No previous messages.\n")
	}
	for _, turn := range req.Turns {
		who := "Client"
		if turn.Direction == database.DirectionOutbound {
			who = "Assistant"
		}
		prompt.WriteString(fmt.Sprintf("[%s] %s: %s\n",
			turn.Timestamp.In(loc).Format("2006-01-02 15:04"),
			who,
			turn.Text,
		))
	}

	prompt.WriteString("\n## Active Appointments\n\n")
	if len(req.Appointments) == 0 {
		prompt.WriteString("None.\n")
	}
	for _, a := range req.Appointments {
		prompt.WriteString(fmt.Sprintf("- [ID: %s] %s for %s on %s\n",
			a.ID,
			a.Type,
			a.PartyName,
			a.StartTime.In(loc).Format("2006-01-02 15:04 (Monday)"),
		))
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	prompt.WriteString("\n## New Message (just received)\n\n")
	prompt.WriteString(req.Text)
	prompt.WriteString("\n\n## Current Date/Time Reference\n\n")
	prompt.WriteString(fmt.Sprintf("Current time: %s\n", now.In(loc).Format("2006-01-02 15:04 (Monday)")))

	prompt.WriteString("\nRespond with your JSON only.")

	return prompt.String()
}
