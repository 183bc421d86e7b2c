package extractor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/omriShneor/realtor_assistant/internal/database"
	"github.com/omriShneor/realtor_assistant/internal/timeutil"
)

// payload is the JSON object the model is instructed to return
type payload struct {
	UserText        string           `json:"user_text"`
	IsCancellation  bool             `json:"is_cancellation"`
	AppointmentInfo *appointmentInfo `json:"appointmentinfo"`
}

type appointmentInfo struct {
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Date            string  `json:"date"`
	Time            string  `json:"time"`
	DurationMinutes minutes `json:"duration_minutes"`
	AppointmentID   string  `json:"appointment_id"`
}

// minutes accepts a JSON number or a numeric string.
type minutes int

func (m *minutes) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*m = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || f > MaxDuration.Minutes() {
		// Non-numeric or out-of-range durations are treated as unknown.
		*m = 0
		return nil
	}
	*m = minutes(f)
	return nil
}

// Parser converts raw model output into an Extraction.
type Parser struct {
	loc             *time.Location
	defaultDuration time.Duration
}

func NewParser(loc *time.Location, defaultDuration time.Duration) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	if defaultDuration <= 0 {
		defaultDuration = time.Hour
	}
	return &Parser{loc: loc, defaultDuration: defaultDuration}
}

// Parse reads the model's JSON reply. Markdown fences and surrounding prose are
// tolerated; anything that is not a JSON object yields ErrUnparseable.
func (p *Parser) Parse(text string) (*Extraction, error) {
	start := findJSONStart(text)
	if start < 0 {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrUnparseable)
	}
	jsonStr := extractJSON(text)

	var data payload
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	result := &Extraction{
		Reply:          strings.TrimSpace(data.UserText),
		IsCancellation: data.IsCancellation,
	}

	if data.AppointmentInfo != nil {
		result.Candidate = p.candidate(data.AppointmentInfo)
		if result.Candidate != nil && result.Candidate.Type == database.TypeCancellation {
			result.IsCancellation = true
		}
	}

	return result, nil
}

func (p *Parser) candidate(info *appointmentInfo) *Candidate {
	c := &Candidate{
		PartyName:           strings.TrimSpace(info.Name),
		Type:                normalizeType(info.Type),
		TargetAppointmentID: strings.TrimSpace(info.AppointmentID),
		Duration:            p.defaultDuration,
	}
	if info.DurationMinutes > 0 {
		c.Duration = time.Duration(info.DurationMinutes) * time.Minute
	}

	if d, err := timeutil.ParseDate(info.Date, p.loc); err == nil {
		c.Date = &d
		if start, err := timeutil.ParseDateAndClock(info.Date, info.Time, p.loc); err == nil {
			c.Start = &start
		}
	}

	if c.PartyName == "" && c.Type == "" && c.Date == nil && c.TargetAppointmentID == "" {
		return nil
	}
	return c
}

func normalizeType(value string) database.AppointmentType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return ""
	case "consultation", "consult":
		return database.TypeConsultation
	case "showing", "viewing", "tour":
		return database.TypeShowing
	case "cancellation", "cancel":
		return database.TypeCancellation
	default:
		return database.TypeOther
	}
}

// extractJSON attempts to extract JSON from a response that might be wrapped in markdown
func extractJSON(text string) string {
	start := 0
	if idx := findJSONStart(text); idx >= 0 {
		start = idx
	}

	end := len(text)
	if idx := findJSONEnd(text, start); idx >= 0 {
		end = idx + 1
	}

	return text[start:end]
}

func findJSONStart(text string) int {
	return strings.IndexByte(text, '{')
}

// findJSONEnd finds the brace matching the one at start, skipping braces inside strings.
func findJSONEnd(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
