package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/realtor_assistant/internal/database"
	"github.com/omriShneor/realtor_assistant/internal/mocks"
	"github.com/omriShneor/realtor_assistant/internal/router"
	"github.com/omriShneor/realtor_assistant/internal/server"
	"github.com/omriShneor/realtor_assistant/internal/sheets"
)

// TestServer wraps a fully wired server for E2E testing. Only the language
// model and the spreadsheet are faked.
type TestServer struct {
	Server     *server.Server
	DB         *database.DB
	HTTPServer *httptest.Server
	Router     *router.Router
	Extractor  *mocks.MockExtractor
	Notifier   *mocks.MockAppointmentNotifier
	Sheet      *MockSheet
	SheetSync  *sheets.Worker
	t          *testing.T

	now      time.Time
	location *time.Location
}

// TestServerOption configures a test server
type TestServerOption func(*TestServer)

// WithNow fixes the clock the router uses
func WithNow(now time.Time) TestServerOption {
	return func(ts *TestServer) {
		ts.now = now
	}
}

// WithLocation sets the realtor's time zone
func WithLocation(loc *time.Location) TestServerOption {
	return func(ts *TestServer) {
		ts.location = loc
	}
}

// NewTestServer creates a fully configured test server for E2E testing
func NewTestServer(t *testing.T, opts ...TestServerOption) *TestServer {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err, "failed to create test database")

	ts := &TestServer{
		DB:        db,
		Extractor: &mocks.MockExtractor{},
		Notifier:  &mocks.MockAppointmentNotifier{},
		Sheet:     NewMockSheet(),
		t:         t,
		now:       time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC),
		location:  time.UTC,
	}

	for _, opt := range opts {
		opt(ts)
	}

	ts.Notifier.On("AppointmentBooked", mock.Anything, mock.Anything).Maybe()
	ts.Notifier.On("AppointmentCancelled", mock.Anything, mock.Anything).Maybe()

	log := zerolog.Nop()
	synchronizer := sheets.NewSynchronizer(db, ts.Sheet, ts.location, log)
	// The worker is never started; tests sync through /sync-sheets
	ts.SheetSync = sheets.NewWorker(synchronizer, sheets.WorkerConfig{}, log)

	now := ts.now
	ts.Router = router.New(db, ts.Extractor, log, router.Options{
		ContextTurns:      6,
		RealtorName:       "Sherri",
		Location:          ts.location,
		ExtractionTimeout: 2 * time.Second,
		Notifier:          ts.Notifier,
		Sync:              ts.SheetSync,
		Now:               func() time.Time { return now },
	})

	ts.Server = server.New(server.Config{
		DB:    db,
		Turns: ts.Router,
		Sync:  ts.SheetSync,
		Log:   log,
	})
	ts.HTTPServer = httptest.NewServer(ts.Server.Handler())

	t.Cleanup(func() {
		ts.HTTPServer.Close()
		db.Close()
	})

	return ts
}

// BaseURL returns the test server base URL
func (ts *TestServer) BaseURL() string {
	return ts.HTTPServer.URL
}

// Client returns an HTTP client configured for the test server
func (ts *TestServer) Client() *http.Client {
	return ts.HTTPServer.Client()
}

// Now is the fixed time the router sees
func (ts *TestServer) Now() time.Time {
	return ts.now
}

// SendJSON posts a JSON message and returns the reply text
func (ts *TestServer) SendJSON(from, body string) string {
	ts.t.Helper()

	payload, err := json.Marshal(server.MessageRequest{From: from, Body: body})
	require.NoError(ts.t, err)

	resp, err := ts.Client().Post(ts.BaseURL()+"/message", "application/json", bytes.NewReader(payload))
	require.NoError(ts.t, err)
	defer resp.Body.Close()
	require.Equal(ts.t, http.StatusOK, resp.StatusCode)

	var out server.MessageResponse
	require.NoError(ts.t, json.NewDecoder(resp.Body).Decode(&out))
	return out.ReplyText
}

// SendTwilio posts a Twilio-style form and returns the raw TwiML
func (ts *TestServer) SendTwilio(from, body string) string {
	ts.t.Helper()

	form := url.Values{"From": {from}, "Body": {body}}
	resp, err := ts.Client().Post(ts.BaseURL()+"/message", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(ts.t, err)
	defer resp.Body.Close()
	require.Equal(ts.t, http.StatusOK, resp.StatusCode)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(ts.t, err)
	return buf.String()
}

// SyncSheets triggers a manual sync and returns its result
func (ts *TestServer) SyncSheets() sheets.Result {
	ts.t.Helper()

	resp, err := ts.Client().Post(ts.BaseURL()+"/sync-sheets", "application/json", nil)
	require.NoError(ts.t, err)
	defer resp.Body.Close()
	require.Equal(ts.t, http.StatusOK, resp.StatusCode)

	var out struct {
		Result sheets.Result `json:"result"`
	}
	require.NoError(ts.t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Result
}

// Appointments lists every stored appointment through the API
func (ts *TestServer) Appointments() []database.Appointment {
	ts.t.Helper()

	resp, err := ts.Client().Get(ts.BaseURL() + "/api/appointments")
	require.NoError(ts.t, err)
	defer resp.Body.Close()
	require.Equal(ts.t, http.StatusOK, resp.StatusCode)

	var appts []database.Appointment
	require.NoError(ts.t, json.NewDecoder(resp.Body).Decode(&appts))
	return appts
}

// SeedAppointment stores a confirmed appointment directly
func (ts *TestServer) SeedAppointment(conversationID, name string, start time.Time, d time.Duration) *database.Appointment {
	ts.t.Helper()

	a := &database.Appointment{
		ConversationID: conversationID,
		PartyName:      name,
		Type:           database.TypeConsultation,
		StartTime:      start,
		EndTime:        start.Add(d),
		Status:         database.StatusConfirmed,
	}
	require.NoError(ts.t, ts.DB.InsertAppointment(context.Background(), a))
	return a
}
