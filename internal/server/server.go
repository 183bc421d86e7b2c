package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/omriShneor/realtor_assistant/internal/database"
	"github.com/omriShneor/realtor_assistant/internal/router"
	"github.com/omriShneor/realtor_assistant/internal/sheets"
)

// TurnHandler decides the reply for one inbound message.
type TurnHandler interface {
	HandleTurn(ctx context.Context, in router.Inbound) router.TurnResult
}

// SheetSyncer runs the spreadsheet reconciliation on demand.
type SheetSyncer interface {
	RunNow(ctx context.Context) (sheets.Result, error)
	PollNow()
}

// WhatsAppStatus reports the direct transport's connection state.
type WhatsAppStatus interface {
	Status() (status, qr, errMsg string)
}

type Server struct {
	db      *database.DB
	turns   TurnHandler
	sync    SheetSyncer
	wa      WhatsAppStatus
	log     zerolog.Logger
	httpSrv *http.Server
	port    int
}

// Config holds everything the server needs. Sync and WhatsApp are optional.
type Config struct {
	DB       *database.DB
	Turns    TurnHandler
	Sync     SheetSyncer
	WhatsApp WhatsAppStatus
	Port     int
	Log      zerolog.Logger
}

func New(cfg Config) *Server {
	s := &Server{
		db:    cfg.DB,
		turns: cfg.Turns,
		sync:  cfg.Sync,
		wa:    cfg.WhatsApp,
		log:   cfg.Log.With().Str("component", "server").Logger(),
		port:  cfg.Port,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      otelhttp.NewHandler(s.corsMiddleware(mux), "realtor_assistant"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Liveness
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealthCheck)

	// Inbound messaging webhook
	mux.HandleFunc("POST /message", s.handleMessage)

	// Sheet sync
	mux.HandleFunc("POST /sync-sheets", s.handleSyncSheets)
	mux.HandleFunc("GET /sync-sheets", s.handleSyncSheets)

	// Appointments API
	mux.HandleFunc("GET /api/appointments", s.handleListAppointments)
	mux.HandleFunc("GET /api/appointments/{id}", s.handleGetAppointment)
	mux.HandleFunc("PUT /api/appointments/{id}/status", s.handleUpdateAppointmentStatus)

	// Conversation ledger API
	mux.HandleFunc("GET /api/conversations/{id}/turns", s.handleListTurns)

	// WhatsApp pairing
	mux.HandleFunc("GET /api/whatsapp/qr", s.handleWhatsAppQR)
}

func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("starting HTTP server")
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the server's HTTP handler for testing purposes
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// corsMiddleware allows the admin API to be called from a browser dashboard
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
