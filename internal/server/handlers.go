package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/omriShneor/realtor_assistant/internal/database"
	"github.com/omriShneor/realtor_assistant/internal/router"
)

const (
	defaultTurnsLimit = 50
	maxTurnsLimit     = 500
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health Check

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"msg": "up & running"})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	status := map[string]interface{}{
		"status":     "healthy",
		"whatsapp":   "disabled",
		"sheet_sync": "disabled",
	}

	if s.wa != nil {
		waStatus, _, _ := s.wa.Status()
		status["whatsapp"] = waStatus
	}

	if s.sync != nil {
		status["sheet_sync"] = "enabled"
	}

	respondJSON(w, http.StatusOK, status)
}

// Sheet Sync

func (s *Server) handleSyncSheets(w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		respondError(w, http.StatusServiceUnavailable, "sheet sync not configured")
		return
	}

	result, err := s.sync.RunNow(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("manual sheet sync failed")
		respondJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":  "sheet sync failed",
			"result": result,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "synced",
		"result": result,
	})
}

// Appointments API

func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	var (
		appts []database.Appointment
		err   error
	)

	if conversation := r.URL.Query().Get("conversation"); conversation != "" {
		appts, err = s.db.ListAppointmentsByConversation(r.Context(), router.NormalizeSender(conversation))
	} else {
		appts, err = s.db.ListAppointments(r.Context())
	}
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list appointments")
		respondError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}

	if appts == nil {
		appts = []database.Appointment{}
	}
	respondJSON(w, http.StatusOK, appts)
}

func (s *Server) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := s.db.GetAppointment(r.Context(), r.PathValue("id"))
	if err != nil {
		s.log.Error().Err(err).Msg("failed to get appointment")
		respondError(w, http.StatusInternalServerError, "failed to get appointment")
		return
	}
	if appt == nil {
		respondError(w, http.StatusNotFound, "appointment not found")
		return
	}

	respondJSON(w, http.StatusOK, appt)
}

// UpdateStatusRequest sets an appointment's status from the admin API.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, ok := database.ParseStatus(req.Status)
	if !ok {
		respondError(w, http.StatusBadRequest, "status must be one of PENDING, CONFIRMED, CANCELLED, DONE")
		return
	}

	err := s.db.UpdateAppointmentStatus(r.Context(), id, status)
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "appointment not found")
		return
	case errors.Is(err, database.ErrOverlap):
		respondError(w, http.StatusConflict, "appointment overlaps an active booking")
		return
	case err != nil:
		s.log.Error().Err(err).Str("appointment_id", id).Msg("failed to update appointment status")
		respondError(w, http.StatusInternalServerError, "failed to update appointment")
		return
	}

	// DONE records are cleaned up by the synchronizer
	if status == database.StatusDone && s.sync != nil {
		s.sync.PollNow()
	}

	appt, err := s.db.GetAppointment(r.Context(), id)
	if err != nil || appt == nil {
		respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(status)})
		return
	}
	respondJSON(w, http.StatusOK, appt)
}

// Conversation Ledger API

func (s *Server) handleListTurns(w http.ResponseWriter, r *http.Request) {
	conversationID := router.NormalizeSender(r.PathValue("id"))

	limit := defaultTurnsLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxTurnsLimit)
	}

	turns, err := s.db.RecentTurns(r.Context(), conversationID, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list turns")
		respondError(w, http.StatusInternalServerError, "failed to list turns")
		return
	}

	if turns == nil {
		turns = []database.ConversationTurn{}
	}
	respondJSON(w, http.StatusOK, turns)
}

// WhatsApp Pairing

func (s *Server) handleWhatsAppQR(w http.ResponseWriter, r *http.Request) {
	if s.wa == nil {
		respondError(w, http.StatusNotFound, "WhatsApp transport not enabled")
		return
	}

	status, qr, errMsg := s.wa.Status()
	resp := map[string]string{"status": status}
	if qr != "" {
		resp["qr_code"] = qr
	}
	if errMsg != "" {
		resp["error"] = errMsg
	}
	respondJSON(w, http.StatusOK, resp)
}
