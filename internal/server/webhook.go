package server

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/omriShneor/realtor_assistant/internal/router"
)

// maxMessageBytes caps an inbound webhook body
const maxMessageBytes = 64 << 10

// MessageRequest is the JSON form of an inbound message.
type MessageRequest struct {
	From string `json:"from"`
	Body string `json:"body"`
}

// MessageResponse is the JSON reply to an inbound message.
type MessageResponse struct {
	ReplyText string `json:"reply_text"`
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// handleMessage accepts either a Twilio form post, answered with TwiML, or a
// JSON body, answered with JSON.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBytes)

	if isJSON(r) {
		var req MessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondBodyError(w, err, "invalid request body")
			return
		}
		if strings.TrimSpace(req.From) == "" || strings.TrimSpace(req.Body) == "" {
			respondError(w, http.StatusBadRequest, "from and body are required")
			return
		}

		result := s.runTurn(r, req.From, req.Body)
		respondJSON(w, http.StatusOK, MessageResponse{ReplyText: result.Reply})
		return
	}

	if err := r.ParseForm(); err != nil {
		respondBodyError(w, err, "invalid form body")
		return
	}
	from := r.PostFormValue("From")
	body := r.PostFormValue("Body")
	if strings.TrimSpace(from) == "" || strings.TrimSpace(body) == "" {
		respondError(w, http.StatusBadRequest, "From and Body are required")
		return
	}

	result := s.runTurn(r, from, body)
	respondTwiML(w, result.Reply)
}

func (s *Server) runTurn(r *http.Request, from, body string) router.TurnResult {
	// A dropped connection must not abandon a turn halfway through its ledger writes
	ctx := context.WithoutCancel(r.Context())

	result := s.turns.HandleTurn(ctx, router.Inbound{From: from, Body: body})
	s.log.Info().
		Str("from", router.NormalizeSender(from)).
		Str("route", string(result.Route)).
		Msg("handled message")
	return result
}

func respondBodyError(w http.ResponseWriter, err error, msg string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, "message body too large")
		return
	}
	respondError(w, http.StatusBadRequest, msg)
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func respondTwiML(w http.ResponseWriter, reply string) {
	out, err := xml.Marshal(twimlResponse{Message: reply})
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xml.Header))
	w.Write(out)
}
