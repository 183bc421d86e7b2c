package whatsapp

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/omriShneor/realtor_assistant/internal/router"
)

const replyTimeout = 60 * time.Second

// TurnHandler decides the reply for one inbound message.
type TurnHandler interface {
	HandleTurn(ctx context.Context, in router.Inbound) router.TurnResult
}

// Sender delivers a reply back to a chat.
type Sender interface {
	SendText(ctx context.Context, to types.JID, text string) error
}

type Handler struct {
	turns TurnHandler
	log   zerolog.Logger

	mu     sync.RWMutex
	sender Sender

	wg sync.WaitGroup
}

func NewHandler(turns TurnHandler, log zerolog.Logger) *Handler {
	return &Handler{
		turns: turns,
		log:   log.With().Str("component", "whatsapp_handler").Logger(),
	}
}

func (h *Handler) SetSender(s Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sender = s
}

func (h *Handler) getSender() Sender {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sender
}

func (h *Handler) HandleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		h.handleMessage(v)
	case *events.Connected:
		h.log.Info().Msg("whatsapp connected")
	case *events.LoggedOut:
		h.log.Warn().Msg("whatsapp logged out")
	}
}

func (h *Handler) handleMessage(msg *events.Message) {
	// Only direct messages from other people
	if msg.Info.IsGroup || msg.Info.IsFromMe {
		return
	}

	text := extractText(msg)
	if text == "" {
		return
	}

	sender := msg.Info.Sender
	chat := msg.Info.Chat
	receivedAt := msg.Info.Timestamp

	h.log.Debug().Str("from", sender.User).Msg("inbound direct message")

	// whatsmeow dispatches events synchronously; the turn runs off the event loop
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
		defer cancel()

		result := h.turns.HandleTurn(ctx, router.Inbound{
			From:       sender.User,
			Body:       text,
			ReceivedAt: receivedAt,
		})

		s := h.getSender()
		if s == nil || result.Reply == "" {
			return
		}
		if err := s.SendText(ctx, chat, result.Reply); err != nil {
			h.log.Error().Err(err).Str("to", sender.User).Msg("failed to send reply")
		}
	}()
}

// Wait blocks until in-flight turns have replied.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func extractText(msg *events.Message) string {
	m := msg.Message
	if m == nil {
		return ""
	}

	if m.GetConversation() != "" {
		return m.GetConversation()
	}

	if ext := m.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}

	if img := m.GetImageMessage(); img != nil && img.GetCaption() != "" {
		return img.GetCaption()
	}

	if vid := m.GetVideoMessage(); vid != nil && vid.GetCaption() != "" {
		return vid.GetCaption()
	}

	return ""
}
