package whatsapp

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/omriShneor/realtor_assistant/internal/router"
)

type fakeTurns struct {
	mu     sync.Mutex
	inputs []router.Inbound
	reply  string
}

func (f *fakeTurns) HandleTurn(_ context.Context, in router.Inbound) router.TurnResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	return router.TurnResult{Reply: f.reply, Route: router.RouteClarify}
}

type sentMessage struct {
	to   types.JID
	text string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeSender) SendText(_ context.Context, to types.JID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{to: to, text: text})
	return nil
}

func directMessage(user, text string) *events.Message {
	jid := types.NewJID(user, types.DefaultUserServer)
	return &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Chat:   jid,
				Sender: jid,
			},
			ID:        "MSG1",
			Timestamp: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		},
		Message: &waE2E.Message{Conversation: proto.String(text)},
	}
}

func TestHandleEvent_RoutesDirectMessageAndReplies(t *testing.T) {
	turns := &fakeTurns{reply: "Could you provide your name?"}
	sender := &fakeSender{}
	h := NewHandler(turns, zerolog.Nop())
	h.SetSender(sender)

	h.HandleEvent(directMessage("15551234567", "I want a showing Friday"))
	h.Wait()

	require.Len(t, turns.inputs, 1)
	assert.Equal(t, "15551234567", turns.inputs[0].From)
	assert.Equal(t, "I want a showing Friday", turns.inputs[0].Body)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), turns.inputs[0].ReceivedAt)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "15551234567", sender.sent[0].to.User)
	assert.Equal(t, "Could you provide your name?", sender.sent[0].text)
}

func TestHandleEvent_IgnoresGroupsSelfAndEmpty(t *testing.T) {
	turns := &fakeTurns{reply: "hi"}
	sender := &fakeSender{}
	h := NewHandler(turns, zerolog.Nop())
	h.SetSender(sender)

	group := directMessage("15551234567", "hello group")
	group.Info.IsGroup = true
	group.Info.Chat = types.NewJID("1203630", types.GroupServer)

	self := directMessage("15550000000", "note to self")
	self.Info.IsFromMe = true

	empty := directMessage("15551234567", "")

	h.HandleEvent(group)
	h.HandleEvent(self)
	h.HandleEvent(empty)
	h.HandleEvent(&events.Connected{})
	h.Wait()

	assert.Empty(t, turns.inputs)
	assert.Empty(t, sender.sent)
}

func TestHandleEvent_NoSenderStillRecordsTurn(t *testing.T) {
	turns := &fakeTurns{reply: "hi"}
	h := NewHandler(turns, zerolog.Nop())

	h.HandleEvent(directMessage("15551234567", "hello"))
	h.Wait()

	assert.Len(t, turns.inputs, 1)
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		msg  *waE2E.Message
		want string
	}{
		{
			name: "conversation",
			msg:  &waE2E.Message{Conversation: proto.String("hello")},
			want: "hello",
		},
		{
			name: "extended text",
			msg:  &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("quoted reply")}},
			want: "quoted reply",
		},
		{
			name: "image caption",
			msg:  &waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String("is this house free Friday?")}},
			want: "is this house free Friday?",
		},
		{
			name: "image without caption",
			msg:  &waE2E.Message{ImageMessage: &waE2E.ImageMessage{}},
			want: "",
		},
		{
			name: "nil message",
			msg:  nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractText(&events.Message{Message: tt.msg}))
		})
	}
}

func TestGenerateQRDataURL(t *testing.T) {
	url, err := GenerateQRDataURL("2@abcdef,ghijkl,mnopqr")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
	assert.Greater(t, len(url), len("data:image/png;base64,"))
}
