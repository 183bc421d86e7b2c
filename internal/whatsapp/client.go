package whatsapp

import (
	"context"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
)

// Connection states reported by Status
const (
	StatusDisconnected = "disconnected"
	StatusNeedsQR      = "needs_qr"
	StatusConnected    = "connected"
	StatusError        = "error"
)

type Client struct {
	WAClient  *whatsmeow.Client
	handler   *Handler
	container *sqlstore.Container
	log       zerolog.Logger

	mu     sync.RWMutex
	status string
	qr     string
	errMsg string
}

func NewClient(handler *Handler, dbPath string, log zerolog.Logger) (*Client, error) {
	log = log.With().Str("component", "whatsapp").Logger()

	container, err := sqlstore.New(context.Background(), "sqlite3", "file:"+dbPath+"?_foreign_keys=on", waLog.Zerolog(log.With().Str("module", "store").Logger()))
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get device store: %w", err)
	}

	waClient := whatsmeow.NewClient(deviceStore, waLog.Zerolog(log.With().Str("module", "client").Logger()))

	c := &Client{
		WAClient:  waClient,
		handler:   handler,
		container: container,
		log:       log,
		status:    StatusDisconnected,
	}

	if handler != nil {
		handler.SetSender(c)
		waClient.AddEventHandler(handler.HandleEvent)
	}

	return c, nil
}

// Connect opens the session. An unpaired device starts a QR pairing flow whose
// current code is exposed through Status.
func (c *Client) Connect(ctx context.Context) error {
	if c.IsLoggedIn() {
		if err := c.WAClient.Connect(); err != nil {
			c.setError(err)
			return fmt.Errorf("failed to connect: %w", err)
		}
		c.setStatus(StatusConnected)
		return nil
	}

	qrChan, err := c.WAClient.GetQRChannel(ctx)
	if err != nil {
		c.setError(err)
		return fmt.Errorf("failed to get QR channel: %w", err)
	}

	if err := c.WAClient.Connect(); err != nil {
		c.setError(err)
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.setStatus(StatusNeedsQR)
	go c.watchQR(qrChan)
	return nil
}

func (c *Client) watchQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			dataURL, err := GenerateQRDataURL(evt.Code)
			if err != nil {
				c.log.Error().Err(err).Msg("failed to generate QR")
				continue
			}
			c.setQR(dataURL)
		case "success":
			c.setStatus(StatusConnected)
			c.log.Info().Msg("whatsapp paired")
			return
		case "timeout":
			c.setError(fmt.Errorf("QR code expired"))
			return
		}
	}
}

// Status returns the connection state and, while pairing, the latest QR code as a data URL.
func (c *Client) Status() (status, qr, errMsg string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status, c.qr, c.errMsg
}

func (c *Client) setStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
	c.errMsg = ""
	if status != StatusNeedsQR {
		c.qr = ""
	}
}

func (c *Client) setQR(dataURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusNeedsQR
	c.qr = dataURL
}

func (c *Client) setError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusError
	c.errMsg = err.Error()
	c.qr = ""
}

// SendText sends a plain text message to a chat.
func (c *Client) SendText(ctx context.Context, to types.JID, text string) error {
	_, err := c.WAClient.SendMessage(ctx, to, &waE2E.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (c *Client) IsLoggedIn() bool {
	return c.WAClient.Store.ID != nil
}

// Disconnect closes the socket and keeps the paired session for the next start.
func (c *Client) Disconnect() {
	c.WAClient.Disconnect()
	c.setStatus(StatusDisconnected)
}
