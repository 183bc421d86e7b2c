package notify

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/resend/resend-go/v2"
)

// ResendNotifier sends email notifications via Resend API
type ResendNotifier struct {
	client      *resend.Client
	fromAddress string
	loc         *time.Location
}

// NewResendNotifier creates a new Resend email notifier
func NewResendNotifier(apiKey, from string, loc *time.Location) *ResendNotifier {
	if apiKey == "" {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ResendNotifier{
		client:      resend.NewClient(apiKey),
		fromAddress: from,
		loc:         loc,
	}
}

// IsConfigured returns true if the notifier has server-side config
func (r *ResendNotifier) IsConfigured() bool {
	return r != nil && r.client != nil && r.fromAddress != ""
}

// Send emails the realtor about a booked or cancelled appointment
func (r *ResendNotifier) Send(ctx context.Context, n Notification, recipient string) error {
	if recipient == "" {
		return fmt.Errorf("no recipient specified")
	}

	params := &resend.SendEmailRequest{
		From:    r.fromAddress,
		To:      []string{recipient},
		Subject: r.subject(n),
		Html:    r.formatEmailHTML(n),
	}

	if _, err := r.client.Emails.Send(params); err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}
	return nil
}

// Name returns the notifier name
func (r *ResendNotifier) Name() string {
	return "resend"
}

func (r *ResendNotifier) subject(n Notification) string {
	a := n.Appointment
	when := a.StartTime.In(r.loc).Format("Mon, Jan 2 at 15:04")
	if n.Event == EventCancelled {
		return fmt.Sprintf("Cancelled: %s with %s (%s)", a.Type, a.PartyName, when)
	}
	return fmt.Sprintf("New %s booked: %s (%s)", a.Type, a.PartyName, when)
}

// formatEmailHTML creates the HTML email body
func (r *ResendNotifier) formatEmailHTML(n Notification) string {
	a := n.Appointment
	start := a.StartTime.In(r.loc)
	end := a.EndTime.In(r.loc)

	badge := "Booked"
	badgeColor := "#28a745"
	if n.Event == EventCancelled {
		badge = "Cancelled"
		badgeColor = "#dc3545"
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
  <div style="background-color: white; border-radius: 8px; padding: 24px; box-shadow: 0 2px 4px rgba(0,0,0,0.1);">
    <div style="margin-bottom: 16px;">
      <span style="background-color: %s; color: white; padding: 4px 12px; border-radius: 4px; font-size: 12px; font-weight: 600;">%s</span>
    </div>

    <h2 style="margin: 0 0 16px 0; color: #333;">%s with %s</h2>

    <div style="background: #f8f9fa; padding: 16px; border-radius: 8px; margin: 16px 0; border-left: 4px solid #007bff;">
      <p style="margin: 8px 0;"><strong>Date:</strong> %s</p>
      <p style="margin: 8px 0;"><strong>Time:</strong> %s - %s</p>
      <p style="margin: 8px 0;"><strong>WhatsApp:</strong> %s</p>
      <p style="margin: 8px 0;"><strong>Appointment ID:</strong> %s</p>
    </div>

    <hr style="margin-top: 32px; border: none; border-top: 1px solid #eee;">
    <p style="color: #999; font-size: 12px; margin-top: 16px;">
      Realtor Assistant<br>
      <span style="color: #ccc;">Sent at %s</span>
    </p>
  </div>
</body>
</html>`,
		badgeColor,
		badge,
		html.EscapeString(string(a.Type)),
		html.EscapeString(a.PartyName),
		start.Format("Monday, January 2, 2006"),
		start.Format("15:04"),
		end.Format("15:04"),
		html.EscapeString(a.ConversationID),
		html.EscapeString(a.ID),
		time.Now().In(r.loc).Format("Jan 2, 2006 15:04"),
	)
}
