// Package notification delivers workflow events to interested parties: the
// employer when a plan awaits its approval, the profpathology authority when
// an unfavorable verdict is issued. It is purely a sink; nothing feeds back
// into the engines.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Party identifies a notification recipient class.
type Party string

const (
	PartyClinic    Party = "clinic"
	PartyEmployer  Party = "employer"
	PartyAuthority Party = "authority"
	PartyEmployee  Party = "employee"
)

// Notification is one outbound message.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	Recipient Party     `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Dispatcher is the notification capability consumed by the engines.
type Dispatcher interface {
	Notify(ctx context.Context, recipient Party, subject, body string) error
}

// LogDispatcher records notifications in memory and logs them. Delivery
// transports (email, SMS) plug in outside this core.
type LogDispatcher struct {
	logger zerolog.Logger

	mu   sync.Mutex
	sent []Notification
}

func NewLogDispatcher(logger zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Notify(_ context.Context, recipient Party, subject, body string) error {
	n := Notification{
		ID:        uuid.New(),
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now(),
	}

	d.mu.Lock()
	d.sent = append(d.sent, n)
	d.mu.Unlock()

	d.logger.Info().
		Str("recipient", string(recipient)).
		Str("subject", subject).
		Msg("notification dispatched")
	return nil
}

// Sent returns a copy of everything dispatched so far.
func (d *LogDispatcher) Sent() []Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Notification, len(d.sent))
	copy(out, d.sent)
	return out
}
