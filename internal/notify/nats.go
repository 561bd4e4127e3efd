package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/large-farva/fast-trigger/internal/station"
)

// DefaultSubjectPrefix is prepended to the station key to form the subject.
const DefaultSubjectPrefix = "fasttrigger.alerts"

// Publisher is the part of *nats.Conn the notifier uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATS publishes each notification as JSON on "<prefix>.<station>".
type NATS struct {
	pub    Publisher
	prefix string
	now    func() time.Time
}

type natsMessage struct {
	ID         string            `json:"id"`
	Station    string            `json:"station"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	Recipients []station.Contact `json:"recipients"`
	Timestamp  time.Time         `json:"timestamp"`
}

// NewNATS wraps an existing publisher.
func NewNATS(pub Publisher, prefix string) *NATS {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATS{pub: pub, prefix: prefix, now: time.Now}
}

// DialNATS connects to url and returns the notifier and the connection, which
// the caller closes on shutdown.
func DialNATS(url, prefix string, timeout time.Duration) (*NATS, *nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("fast-trigger"),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return NewNATS(nc, prefix), nc, nil
}

// Subject returns the subject used for a station.
func (n *NATS) Subject(stationName string) string {
	return n.prefix + "." + station.Descriptor{ShortName: stationName}.Key()
}

// Notify implements station.Notifier.
func (n *NATS) Notify(ctx context.Context, msg station.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(natsMessage{
		ID:         uuid.NewString(),
		Station:    msg.Station,
		Subject:    msg.Subject,
		Body:       msg.Body,
		Recipients: msg.Recipients,
		Timestamp:  n.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal nats message: %w", err)
	}
	subject := n.Subject(msg.Station)
	if err := n.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}
