// Package natsfeed mirrors committed messages onto NATS so other processes can
// follow a user's conversations without opening the badger store.
package natsfeed

import (
	"chat-inbox/domain"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

const subjectRoot = "chat.user-messages"

// Publisher is the part of *nats.Conn the relay writes through.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Notification is published once per participant of a message.
type Notification struct {
	OwnerID   string `json:"ownerId"`
	PartnerID string `json:"partnerId"`
	MessageID string `json:"messageId"`
	Timestamp *int64 `json:"timestamp,omitempty"`
}

type Relay struct {
	log  *slog.Logger
	pub  Publisher
	conn *nats.Conn
}

func NewRelay(log *slog.Logger, pub Publisher) *Relay {
	return &Relay{log: log, pub: pub}
}

// Connect dials url and returns a relay owning the connection.
func Connect(url, name string, log *slog.Logger) (*Relay, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500*time.Millisecond),
		nats.Timeout(3*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return &Relay{log: log, pub: nc, conn: nc}, nil
}

// MessageSent publishes one notification for each distinct side of the
// conversation.
func (r *Relay) MessageSent(_ context.Context, msg domain.Message) {
	for _, n := range notificationsFor(msg) {
		data, err := json.Marshal(n)
		if err != nil {
			r.log.Error("unable to encode notification", "error", err)
			continue
		}
		subject := Subject(n.OwnerID, n.PartnerID)
		if err = r.pub.Publish(subject, data); err != nil {
			r.log.Warn("nats publish failed", "subject", subject, "error", err)
		}
	}
}

// Subscribe delivers every notification addressed to ownerID.
func (r *Relay) Subscribe(ownerID string, fn func(Notification)) (*nats.Subscription, error) {
	if r.conn == nil {
		return nil, fmt.Errorf("relay has no nats connection")
	}
	return r.conn.Subscribe(subjectRoot+"."+token(ownerID)+".*", func(m *nats.Msg) {
		n, err := DecodeNotification(m.Data)
		if err != nil {
			r.log.Warn("dropping malformed notification", "subject", m.Subject, "error", err)
			return
		}
		fn(n)
	})
}

// Close drains the connection when the relay owns one.
func (r *Relay) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Drain()
}

// Subject is the NATS subject for ownerID's conversation with partnerID.
func Subject(ownerID, partnerID string) string {
	return subjectRoot + "." + token(ownerID) + "." + token(partnerID)
}

func DecodeNotification(data []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return Notification{}, err
	}
	if n.OwnerID == "" || n.PartnerID == "" || n.MessageID == "" {
		return Notification{}, fmt.Errorf("incomplete notification %q", data)
	}
	return n, nil
}

// notificationsFor mirrors the index entries written for msg: one per side,
// a single one for a note to self.
func notificationsFor(msg domain.Message) []Notification {
	out := []Notification{
		{OwnerID: msg.SenderID, PartnerID: msg.ReceiverID, MessageID: msg.ID, Timestamp: msg.Timestamp},
	}
	if msg.SenderID != msg.ReceiverID {
		out = append(out, Notification{OwnerID: msg.ReceiverID, PartnerID: msg.SenderID, MessageID: msg.ID, Timestamp: msg.Timestamp})
	}
	return out
}

var tokenReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")

func token(id string) string {
	return tokenReplacer.Replace(id)
}
