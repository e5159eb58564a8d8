//go:generate go run go.uber.org/mock/mockgen -source=message_repository.go -destination=../../mocks/mock_message_observer.go -package=mocks
package storage

import (
	"chat-inbox/contract"
	"chat-inbox/domain"
	"chat-inbox/errors"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MessageObserver hears about every message after it was committed.
type MessageObserver interface {
	MessageSent(ctx context.Context, msg domain.Message)
}

type diskMessage struct {
	ID        string  `json:"id"`
	FromID    string  `json:"fromId"`
	ToID      string  `json:"toId"`
	Text      string  `json:"text,omitempty"`
	Timestamp *int64  `json:"timestamp,omitempty"`
	ImageURL  *string `json:"imageUrl,omitempty"`
}

// MessageRepository is the embedded message feed.
//
// Messages live under "messages:{id}". Each participant gets an index entry
// "user-messages:{uid}:{partner}:{timestamp_padded}:{id}" so that a prefix
// scan lists partners, and a longer one lists a conversation in order.
//
// Callbacks never run on the caller's goroutine: they are queued and invoked
// by Run, which must be started (usually under the supervisor).
type MessageRepository struct {
	db        *badger.DB
	log       *slog.Logger
	now       func() time.Time
	hub       *feedHub
	observers []MessageObserver

	stampMu   sync.Mutex
	lastStamp int64
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, observers ...MessageObserver) *MessageRepository {
	return &MessageRepository{
		db:        db,
		log:       log,
		now:       time.Now,
		hub:       newFeedHub(),
		observers: observers,
	}
}

func (m *MessageRepository) GetName() contract.WorkerName { return "message_feed_dispatcher" }

func messageKey(id string) string { return "messages:" + id }

func partnersPrefix(uid string) string { return "user-messages:" + uid + ":" }

func conversationPrefix(uid, partnerID string) string {
	return partnersPrefix(uid) + partnerID + ":"
}

// checkKeySegments rejects ids that cannot be embedded in an index key.
// A ":" would let one user's prefix match another user's entries.
func checkKeySegments(ids ...string) error {
	for _, id := range ids {
		if id == "" || strings.Contains(id, ":") {
			return fmt.Errorf("%w: %q", errors.ErrInvalidUserID, id)
		}
	}
	return nil
}

func indexKey(uid, partnerID string, ts int64, id string) string {
	return fmt.Sprintf("%s%019d:%s", conversationPrefix(uid, partnerID), ts, id)
}

// Send stores a message from senderID to receiverID and notifies both sides.
func (m *MessageRepository) Send(ctx context.Context, senderID, receiverID, text string, imageURL *string) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	if err := checkKeySegments(senderID, receiverID); err != nil {
		return domain.Message{}, err
	}
	ts := m.stamp()
	msg, err := domain.NewMessage(uuid.NewString(), senderID, receiverID, text, &ts, imageURL)
	if err != nil {
		return domain.Message{}, err
	}
	data, err := encode(fromMessage(msg))
	if err != nil {
		return domain.Message{}, err
	}

	// Holding the hub lock across the commit keeps replays of concurrent
	// subscriptions and live notifications from overlapping.
	m.hub.mu.Lock()
	var senderIsNew, receiverIsNew bool
	err = m.db.Update(func(txn *badger.Txn) error {
		senderIsNew = !hasPrefix(txn, conversationPrefix(senderID, receiverID))
		receiverIsNew = senderID != receiverID && !hasPrefix(txn, conversationPrefix(receiverID, senderID))
		if err := txn.Set([]byte(messageKey(msg.ID)), data); err != nil {
			return err
		}
		if err := txn.Set([]byte(indexKey(senderID, receiverID, ts, msg.ID)), nil); err != nil {
			return err
		}
		if senderID == receiverID {
			return nil
		}
		return txn.Set([]byte(indexKey(receiverID, senderID, ts, msg.ID)), nil)
	})
	if err != nil {
		m.hub.mu.Unlock()
		return domain.Message{}, err
	}
	deliveries := m.hub.matchingLocked(senderID, receiverID, msg.ID, senderIsNew)
	if senderID != receiverID {
		deliveries = append(deliveries, m.hub.matchingLocked(receiverID, senderID, msg.ID, receiverIsNew)...)
	}
	m.hub.enqueue(deliveries...)
	m.hub.mu.Unlock()

	for _, o := range m.observers {
		o.MessageSent(ctx, msg)
	}
	m.log.Debug("Message stored", "message_id", msg.ID, "from", senderID, "to", receiverID)
	return msg, nil
}

// stamp returns a strictly increasing millisecond clock, so conversation
// index keys sort in send order even within the same millisecond.
func (m *MessageRepository) stamp() int64 {
	m.stampMu.Lock()
	defer m.stampMu.Unlock()
	ts := max(m.now().UnixMilli(), m.lastStamp+1)
	m.lastStamp = ts
	return ts
}

// OnPartnerAdded calls fn once per conversation partner of userID, existing
// ones first, then each new one as it appears.
func (m *MessageRepository) OnPartnerAdded(ctx context.Context, userID string, fn func(partnerID string)) (contract.Subscription, error) {
	if err := checkKeySegments(userID); err != nil {
		return nil, err
	}
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()

	keys, err := keysWithPrefix(m.db, partnersPrefix(userID))
	if err != nil {
		return nil, err
	}
	partners := lo.Uniq(lo.Map(keys, func(k string, _ int) string {
		partner, _, _ := strings.Cut(k, ":")
		return partner
	}))

	sub := m.hub.addLocked(ctx, partnerAdded, userID, "", fn)
	m.hub.enqueue(lo.Map(partners, func(p string, _ int) delivery {
		return delivery{sub: sub, value: p}
	})...)
	return sub, nil
}

// OnMessageAdded calls fn with every message id of the conversation between
// userID and partnerID, oldest first, then with each new one.
func (m *MessageRepository) OnMessageAdded(ctx context.Context, userID, partnerID string, fn func(messageID string)) (contract.Subscription, error) {
	if err := checkKeySegments(userID, partnerID); err != nil {
		return nil, err
	}
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()

	keys, err := keysWithPrefix(m.db, conversationPrefix(userID, partnerID))
	if err != nil {
		return nil, err
	}
	ids := lo.Map(keys, func(k string, _ int) string {
		_, id, _ := strings.Cut(k, ":")
		return id
	})

	sub := m.hub.addLocked(ctx, messageAdded, userID, partnerID, fn)
	m.hub.enqueue(lo.Map(ids, func(id string, _ int) delivery {
		return delivery{sub: sub, value: id}
	})...)
	return sub, nil
}

// FetchMessage is a one-shot read. A missing message is not an error.
func (m *MessageRepository) FetchMessage(ctx context.Context, messageID string) (domain.Message, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, false, err
	}
	var record diskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		return load(txn, messageKey(messageID), &record)
	})
	if err == badger.ErrKeyNotFound {
		return domain.Message{}, false, nil
	}
	if err != nil {
		return domain.Message{}, false, err
	}
	msg, err := toMessage(record)
	if err != nil {
		return domain.Message{}, false, err
	}
	return msg, true, nil
}

// Pending is the number of callbacks queued but not yet invoked.
func (m *MessageRepository) Pending() int { return m.hub.pending() }

// Run invokes queued callbacks until ctx is done.
func (m *MessageRepository) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			m.log.Debug("Context done, stopping feed dispatch", "pending", m.hub.pending())
			return nil
		case <-m.hub.signal:
			for _, d := range m.hub.drain() {
				if ctx.Err() != nil {
					return nil
				}
				if d.sub.cancelled.Load() {
					continue
				}
				d.sub.fn(d.value)
			}
		}
	}
}

func fromMessage(msg domain.Message) diskMessage {
	return diskMessage{
		ID:        msg.ID,
		FromID:    msg.SenderID,
		ToID:      msg.ReceiverID,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
		ImageURL:  msg.ImageURL,
	}
}

func toMessage(record diskMessage) (domain.Message, error) {
	return domain.NewMessage(record.ID, record.FromID, record.ToID, record.Text, record.Timestamp, record.ImageURL)
}
