// Package projection builds the local conversation list from observed messages.
// Handles per-partner reduction, debounced rebuilds and publication.
// Does not render anything itself.
package projection

import (
	"chat-inbox/domain"
	"log/slog"
	"sync"

	"github.com/samber/lo"
)

// Scheduler is notified after every mutation of the store.
type Scheduler interface {
	Schedule()
}

// MessageStore keeps the last arrived message per conversation partner.
type MessageStore struct {
	log       *slog.Logger
	owner     string
	scheduler Scheduler

	mu      sync.Mutex
	entries map[domain.ConversationKey]domain.Message
}

func NewMessageStore(log *slog.Logger, owner string, scheduler Scheduler) *MessageStore {
	return &MessageStore{
		log:       log,
		owner:     owner,
		scheduler: scheduler,
		entries:   make(map[domain.ConversationKey]domain.Message),
	}
}

// RecordArrival overwrites the entry of the message's partner and asks for
// a rebuild. Messages not involving the owner are dropped.
func (s *MessageStore) RecordArrival(msg domain.Message) bool {
	partner, ok := msg.ChatPartnerID(s.owner)
	if !ok {
		s.log.Debug("Dropping message not addressed to owner", "message_id", msg.ID, "owner", s.owner)
		return false
	}

	s.mu.Lock()
	s.entries[partner] = msg
	s.mu.Unlock()

	s.scheduler.Schedule()
	return true
}

// Snapshot returns the stored messages in no particular order.
func (s *MessageStore) Snapshot() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Values(s.entries)
}

func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Reset forgets every entry without scheduling a rebuild.
func (s *MessageStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.entries)
}
