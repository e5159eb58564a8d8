package storage

import (
	"context"
	"sync"
	"sync/atomic"
)

type subscriptionKind int

const (
	partnerAdded subscriptionKind = iota
	messageAdded
)

type subscription struct {
	id        uint64
	kind      subscriptionKind
	userID    string
	partnerID string
	fn        func(string)
	cancelled atomic.Bool
	hub       *feedHub
}

// Cancel stops deliveries, including the ones already queued.
func (s *subscription) Cancel() {
	if s.cancelled.Swap(true) {
		return
	}
	s.hub.remove(s.id)
}

type delivery struct {
	sub   *subscription
	value string
}

// feedHub tracks live subscriptions and queues callbacks for the dispatcher.
// The queue is unbounded so callbacks may subscribe again without blocking.
type feedHub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*subscription

	queueMu sync.Mutex
	queue   []delivery
	signal  chan struct{}
}

func newFeedHub() *feedHub {
	return &feedHub{
		subs:   make(map[uint64]*subscription),
		signal: make(chan struct{}, 1),
	}
}

// addLocked registers a subscription. Caller holds h.mu.
func (h *feedHub) addLocked(ctx context.Context, kind subscriptionKind, userID, partnerID string, fn func(string)) *subscription {
	h.nextID++
	sub := &subscription{id: h.nextID, kind: kind, userID: userID, partnerID: partnerID, fn: fn, hub: h}
	h.subs[sub.id] = sub
	context.AfterFunc(ctx, sub.Cancel)
	return sub
}

func (h *feedHub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// matchingLocked returns deliveries for a new index entry. Caller holds h.mu.
func (h *feedHub) matchingLocked(userID, partnerID, messageID string, newPartner bool) []delivery {
	var out []delivery
	for _, sub := range h.subs {
		if sub.userID != userID {
			continue
		}
		switch {
		case sub.kind == partnerAdded && newPartner:
			out = append(out, delivery{sub: sub, value: partnerID})
		case sub.kind == messageAdded && sub.partnerID == partnerID:
			out = append(out, delivery{sub: sub, value: messageID})
		}
	}
	return out
}

func (h *feedHub) enqueue(deliveries ...delivery) {
	if len(deliveries) == 0 {
		return
	}
	h.queueMu.Lock()
	h.queue = append(h.queue, deliveries...)
	h.queueMu.Unlock()
	select {
	case h.signal <- struct{}{}:
	default:
	}
}

func (h *feedHub) drain() []delivery {
	h.queueMu.Lock()
	defer h.queueMu.Unlock()
	batch := h.queue
	h.queue = nil
	return batch
}

func (h *feedHub) pending() int {
	h.queueMu.Lock()
	defer h.queueMu.Unlock()
	return len(h.queue)
}
