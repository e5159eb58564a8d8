package domain

import (
	"slices"

	"github.com/samber/lo"
)

// Inbox is the materialized conversation list: one message per partner,
// most recent first. It is rebuilt wholesale, never patched.
type Inbox []Message

// Reduce builds an Inbox from an unordered store snapshot.
// Messages without a timestamp never rank above one that has it and keep
// their relative input order among themselves.
func Reduce(snapshot []Message) Inbox {
	inbox := make(Inbox, len(snapshot))
	copy(inbox, snapshot)
	slices.SortStableFunc(inbox, compareRecency)
	return inbox
}

func compareRecency(a, b Message) int {
	switch {
	case a.Timestamp == nil && b.Timestamp == nil:
		return 0
	case a.Timestamp == nil:
		return 1
	case b.Timestamp == nil:
		return -1
	case *a.Timestamp > *b.Timestamp:
		return -1
	case *a.Timestamp < *b.Timestamp:
		return 1
	default:
		return 0
	}
}

// Partners lists the conversation keys in view order.
func (i Inbox) Partners(currentUserID string) []ConversationKey {
	return lo.FilterMap(i, func(m Message, _ int) (ConversationKey, bool) {
		return m.ChatPartnerID(currentUserID)
	})
}
