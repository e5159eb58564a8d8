// Package domain contains core concepts of the chat inbox.
// This file defines Message records and the partner they belong to.
// Messages are immutable once created.
package domain

import (
	"chat-inbox/errors"
	"fmt"
)

// Message is a single one-to-one chat record.
// Timestamp is a logical clock, nil when the record carried none.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Text       string
	Timestamp  *int64
	ImageURL   *string
}

// NewMessage validates the presence of the identifying fields.
func NewMessage(id, senderID, receiverID, text string, timestamp *int64, imageURL *string) (Message, error) {
	msg := Message{
		ID:         id,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Timestamp:  timestamp,
		ImageURL:   imageURL,
	}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

func (m Message) Validate() error {
	switch {
	case m.ID == "":
		return fmt.Errorf("%w: missing id", errors.ErrInvalidMessage)
	case m.SenderID == "":
		return fmt.Errorf("%w: missing sender for %s", errors.ErrInvalidMessage, m.ID)
	case m.ReceiverID == "":
		return fmt.Errorf("%w: missing receiver for %s", errors.ErrInvalidMessage, m.ID)
	}
	return nil
}

// ChatPartnerID returns the participant that is not currentUserID.
// The boolean is false when the message does not involve currentUserID.
func (m Message) ChatPartnerID(currentUserID string) (ConversationKey, bool) {
	switch currentUserID {
	case m.SenderID:
		return ConversationKey(m.ReceiverID), true
	case m.ReceiverID:
		return ConversationKey(m.SenderID), true
	default:
		return "", false
	}
}

// HasTimestamp reports whether the logical clock is present.
func (m Message) HasTimestamp() bool {
	return m.Timestamp != nil
}

// ConversationKey identifies a conversation bucket by partner user id.
type ConversationKey string
