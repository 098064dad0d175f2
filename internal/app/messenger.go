package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/techbuddy/realtime/internal/core"
	"github.com/techbuddy/realtime/internal/domain"
)

// Messenger validates and relays chat messages: persist first, then
// broadcast to the room excluding the sender. If persistence fails the
// whole send fails and nothing reaches the room.
type Messenger struct {
	Registry *Registry
	Store    core.ChatStore
}

type messageReceived struct {
	Type      string        `json:"type"`
	SenderID  domain.UserID `json:"senderId"`
	FirstName string        `json:"firstName"`
	LastName  string        `json:"lastName"`
	Text      string        `json:"text"`
	Timestamp time.Time     `json:"timestamp"`
}

// Send appends one message to the conversation between the session's
// user and target, then fans it out to the target's room connections.
// The room is recomputed from the pair rather than read off the
// session: the payload names its own recipient, so a session may
// message a peer it never formally joined.
func (m *Messenger) Send(ctx context.Context, connID core.ConnID, target domain.UserID, firstName, lastName, text string) error {
	sess, ok := m.Registry.Get(connID)
	if !ok {
		return ErrNotRegistered
	}
	if !sess.Joined() {
		return ErrNotJoined
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	room := domain.DeriveRoomID(sess.UserID, target)

	conv, err := m.Store.FindOrCreateConversation(ctx, sess.UserID, target)
	if err != nil {
		return fmt.Errorf("find conversation: %w", err)
	}
	msg, err := m.Store.AppendMessage(ctx, conv, sess.UserID, text)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	frame, err := encodeFrame(messageReceived{
		Type:      "messageReceived",
		SenderID:  sess.UserID,
		FirstName: firstName,
		LastName:  lastName,
		Text:      msg.Text,
		Timestamp: msg.CreatedAt,
	})
	if err != nil {
		return err
	}
	for _, peer := range m.Registry.Peers(room, connID) {
		if err := peer.TrySend(frame); err != nil {
			// Slow or dying peers lose the live copy; the message is
			// already durable and shows up on their next fetch.
			log.Warn().Err(err).Str("module", "app.messenger").
				Str("room", string(room)).
				Msg("dropped live delivery")
		}
	}
	return nil
}
