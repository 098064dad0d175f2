package core

import (
	"context"

	"github.com/techbuddy/realtime/internal/domain"
)

// Frame is a raw outbound payload, already encoded for the wire.
type Frame []byte

// ConnID identifies one live transport connection. A user with several
// tabs holds several ConnIDs.
type ConnID string

// SignalConnection abstracts the client-facing messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// ChatStore is the durable conversation gateway. Implementations must
// guarantee a single conversation per unordered participant pair, even
// under concurrent first-message races.
type ChatStore interface {
	FindOrCreateConversation(ctx context.Context, a, b domain.UserID) (domain.Conversation, error)
	AppendMessage(ctx context.Context, conv domain.Conversation, sender domain.UserID, text string) (domain.Message, error)
	FetchMessages(ctx context.Context, conv domain.Conversation) ([]domain.Message, error)
}
