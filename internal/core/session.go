package core

import "github.com/techbuddy/realtime/internal/domain"

// Session binds a transport connection to its chat context. Created
// empty on connect, populated by joinChat, destroyed on disconnect.
// Never persisted.
type Session struct {
	Conn   ConnID
	Signal SignalConnection

	UserID      domain.UserID
	PeerID      domain.UserID
	Room        domain.RoomID
	DisplayName string
}

// Joined reports whether a joinChat populated the chat context.
func (s *Session) Joined() bool {
	return s.UserID != ""
}
