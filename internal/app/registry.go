package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/techbuddy/realtime/internal/core"
	"github.com/techbuddy/realtime/internal/domain"
)

// Registry tracks live sessions by connection. It is process-wide
// mutable state with no durable invariants; a restart simply starts
// empty.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.ConnID]*core.Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.ConnID]*core.Session),
	}
}

// Register creates an empty session for a fresh connection. No-op if
// the connection is already known.
func (r *Registry) Register(id core.ConnID, sig core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; ok {
		return
	}
	r.sessions[id] = &core.Session{Conn: id, Signal: sig}
	log.Debug().Str("module", "app.registry").Str("conn", string(id)).Msg("registered connection")
}

// Join populates the chat context of a registered connection and
// derives its room. Idempotent: joining again switches peer and room
// without reconnecting the transport.
func (r *Registry) Join(id core.ConnID, userID, peerID domain.UserID, displayName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return ErrNotRegistered
	}
	sess.UserID = userID
	sess.PeerID = peerID
	sess.Room = domain.DeriveRoomID(userID, peerID)
	sess.DisplayName = domain.TruncateDisplayName(displayName)
	log.Info().Str("module", "app.registry").
		Str("conn", string(id)).
		Str("user", string(userID)).
		Str("room", string(sess.Room)).
		Msg("joined room")
	return nil
}

// Get returns a snapshot of the session for a connection.
func (r *Registry) Get(id core.ConnID) (core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	if !ok {
		return core.Session{}, false
	}
	return *sess, true
}

// Remove deletes the session and returns its last-known state so the
// caller can run teardown against the room it occupied.
func (r *Registry) Remove(id core.ConnID) (core.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return core.Session{}, false
	}
	delete(r.sessions, id)
	log.Debug().Str("module", "app.registry").Str("conn", string(id)).Msg("removed connection")
	return *sess, true
}

// Peers returns the connections of every session in a room except one.
// The excluded ConnID is the sender; relays never echo back.
func (r *Registry) Peers(room domain.RoomID, except core.ConnID) []core.SignalConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.SignalConnection, 0, 2)
	for id, sess := range r.sessions {
		if id == except || sess.Room != room {
			continue
		}
		out = append(out, sess.Signal)
	}
	return out
}
