package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/techbuddy/realtime/internal/domain"
)

// CallBoard owns the per-room call state. All transitions of the call
// lifecycle go through its methods; callers never mutate CallState
// directly. Terminal transitions delete the entry, so a room is either
// absent (idle), ringing, or connected.
type CallBoard struct {
	mu    sync.Mutex
	calls map[domain.RoomID]domain.CallState
}

func NewCallBoard() *CallBoard {
	return &CallBoard{
		calls: make(map[domain.RoomID]domain.CallState),
	}
}

// Offer records a ringing call. An existing entry for the room is
// overwritten: last offer wins, no queuing of concurrent attempts.
func (b *CallBoard) Offer(room domain.RoomID, caller, callee domain.UserID) domain.CallState {
	b.mu.Lock()
	defer b.mu.Unlock()
	state := domain.CallState{
		Room:   room,
		Caller: caller,
		Callee: callee,
		Status: domain.CallRinging,
	}
	b.calls[room] = state
	log.Info().Str("module", "app.calls").
		Str("room", string(room)).
		Str("caller", string(caller)).
		Msg("call ringing")
	return state
}

// Answer moves a ringing call to connected. Answering a room with no
// pending call fails with ErrNoCall.
func (b *CallBoard) Answer(room domain.RoomID) (domain.CallState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.calls[room]
	if !ok {
		return domain.CallState{}, ErrNoCall
	}
	state.Status = domain.CallConnected
	b.calls[room] = state
	log.Info().Str("module", "app.calls").Str("room", string(room)).Msg("call connected")
	return state, nil
}

// Drop removes the call entry for a room, reporting whether one
// existed. End, reject, and disconnect teardown all land here.
func (b *CallBoard) Drop(room domain.RoomID) (domain.CallState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.calls[room]
	if !ok {
		return domain.CallState{}, false
	}
	delete(b.calls, room)
	log.Info().Str("module", "app.calls").Str("room", string(room)).Msg("call cleared")
	return state, true
}

// Get returns the call state of a room, if any.
func (b *CallBoard) Get(room domain.RoomID) (domain.CallState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.calls[room]
	return state, ok
}

// Active reports how many rooms currently hold a call entry.
func (b *CallBoard) Active() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}
