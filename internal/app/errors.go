package app

import "errors"

var (
	// ErrNotRegistered is returned when an event references a
	// connection the registry never saw.
	ErrNotRegistered = errors.New("connection not registered")

	// ErrNotJoined is returned when a chat or signaling event arrives
	// before joinChat established the session's user identity.
	ErrNotJoined = errors.New("session has not joined a chat")

	// ErrEmptyMessage is returned for messages that are empty after
	// trimming whitespace.
	ErrEmptyMessage = errors.New("message text is empty")

	// ErrNoCall is returned for an answer targeting a room with no
	// pending call.
	ErrNoCall = errors.New("no active call for room")
)
