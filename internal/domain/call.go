package domain

// CallStatus is the lifecycle state of a call inside a room. Terminal
// states have no value here: ended or rejected calls are simply removed.
type CallStatus string

const (
	CallRinging   CallStatus = "ringing"
	CallConnected CallStatus = "connected"
)

// CallState tracks the one active or pending call of a room. At most
// one CallState exists per RoomID; a fresh offer overwrites it.
type CallState struct {
	Room   RoomID
	Caller UserID
	Callee UserID
	Status CallStatus
}
