package app

import (
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/techbuddy/realtime/internal/core"
	"github.com/techbuddy/realtime/internal/domain"
)

// Orchestrator is the coordinating service behind the transport: it
// owns the registry and the call board and performs every relay. It is
// constructed once at process start and handed to the adapters; tests
// construct fresh instances with fake connections.
type Orchestrator struct {
	Registry  *Registry
	Calls     *CallBoard
	Messenger *Messenger
}

func NewOrchestrator(store core.ChatStore) *Orchestrator {
	reg := NewRegistry()
	return &Orchestrator{
		Registry:  reg,
		Calls:     NewCallBoard(),
		Messenger: &Messenger{Registry: reg, Store: store},
	}
}

// OnConnect registers a fresh transport connection with an empty
// session.
func (o *Orchestrator) OnConnect(id core.ConnID, sig core.SignalConnection) {
	o.Registry.Register(id, sig)
}

// JoinChat binds the connection to a user and its current chat peer.
func (o *Orchestrator) JoinChat(id core.ConnID, firstName string, userID, targetUserID domain.UserID) error {
	return o.Registry.Join(id, userID, targetUserID, firstName)
}

// OfferCall stores a ringing call for the pair's room and relays the
// offer to the callee's connections. A second offer to the same room
// overwrites the first: last offer wins.
func (o *Orchestrator) OfferCall(id core.ConnID, targetUserID domain.UserID, offer webrtc.SessionDescription) error {
	sess, ok := o.Registry.Get(id)
	if !ok {
		return ErrNotRegistered
	}
	if !sess.Joined() {
		return ErrNotJoined
	}
	room := domain.DeriveRoomID(sess.UserID, targetUserID)
	o.Calls.Offer(room, sess.UserID, targetUserID)

	callerName := sess.DisplayName
	if callerName == "" {
		callerName = "Unknown User"
	}
	return o.emit(room, id, struct {
		Type       string                    `json:"type"`
		Offer      webrtc.SessionDescription `json:"offer"`
		CallerID   domain.UserID             `json:"callerId"`
		CallerName string                    `json:"callerName"`
	}{"incoming-video-call", offer, sess.UserID, callerName})
}

// AnswerCall moves the room's call to connected and relays the answer
// back toward the caller. Answering a room with no pending call fails
// with ErrNoCall.
func (o *Orchestrator) AnswerCall(id core.ConnID, callerID domain.UserID, answer webrtc.SessionDescription) error {
	sess, ok := o.Registry.Get(id)
	if !ok {
		return ErrNotRegistered
	}
	if !sess.Joined() {
		return ErrNotJoined
	}
	room := domain.DeriveRoomID(callerID, sess.UserID)
	if _, err := o.Calls.Answer(room); err != nil {
		return err
	}
	return o.emit(room, id, struct {
		Type     string                    `json:"type"`
		Answer   webrtc.SessionDescription `json:"answer"`
		CalleeID domain.UserID             `json:"calleeId"`
	}{"video-call-answered", answer, sess.UserID})
}

// RelayCandidate forwards an ICE candidate to the rest of the room.
// Candidates are opaque: no call state is required or touched.
func (o *Orchestrator) RelayCandidate(id core.ConnID, targetUserID domain.UserID, cand webrtc.ICECandidateInit) error {
	sess, ok := o.Registry.Get(id)
	if !ok {
		return ErrNotRegistered
	}
	if !sess.Joined() {
		return ErrNotJoined
	}
	room := domain.DeriveRoomID(sess.UserID, targetUserID)
	return o.emit(room, id, struct {
		Type      string                  `json:"type"`
		Candidate webrtc.ICECandidateInit `json:"candidate"`
		SenderID  domain.UserID           `json:"senderId"`
	}{"ice-candidate", cand, sess.UserID})
}

// EndCall clears the room's call entry and tells the peer. The relay
// happens whether or not an entry existed, so stale tabs still drop
// their call UI.
func (o *Orchestrator) EndCall(id core.ConnID, targetUserID domain.UserID) error {
	sess, ok := o.Registry.Get(id)
	if !ok {
		return ErrNotRegistered
	}
	if !sess.Joined() {
		return ErrNotJoined
	}
	room := domain.DeriveRoomID(sess.UserID, targetUserID)
	o.Calls.Drop(room)
	return o.emit(room, id, struct {
		Type    string        `json:"type"`
		EndedBy domain.UserID `json:"endedBy"`
	}{"call-ended", sess.UserID})
}

// RejectCall clears the ringing entry and notifies the caller.
func (o *Orchestrator) RejectCall(id core.ConnID, callerID domain.UserID) error {
	sess, ok := o.Registry.Get(id)
	if !ok {
		return ErrNotRegistered
	}
	if !sess.Joined() {
		return ErrNotJoined
	}
	room := domain.DeriveRoomID(callerID, sess.UserID)
	o.Calls.Drop(room)
	return o.emit(room, id, struct {
		Type       string        `json:"type"`
		RejectedBy domain.UserID `json:"rejectedBy"`
	}{"call-rejected", sess.UserID})
}

// OnDisconnect runs on every connection loss regardless of cause. The
// session is removed first; if its room held a call, the call is torn
// down and the remaining party told exactly once.
func (o *Orchestrator) OnDisconnect(id core.ConnID) {
	sess, ok := o.Registry.Remove(id)
	if !ok {
		return
	}
	if sess.Room == "" {
		return
	}
	if _, had := o.Calls.Drop(sess.Room); !had {
		return
	}
	err := o.emit(sess.Room, id, struct {
		Type    string        `json:"type"`
		EndedBy domain.UserID `json:"endedBy"`
		Reason  string        `json:"reason"`
	}{"call-ended", sess.UserID, "user_disconnected"})
	if err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").
			Str("room", string(sess.Room)).
			Msg("disconnect teardown relay")
	}
}

// emit encodes v once and hands it to every room connection except the
// sender's. An empty room is a silent no-op; backpressure drops are
// logged, not surfaced.
func (o *Orchestrator) emit(room domain.RoomID, except core.ConnID, v any) error {
	frame, err := encodeFrame(v)
	if err != nil {
		return err
	}
	for _, peer := range o.Registry.Peers(room, except) {
		if err := peer.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.orchestrator").
				Str("room", string(room)).
				Msg("dropped relay frame")
		}
	}
	return nil
}

func encodeFrame(v any) (core.Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return core.Frame(b), nil
}
