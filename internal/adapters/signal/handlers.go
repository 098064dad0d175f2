package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/techbuddy/realtime/internal/core"
	"github.com/techbuddy/realtime/internal/domain"
)

// eventHandler is the uniform shape of every inbound event handler.
// The reply connection is only used for error frames back to the
// originator; relays to the room go through the orchestrator.
type eventHandler func(id core.ConnID, reply core.SignalConnection, data []byte)

func (ctl *Controller) handleEvent(id core.ConnID, reply core.SignalConnection, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	h, ok := ctl.handlers[env.Type]
	if !ok {
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown event")
		return
	}
	h(id, reply, data)
}

func (ctl *Controller) sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(core.Frame(b))
}

// sendError surfaces a handler failure to the originating connection
// only. Peers never learn about it.
func (ctl *Controller) sendError(c core.SignalConnection, event string, err error) {
	ctl.sendJSON(c, struct {
		Type  string `json:"type"`
		Event string `json:"event"`
		Error string `json:"error"`
	}{"error", event, err.Error()})
}

func (ctl *Controller) handleJoinChat(id core.ConnID, reply core.SignalConnection, data []byte) {
	var p struct {
		FirstName    string        `json:"firstName"`
		UserID       domain.UserID `json:"userId"`
		TargetUserID domain.UserID `json:"targetUserId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad joinChat payload")
		ctl.sendError(reply, "joinChat", errors.New("bad_payload"))
		return
	}
	if err := ctl.Orch.JoinChat(id, p.FirstName, p.UserID, p.TargetUserID); err != nil {
		ctl.sendError(reply, "joinChat", err)
	}
}

func (ctl *Controller) handleSendMessage(id core.ConnID, reply core.SignalConnection, data []byte) {
	var p struct {
		FirstName    string        `json:"firstName"`
		LastName     string        `json:"lastName"`
		UserID       domain.UserID `json:"userId"`
		TargetUserID domain.UserID `json:"targetUserId"`
		Text         string        `json:"text"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad sendMessage payload")
		ctl.sendError(reply, "sendMessage", errors.New("bad_payload"))
		return
	}
	if !ctl.Limiter.Allow(p.UserID) {
		ctl.sendError(reply, "sendMessage", errors.New("rate_limited"))
		return
	}
	if err := ctl.Orch.Messenger.Send(context.Background(), id, p.TargetUserID, p.FirstName, p.LastName, p.Text); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("sendMessage failed")
		ctl.sendError(reply, "sendMessage", err)
	}
}

func (ctl *Controller) handleCallOffer(id core.ConnID, reply core.SignalConnection, data []byte) {
	var p struct {
		Offer        webrtc.SessionDescription `json:"offer"`
		TargetUserID domain.UserID             `json:"targetUserId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad offer payload")
		ctl.sendError(reply, "video-call-offer", errors.New("bad_payload"))
		return
	}
	if err := ctl.Orch.OfferCall(id, p.TargetUserID, p.Offer); err != nil {
		ctl.sendError(reply, "video-call-offer", err)
	}
}

func (ctl *Controller) handleCallAnswer(id core.ConnID, reply core.SignalConnection, data []byte) {
	var p struct {
		Answer   webrtc.SessionDescription `json:"answer"`
		CallerID domain.UserID             `json:"callerId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad answer payload")
		ctl.sendError(reply, "video-call-answer", errors.New("bad_payload"))
		return
	}
	if err := ctl.Orch.AnswerCall(id, p.CallerID, p.Answer); err != nil {
		ctl.sendError(reply, "video-call-answer", err)
	}
}

func (ctl *Controller) handleCandidate(id core.ConnID, reply core.SignalConnection, data []byte) {
	var p struct {
		Candidate    webrtc.ICECandidateInit `json:"candidate"`
		TargetUserID domain.UserID           `json:"targetUserId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad candidate payload")
		return
	}
	if err := ctl.Orch.RelayCandidate(id, p.TargetUserID, p.Candidate); err != nil {
		// Candidates are best-effort; log and move on.
		log.Debug().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("candidate dropped")
	}
}

func (ctl *Controller) handleEndCall(id core.ConnID, reply core.SignalConnection, data []byte) {
	var p struct {
		TargetUserID domain.UserID `json:"targetUserId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad end-call payload")
		return
	}
	if err := ctl.Orch.EndCall(id, p.TargetUserID); err != nil {
		ctl.sendError(reply, "end-call", err)
	}
}

func (ctl *Controller) handleRejectCall(id core.ConnID, reply core.SignalConnection, data []byte) {
	var p struct {
		CallerID domain.UserID `json:"callerId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad reject-call payload")
		return
	}
	if err := ctl.Orch.RejectCall(id, p.CallerID); err != nil {
		ctl.sendError(reply, "reject-call", err)
	}
}
