package signal

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/techbuddy/realtime/internal/app"
	"github.com/techbuddy/realtime/internal/config"
	"github.com/techbuddy/realtime/internal/core"
	"github.com/techbuddy/realtime/internal/domain"
)

type captureConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (c *captureConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *captureConn) Close() {}

func (c *captureConn) decoded(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

type stubStore struct {
	mu       sync.Mutex
	messages []domain.Message
}

func (s *stubStore) FindOrCreateConversation(_ context.Context, a, b domain.UserID) (domain.Conversation, error) {
	lo, hi := domain.ParticipantPair(a, b)
	return domain.Conversation{ID: string(lo) + "|" + string(hi), ParticipantLo: lo, ParticipantHi: hi}, nil
}

func (s *stubStore) AppendMessage(_ context.Context, _ domain.Conversation, sender domain.UserID, text string) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := domain.Message{ID: "m1", SenderID: sender, Text: text, CreatedAt: time.Now().UTC()}
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *stubStore) FetchMessages(_ context.Context, _ domain.Conversation) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.messages...), nil
}

func testController(limit int) (*Controller, *app.Orchestrator) {
	cfg := &config.Config{
		AllowedOrigin:   "http://localhost:5173",
		ReadLimit:       1024,
		PingPeriod:      time.Second,
		MsgRateLimit:    limit,
		MsgRateInterval: time.Minute,
	}
	orch := app.NewOrchestrator(&stubStore{})
	return NewController(cfg, orch), orch
}

func join(t *testing.T, ctl *Controller, orch *app.Orchestrator, id core.ConnID, user, peer string) *captureConn {
	t.Helper()
	conn := &captureConn{}
	orch.OnConnect(id, conn)
	ctl.handleEvent(id, conn, []byte(`{"type":"joinChat","firstName":"`+user+`","userId":"`+user+`","targetUserId":"`+peer+`"}`))
	return conn
}

func TestHandleEvent_DispatchesSendMessage(t *testing.T) {
	req := require.New(t)
	ctl, orch := testController(10)
	a := join(t, ctl, orch, "a1", "alice", "bob")
	b := join(t, ctl, orch, "b1", "bob", "alice")

	ctl.handleEvent("a1", a, []byte(`{"type":"sendMessage","firstName":"alice","lastName":"d","userId":"alice","targetUserId":"bob","text":"hello"}`))

	req.Empty(a.decoded(t))
	events := b.decoded(t)
	req.Len(events, 1)
	req.Equal("messageReceived", events[0]["type"])
	req.Equal("hello", events[0]["text"])
}

func TestHandleEvent_BadJSONAndUnknownTypeAreDropped(t *testing.T) {
	req := require.New(t)
	ctl, orch := testController(10)
	a := join(t, ctl, orch, "a1", "alice", "bob")

	ctl.handleEvent("a1", a, []byte(`{not json`))
	ctl.handleEvent("a1", a, []byte(`{"type":"no-such-event"}`))

	req.Empty(a.decoded(t))
}

func TestHandleEvent_SendBeforeJoinReturnsError(t *testing.T) {
	req := require.New(t)
	ctl, orch := testController(10)
	conn := &captureConn{}
	orch.OnConnect("a1", conn)

	ctl.handleEvent("a1", conn, []byte(`{"type":"sendMessage","userId":"alice","targetUserId":"bob","text":"hi"}`))

	events := conn.decoded(t)
	req.Len(events, 1)
	req.Equal("error", events[0]["type"])
	req.Equal("sendMessage", events[0]["event"])
}

func TestHandleEvent_RateLimitedSendIsRejected(t *testing.T) {
	req := require.New(t)
	ctl, orch := testController(1)
	a := join(t, ctl, orch, "a1", "alice", "bob")
	b := join(t, ctl, orch, "b1", "bob", "alice")

	payload := []byte(`{"type":"sendMessage","userId":"alice","targetUserId":"bob","text":"hi"}`)
	ctl.handleEvent("a1", a, payload)
	ctl.handleEvent("a1", a, payload)

	req.Len(b.decoded(t), 1, "second send is over the limit")
	events := a.decoded(t)
	req.Len(events, 1)
	req.Equal("error", events[0]["type"])
}

func TestHandleEvent_CallOfferRoundTrip(t *testing.T) {
	req := require.New(t)
	ctl, orch := testController(10)
	a := join(t, ctl, orch, "a1", "alice", "bob")
	b := join(t, ctl, orch, "b1", "bob", "alice")

	ctl.handleEvent("a1", a, []byte(`{"type":"video-call-offer","targetUserId":"bob","offer":{"type":"offer","sdp":"v=0\r\n"}}`))

	events := b.decoded(t)
	req.Len(events, 1)
	req.Equal("incoming-video-call", events[0]["type"])
	req.Equal("alice", events[0]["callerId"])

	ctl.handleEvent("b1", b, []byte(`{"type":"video-call-answer","callerId":"alice","answer":{"type":"answer","sdp":"v=0\r\n"}}`))

	aEvents := a.decoded(t)
	req.Len(aEvents, 1)
	req.Equal("video-call-answered", aEvents[0]["type"])
}
