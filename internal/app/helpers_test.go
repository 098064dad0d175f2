package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/techbuddy/realtime/internal/core"
	"github.com/techbuddy/realtime/internal/domain"
)

// fakeConn captures outbound frames so tests can inspect relays
// without a real transport.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func newFakeConn() *fakeConn { return &fakeConn{} }

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

func (c *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err != nil {
			t.Fatalf("bad frame %q: %v", f, err)
		}
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) eventTypes(t *testing.T) []string {
	t.Helper()
	var types []string
	for _, e := range c.events(t) {
		types = append(types, e["type"].(string))
	}
	return types
}

// memStore is an in-memory ChatStore for router tests; failAppend
// simulates a persistence outage.
type memStore struct {
	mu         sync.Mutex
	convs      map[string]*memConv
	failAppend bool
}

type memConv struct {
	conv     domain.Conversation
	messages []domain.Message
}

func newMemStore() *memStore {
	return &memStore{convs: make(map[string]*memConv)}
}

func pairKey(a, b domain.UserID) string {
	lo, hi := domain.ParticipantPair(a, b)
	return string(lo) + "|" + string(hi)
}

func (s *memStore) FindOrCreateConversation(_ context.Context, a, b domain.UserID) (domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(a, b)
	if c, ok := s.convs[key]; ok {
		return c.conv, nil
	}
	lo, hi := domain.ParticipantPair(a, b)
	c := &memConv{conv: domain.Conversation{
		ID:            key,
		ParticipantLo: lo,
		ParticipantHi: hi,
		CreatedAt:     time.Now(),
	}}
	s.convs[key] = c
	return c.conv, nil
}

func (s *memStore) AppendMessage(_ context.Context, conv domain.Conversation, sender domain.UserID, text string) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAppend {
		return domain.Message{}, errors.New("store unavailable")
	}
	c, ok := s.convs[conv.ID]
	if !ok {
		return domain.Message{}, errors.New("unknown conversation")
	}
	msg := domain.Message{
		ID:        conv.ID + "-" + time.Now().Format("150405.000000000"),
		SenderID:  sender,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	c.messages = append(c.messages, msg)
	return msg, nil
}

func (s *memStore) FetchMessages(_ context.Context, conv domain.Conversation) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[conv.ID]
	if !ok {
		return nil, errors.New("unknown conversation")
	}
	return append([]domain.Message(nil), c.messages...), nil
}
