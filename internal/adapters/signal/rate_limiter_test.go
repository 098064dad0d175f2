package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMessageRateLimiter_BlocksOverLimit(t *testing.T) {
	req := require.New(t)
	rl := NewMessageRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		req.True(rl.Allow("alice"), "send %d should pass", i)
	}
	req.False(rl.Allow("alice"), "send over limit must be blocked")
}

func TestMessageRateLimiter_UsersAreIndependent(t *testing.T) {
	req := require.New(t)
	rl := NewMessageRateLimiter(1, time.Minute)

	req.True(rl.Allow("alice"))
	req.False(rl.Allow("alice"))
	req.True(rl.Allow("bob"))
}

func TestMessageRateLimiter_WindowExpires(t *testing.T) {
	req := require.New(t)
	rl := NewMessageRateLimiter(1, 20*time.Millisecond)

	req.True(rl.Allow("alice"))
	req.False(rl.Allow("alice"))

	time.Sleep(30 * time.Millisecond)
	req.True(rl.Allow("alice"), "old attempts should fall out of the window")
}
