// Package signal is the websocket transport adapter: it owns the
// connection lifecycle and dispatches inbound events to the app layer.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/techbuddy/realtime/internal/app"
	"github.com/techbuddy/realtime/internal/config"
	"github.com/techbuddy/realtime/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Orch     *app.Orchestrator
	Limiter  *MessageRateLimiter
	cfg      *config.Config
	upgrader websocket.Upgrader
	handlers map[string]eventHandler
}

func NewController(cfg *config.Config, orch *app.Orchestrator) *Controller {
	ctl := &Controller{
		Orch:    orch,
		Limiter: NewMessageRateLimiter(cfg.MsgRateLimit, cfg.MsgRateInterval),
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Exact match against the configured front-end origin.
				// Requests without an Origin header are not browsers and
				// pass through to whatever auth layer sits in front.
				origin := r.Header.Get("Origin")
				return origin == "" || origin == cfg.AllowedOrigin
			},
		},
	}
	ctl.handlers = map[string]eventHandler{
		"joinChat":          ctl.handleJoinChat,
		"sendMessage":       ctl.handleSendMessage,
		"video-call-offer":  ctl.handleCallOffer,
		"video-call-answer": ctl.handleCallAnswer,
		"ice-candidate":     ctl.handleCandidate,
		"end-call":          ctl.handleEndCall,
		"reject-call":       ctl.handleRejectCall,
	}
	return ctl
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// HandleWS upgrades the request and starts the connection's pumps.
// Every connection gets its own ConnID so multiple tabs of one user
// stay independently addressable.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	id := core.ConnID(uuid.NewString())
	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	log.Info().Str("module", "signal").Str("conn", string(id)).Msg("new WS connection")

	ctl.Orch.OnConnect(id, conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, id, conn)
}
