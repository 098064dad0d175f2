package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/techbuddy/realtime/internal/adapters/signal"
	"github.com/techbuddy/realtime/internal/config"
	"github.com/techbuddy/realtime/internal/core"
	"github.com/techbuddy/realtime/internal/domain"
)

// ClientTokenMiddleware issues an opaque cookie token per browser. The
// out-of-scope auth layer replaces this with real identity; the token
// only keeps a stable handle on a returning client.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *signal.Controller, store core.ChatStore) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware(cfg.AllowedOrigin))

	cookieStore := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("TechBuddySessions", cookieStore))
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "adapters.http").Str("origin", cfg.AllowedOrigin).Msg("router setup")

	api := r.Group("/api")

	api.GET("/ws/chat", func(c *gin.Context) {
		ctl.HandleWS(ctx, c)
	})

	api.GET("/chat/:targetUserId", func(c *gin.Context) {
		handleChatHistory(c, store)
	})

	return r
}

// handleChatHistory serves the durable side of a conversation so a
// client can render history before (or without) a live connection.
func handleChatHistory(c *gin.Context, store core.ChatStore) {
	userID := domain.UserID(c.Query("userId"))
	targetID := domain.UserID(c.Param("targetUserId"))
	if userID == "" || targetID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and targetUserId required"})
		return
	}

	conv, err := store.FindOrCreateConversation(c.Request.Context(), userID, targetID)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("find conversation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}
	messages, err := store.FetchMessages(c.Request.Context(), conv)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("fetch messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
