package server

import (
	"crypto/ed25519"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"azurebot/internal/auth"
	"azurebot/internal/dispatch"
	"azurebot/internal/handler"
	"azurebot/internal/middleware"
	"azurebot/internal/queue"
	"azurebot/internal/store"
)

type Deps struct {
	PublicKey   ed25519.PublicKey
	Servers     store.ServerStore
	Queue       queue.Publisher
	TokenConfig auth.TokenConfig
	Log         zerolog.Logger
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	dispatcher := &dispatch.Dispatcher{Servers: deps.Servers, Queue: deps.Queue, Log: deps.Log}
	interactions := &handler.InteractionsHandler{Dispatcher: dispatcher, Log: deps.Log}
	r.POST("/api/interactions", middleware.VerifySignature(deps.PublicKey), interactions.Post)

	authRequestLimiter := middleware.NewRateLimiter(10, time.Minute)
	admin := &handler.AdminHandler{
		Servers:     deps.Servers,
		TokenConfig: deps.TokenConfig,
		Log:         deps.Log,
	}
	r.POST("/api/admin/auth", middleware.RateLimitMiddleware(authRequestLimiter), admin.Auth)

	protected := r.Group("/api/admin")
	protected.Use(middleware.RequireAuth(deps.TokenConfig))
	protected.GET("/servers", admin.ListServers)

	return r
}
