package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"azurebot/internal/auth"
	"azurebot/internal/store"
)

// AdminHandler exposes a small operator surface: mint a bearer token from
// the master secret, then inspect the game servers registered for a guild.
// The auth route sits behind a per-IP rate limit applied in the router.
type AdminHandler struct {
	Servers     store.ServerStore
	TokenConfig auth.TokenConfig
	Log         zerolog.Logger
}

type adminAuthBody struct {
	Secret string `json:"secret"`
}

func (h *AdminHandler) Auth(c *gin.Context) {
	var body adminAuthBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if subtle.ConstantTimeCompare([]byte(body.Secret), []byte(h.TokenConfig.Secret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
		return
	}

	token, err := auth.CreateToken("admin", h.TokenConfig)
	if err != nil {
		h.Log.Error().Err(err).Msg("minting admin token failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *AdminHandler) ListServers(c *gin.Context) {
	guildID := c.Query("guild_id")
	if guildID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "guild_id is required"})
		return
	}

	servers, err := h.Servers.List(c.Request.Context(), guildID)
	if err != nil {
		h.Log.Error().Err(err).Str("guild_id", guildID).Msg("listing servers failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := make([]gin.H, 0, len(servers))
	for _, s := range servers {
		resp = append(resp, gin.H{
			"id":         s.ID,
			"name":       s.Name,
			"game":       s.Game,
			"resourceId": s.ResourceID,
			"currentSku": s.CurrentSku,
		})
	}
	c.JSON(http.StatusOK, gin.H{"servers": resp})
}
