package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"azurebot/internal/discord"
	"azurebot/internal/dispatch"
)

// InteractionsHandler serves the Discord interactions webhook. Requests reach
// it only after signature verification.
type InteractionsHandler struct {
	Dispatcher *dispatch.Dispatcher
	Log        zerolog.Logger
}

func (h *InteractionsHandler) Post(c *gin.Context) {
	var interaction discord.Interaction
	if err := c.ShouldBindJSON(&interaction); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid interaction body"})
		return
	}

	callback, err := h.Dispatcher.Dispatch(c.Request.Context(), &interaction)
	if err != nil {
		// Schema-shape errors are deployment defects, not user mistakes.
		h.Log.Error().Err(err).Str("interaction_id", interaction.ID).Msg("interaction dispatch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "interaction could not be handled"})
		return
	}

	c.JSON(http.StatusOK, callback)
}
