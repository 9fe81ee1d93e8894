package http

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"roshambo/internal/store"
)

func (h *Handlers) Profile(c *gin.Context) {
	username := c.Param("username")

	u, ok := h.Users.FindUser(username)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	rank, err := h.Users.Rank(u.Username)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("username", username).Msg("rank")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": u, "rank": rank})
}

type renameRequest struct {
	NewUsername string `json:"new_username"`
}

func (h *Handlers) Rename(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request"})
		return
	}

	username := c.GetString("username")
	if err := h.Users.Rename(username, req.NewUsername); err != nil {
		switch {
		case errors.Is(err, store.ErrUsernameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, store.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	sess := sessions.Default(c)
	sess.Set("username", req.NewUsername)
	if err := sess.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("session save")
	}

	c.JSON(http.StatusOK, gin.H{"username": req.NewUsername})
}

func (h *Handlers) Leaderboard(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"board": h.Users.Leaderboard()})
}
