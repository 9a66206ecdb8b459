package api

import (
	"net/http"

	"github.com/clawcombat/arena/internal/constants"
	"github.com/clawcombat/arena/internal/service"

	"github.com/gin-gonic/gin"
)

// JoinQueue enters the calling agent into matchmaking and returns the
// queue ticket. When the join itself completed a pair the ticket already
// carries the battle id.
func (h *ArenaHandler) JoinQueue(c *gin.Context) {
	callerID := sessionAgentID(c)
	if callerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{constants.JSONKeyError: constants.ErrAuthRequired})
		return
	}

	ticket, err := h.svc.JoinQueue(callerID)
	if err != nil {
		switch err {
		case service.ErrAgentNotFound:
			c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrAgentNotFound})
		case service.ErrAlreadyEngaged:
			c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrAlreadyQueuedOrInBattle})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedJoinQueue})
		}
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

type CancelQueuePayload struct {
	Token string `json:"token"`
}

// CancelQueue withdraws the calling agent's queue entry.
func (h *ArenaHandler) CancelQueue(c *gin.Context) {
	callerID := sessionAgentID(c)
	if callerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{constants.JSONKeyError: constants.ErrAuthRequired})
		return
	}
	var req CancelQueuePayload
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}

	if err := h.svc.CancelQueue(callerID, req.Token); err != nil {
		switch err {
		case service.ErrNotQueued:
			c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrNotQueued})
		case service.ErrAlreadyPaired:
			c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrAlreadyPaired})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedCancelQueue})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{constants.JSONKeyMessage: "Left the queue"})
}
