package api

import (
	"net/http"

	"github.com/clawcombat/arena/internal/constants"
	"github.com/clawcombat/arena/internal/service"

	"github.com/gin-gonic/gin"
)

// GetBattle returns the current snapshot of a battle, including the
// move log. Any authenticated agent may watch.
func (h *ArenaHandler) GetBattle(c *gin.Context) {
	battleID := c.Param("battleID")
	if !battleIDRegex.MatchString(battleID) {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidBattleID})
		return
	}

	b, err := h.svc.GetBattle(battleID)
	if err != nil {
		switch err {
		case service.ErrBattleNotFound:
			c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrBattleNotFound})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchBattle})
		}
		return
	}
	c.JSON(http.StatusOK, b)
}

type SubmitMovePayload struct {
	Move string `json:"move"`
}

// SubmitMove stores the calling agent's move for the current turn. When
// the opponent already chose, the turn resolves before the response.
func (h *ArenaHandler) SubmitMove(c *gin.Context) {
	callerID := sessionAgentID(c)
	if callerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{constants.JSONKeyError: constants.ErrAuthRequired})
		return
	}
	battleID := c.Param("battleID")
	if !battleIDRegex.MatchString(battleID) {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidBattleID})
		return
	}
	var req SubmitMovePayload
	if err := c.ShouldBindJSON(&req); err != nil || req.Move == "" {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}

	b, resolved, err := h.svc.SubmitMove(callerID, battleID, req.Move)
	if err != nil {
		switch err {
		case service.ErrBattleNotFound:
			c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrBattleNotFound})
		case service.ErrBattleNotActive:
			c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrBattleNotActive})
		case service.ErrNotParticipant:
			c.JSON(http.StatusForbidden, gin.H{constants.JSONKeyError: constants.ErrNotParticipant})
		case service.ErrMoveAlreadySubmitted:
			c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrMoveAlreadySubmitted})
		case service.ErrUnknownMove:
			c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrUnknownMove})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedStoreMove})
		}
		return
	}

	if resolved {
		c.JSON(http.StatusOK, gin.H{
			constants.JSONKeyMessage: "Turn resolved",
			"turn":                   b.Turn,
			"battle":                 b,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		constants.JSONKeyMessage: "Move stored. Waiting for opponent.",
		"battle":                 b,
	})
}

// AbortBattle lets a participant forfeit the battle.
func (h *ArenaHandler) AbortBattle(c *gin.Context) {
	callerID := sessionAgentID(c)
	if callerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{constants.JSONKeyError: constants.ErrAuthRequired})
		return
	}
	battleID := c.Param("battleID")
	if !battleIDRegex.MatchString(battleID) {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidBattleID})
		return
	}

	b, err := h.svc.AbortBattle(callerID, battleID)
	if err != nil {
		switch err {
		case service.ErrBattleNotFound:
			c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrBattleNotFound})
		case service.ErrBattleNotActive:
			c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrBattleNotActive})
		case service.ErrNotParticipant:
			c.JSON(http.StatusForbidden, gin.H{constants.JSONKeyError: constants.ErrNotParticipant})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedAbortBattle})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		constants.JSONKeyMessage: "Battle aborted",
		"battle":                 b,
	})
}
