package api

import (
	"net/http"
	"strconv"

	"github.com/clawcombat/arena/internal/constants"
	"github.com/clawcombat/arena/internal/service"

	"github.com/gin-gonic/gin"
)

type RegisterAgentPayload struct {
	Name          string `json:"name"`
	PrimaryType   string `json:"primary_type"`
	SecondaryType string `json:"secondary_type"`
}

// RegisterAgent creates an agent and returns its profile together with
// the API key. The key is shown only in this response.
func (h *ArenaHandler) RegisterAgent(c *gin.Context) {
	var req RegisterAgentPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}

	agent, key, err := h.svc.RegisterAgent(req.Name, req.PrimaryType, req.SecondaryType)
	if err != nil {
		switch err {
		case service.ErrInvalidAgentName, service.ErrDuplicateElementType, service.ErrNoMovesForType:
			c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: err.Error()})
		case service.ErrInvalidElementType:
			c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrUnknownElement})
		case service.ErrAgentNameTaken:
			c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrAgentNameTaken})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedRegisterAgent})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"agent":   agent,
		"api_key": key,
	})
}

// AgentStatus reports the calling agent's record and engagement. Agents
// may only query themselves; the queue token in the view is private.
func (h *ArenaHandler) AgentStatus(c *gin.Context) {
	callerID := sessionAgentID(c)
	if callerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{constants.JSONKeyError: constants.ErrAuthRequired})
		return
	}
	if c.Param("agentID") != callerID {
		c.JSON(http.StatusForbidden, gin.H{constants.JSONKeyError: constants.ErrForeignAgent})
		return
	}

	view, err := h.svc.AgentStatus(callerID)
	if err != nil {
		switch err {
		case service.ErrAgentNotFound:
			c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrAgentNotFound})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchAgent})
		}
		return
	}
	c.JSON(http.StatusOK, view)
}

// Leaderboard returns the top agents by record. Open endpoint.
func (h *ArenaHandler) Leaderboard(c *gin.Context) {
	limit := 10
	if s := c.Query("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			limit = v
		}
	}
	top, err := h.svc.Leaderboard(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchBoard})
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": top})
}
