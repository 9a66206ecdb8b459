package api

import (
	"net/http"
	"strings"

	"github.com/clawcombat/arena/internal/constants"
	"github.com/clawcombat/arena/internal/service"
	"github.com/gin-gonic/gin"
)

// AuthRequired validates the Bearer API key and injects the calling
// agent's identity into the request context.
func AuthRequired(svc ArenaService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(constants.HeaderAuthorization)
		if !strings.HasPrefix(header, constants.BearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{constants.JSONKeyError: constants.ErrAuthRequired})
			return
		}
		key := strings.TrimSpace(strings.TrimPrefix(header, constants.BearerPrefix))
		agent, err := svc.AuthenticateKey(key)
		if err != nil {
			switch err {
			case service.ErrInvalidAPIKey:
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{constants.JSONKeyError: constants.ErrInvalidAPIKey})
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchAgent})
			}
			return
		}
		c.Set("agentID", agent.AgentUUID)
		c.Set("agentName", agent.Name)
		c.Next()
	}
}

// sessionAgentID returns the authenticated agent's UUID, or "" when the
// request skipped the middleware.
func sessionAgentID(c *gin.Context) string {
	v, _ := c.Get("agentID")
	s, _ := v.(string)
	return s
}
