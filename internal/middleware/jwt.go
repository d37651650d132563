package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/sat-explorer/internal/model"
	"github.com/stemsi/sat-explorer/internal/response"
	"github.com/stemsi/sat-explorer/internal/service"
)

const (
	// ContextKeyShareParams is the Gin context key for the filter state of a
	// verified share token.
	ContextKeyShareParams = "share_params"
)

// RequireShareToken verifies the :token path parameter as a share token.
func RequireShareToken(shareService *service.ShareService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.Param("token")
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrInvalidShareToken)
			return
		}

		params, err := shareService.Parse(tokenStr)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrInvalidShareToken)
			return
		}

		c.Set(ContextKeyShareParams, params)
		c.Next()
	}
}

// GetShareParams returns the filter state set by RequireShareToken.
func GetShareParams(c *gin.Context) (model.Params, bool) {
	v, ok := c.Get(ContextKeyShareParams)
	if !ok {
		return model.Params{}, false
	}
	p, ok := v.(model.Params)
	return p, ok
}
