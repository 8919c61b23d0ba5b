// internal/handlers/common.go
package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/marketua/marketplace-backend/internal/apperror"
	"github.com/marketua/marketplace-backend/internal/utils"
)

// bindJSON decodes the body into req, rendering a parse error on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.ErrorResponse(c, utils.BindError(err))
		return false
	}
	return true
}

// pathID parses a numeric path parameter. Anything else cannot match a row.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.ErrorResponse(c, apperror.NotFound())
		return 0, false
	}
	return uint(id), true
}

// queryID parses an optional numeric filter.
func queryID(c *gin.Context, name string) (*uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, apperror.Field(apperror.CodeInvalid, fmt.Sprintf("\"%s\" is not a valid id.", raw), name)
	}
	v := uint(id)
	return &v, nil
}
