package response

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"anoa.com/mathter/internal/entity"
	"anoa.com/mathter/pkg/apperror"
	"github.com/gin-gonic/gin"
)

// GetAccount retrieves the authenticated account loaded by the auth middleware
func GetAccount(c *gin.Context) (*entity.User, error) {
	value, exists := c.Get("account")
	if !exists {
		return nil, apperror.ErrUnauthorized
	}

	account, ok := value.(*entity.User)
	if !ok || account == nil {
		return nil, apperror.ErrUnauthorized
	}

	return account, nil
}

// ParseID reads a positive numeric path parameter
func ParseID(c *gin.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s", apperror.ErrBadRequest, param)
	}
	return uint(id), nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Log internal errors
	if code == http.StatusInternalServerError {
		log.Printf("[Internal Error]: %v", err)
		c.JSON(code, gin.H{"error": apperror.ErrInternal.Error()})
		return
	}

	c.JSON(code, gin.H{"error": err.Error()})
}
