package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// Client-facing messages that do not come from an error value.
const (
	msgUnauthorized   = "Unauthorized"
	msgBadCredentials = "Invalid username or password"
	msgBadBody        = "invalid request body"
	msgInternal       = "Internal server error"
	msgNotFound       = "Not found"
)

// badRequest lists the sentinels reported to the client as 400 with their
// own message.
var badRequest = []error{
	types.ErrInvalidID,
	types.ErrInvalidData,
	types.ErrInvalidName,
	types.ErrInvalidQuantity,
	types.ErrInvalidReference,
	types.ErrDuplicate,
	types.ErrDuplicateName,
	types.ErrHasChildren,
	types.ErrInUse,
	types.ErrInvalidSetting,
	types.ErrInvalidImage,
	types.ErrInvalidPassword,
	types.ErrInvalidUsername,
	types.ErrUserExists,
}

// statusFor classifies err into the API's status taxonomy.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidCredentials), errors.Is(err, types.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	}
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// fail writes the error response for err. Server errors are logged with
// their detail and reported to the client with a generic message.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		s.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		msg = msgInternal
	case http.StatusUnauthorized:
		msg = msgUnauthorized
	case http.StatusNotFound:
		msg = msgNotFound
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// idParam parses the integer path parameter name. A non-numeric value
// writes a 400; a number no row can carry writes a 404. Either way it
// returns false.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": types.ErrInvalidID.Error()})
		return 0, false
	}
	if id <= 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return 0, false
	}
	return id, true
}

// bindJSON decodes the request body into a T. On failure it writes a 400
// and returns false.
func bindJSON[T any](c *gin.Context) (T, bool) {
	var v T
	if err := c.ShouldBindJSON(&v); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgBadBody})
		return v, false
	}
	return v, true
}

// success is the body of delete and link responses.
var success = gin.H{"success": true}
