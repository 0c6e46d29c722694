package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dstrants/tvremote/internal/cache"
	"github.com/dstrants/tvremote/internal/pairing"
	"github.com/dstrants/tvremote/internal/remote"
	"github.com/dstrants/tvremote/internal/session"
	"github.com/dstrants/tvremote/internal/transport"
)

// statusClientClosedRequest is the de facto code for a caller that went away
// before the answer was ready.
const statusClientClosedRequest = 499

// errBadRequest marks malformed path or query input.
var errBadRequest = errors.New("invalid input")

// classify maps an operation error to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, remote.ErrInvalidVolume):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, session.ErrPairingRequired), errors.Is(err, pairing.ErrConfigMissing):
		return http.StatusConflict, "pairing_required"
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, "request_cancelled"
	case errors.Is(err, pairing.ErrConfigInvalid):
		return http.StatusConflict, "config_invalid"
	case errors.Is(err, transport.ErrPairingRejected):
		return http.StatusForbidden, "pairing_rejected"
	case errors.Is(err, transport.ErrDeviceUnreachable):
		return http.StatusGatewayTimeout, "device_unreachable"
	case errors.Is(err, transport.ErrCommandFailed):
		return http.StatusBadGateway, "command_failed"
	case errors.Is(err, cache.ErrCacheWriteFailed):
		return http.StatusInternalServerError, "cache_write_failed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(c *gin.Context, err error) {
	status, code := classify(err)
	c.JSON(status, ErrorResponse{Error: code, Message: err.Error()})
}
