package api

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dstrants/tvremote/internal/cache"
	"github.com/dstrants/tvremote/internal/transport"
)

type handlers struct {
	remote Remote
}

// root handles GET /
func (h *handlers) root(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Message: "Let's remote your tv"})
}

// health handles GET /health. It never contacts the TV.
func (h *handlers) health(c *gin.Context) {
	st, err := h.remote.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:    "degraded",
			Timestamp: time.Now(),
		})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Paired:    st.Paired,
		Timestamp: time.Now(),
	})
}

// configure handles GET /configure/:ip
func (h *handlers) configure(c *gin.Context) {
	raw := c.Param("ip")
	addr, err := netip.ParseAddr(raw)
	if err != nil || !addr.Is4() {
		writeError(c, fmt.Errorf("%w: %q is not an IPv4 address", errBadRequest, raw))
		return
	}
	if err := h.remote.Configure(c.Request.Context(), addr); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Message: "Configuration done!"})
}

// setVolume handles GET /volume/set/:level
func (h *handlers) setVolume(c *gin.Context) {
	raw := c.Param("level")
	level, err := strconv.Atoi(raw)
	if err != nil {
		writeError(c, fmt.Errorf("%w: level %q is not a number", errBadRequest, raw))
		return
	}
	resp, err := h.remote.SetVolume(c.Request.Context(), level)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Message: "Volume set", Payload: resp})
}

// command binds a device command that takes no input.
func (h *handlers) command(message string, op func(context.Context) (transport.Response, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := op(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, Response{Message: message, Payload: resp})
	}
}

// list binds a cached collection read with an optional ?sync=true.
func (h *handlers) list(message string, op func(context.Context, bool) ([]cache.Record, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		sync, err := parseBool(c.Query("sync"))
		if err != nil {
			writeError(c, err)
			return
		}
		recs, err := op(c.Request.Context(), sync)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, Response{Message: message, Payload: recs})
	}
}

// parseBool accepts the usual query spellings; empty means false.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "0", "false", "f", "no", "off":
		return false, nil
	case "1", "true", "t", "yes", "on":
		return true, nil
	default:
		return false, fmt.Errorf("%w: sync=%q is not a boolean", errBadRequest, s)
	}
}
