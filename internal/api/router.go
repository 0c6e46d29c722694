// Package api exposes the remote's operations over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/gin-gonic/gin"

	"github.com/dstrants/tvremote/internal/cache"
	"github.com/dstrants/tvremote/internal/metrics"
	"github.com/dstrants/tvremote/internal/remote"
	"github.com/dstrants/tvremote/internal/transport"
)

// Remote is the operation surface the handlers call. *remote.Remote
// implements it.
type Remote interface {
	Configure(ctx context.Context, addr netip.Addr) error
	TurnOff(ctx context.Context) (transport.Response, error)
	Mute(ctx context.Context, on bool) (transport.Response, error)
	Unmute(ctx context.Context) (transport.Response, error)
	GetVolume(ctx context.Context) (transport.Response, error)
	VolumeUp(ctx context.Context) (transport.Response, error)
	VolumeDown(ctx context.Context) (transport.Response, error)
	SetVolume(ctx context.Context, level int) (transport.Response, error)
	ChannelUp(ctx context.Context) (transport.Response, error)
	ChannelDown(ctx context.Context) (transport.Response, error)
	GetCurrentChannel(ctx context.Context) (transport.Response, error)
	GetChannels(ctx context.Context, forceSync bool) ([]cache.Record, error)
	GetApps(ctx context.Context, forceSync bool) ([]cache.Record, error)
	Status(ctx context.Context) (remote.Status, error)
}

var _ Remote = (*remote.Remote)(nil)

// Config configures the router.
type Config struct {
	Logger  *slog.Logger // nil uses slog.Default()
	Limiter *RateLimiter // nil disables rate limiting
}

// NewRouter builds the gin engine with every route bound.
func NewRouter(r Remote, cfg Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	engine := gin.New()
	setupMiddleware(engine, cfg.Logger, cfg.Limiter)

	h := &handlers{remote: r}

	engine.GET("/", h.root)
	engine.GET("/health", h.health)
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	engine.GET("/configure/:ip", h.configure)
	engine.GET("/turnoff", h.command("TV closed", r.TurnOff))

	volume := engine.Group("/volume")
	{
		volume.GET("", h.command("Volume fetched", r.GetVolume))
		volume.GET("/up", h.command("Volume up", r.VolumeUp))
		volume.GET("/down", h.command("Volume down", r.VolumeDown))
		volume.GET("/set/:level", h.setVolume)
		volume.GET("/mute", h.command("TV muted", func(ctx context.Context) (transport.Response, error) {
			return r.Mute(ctx, true)
		}))
		volume.GET("/unmute", h.command("TV unmuted", r.Unmute))
	}

	engine.GET("/channels", h.list("Channels fetched", r.GetChannels))
	channel := engine.Group("/channel")
	{
		channel.GET("/up", h.command("Channel up", r.ChannelUp))
		channel.GET("/down", h.command("Channel down", r.ChannelDown))
		channel.GET("/current", h.command("Current channel", r.GetCurrentChannel))
	}

	engine.GET("/apps", h.list("Apps fetched", r.GetApps))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "no such route"})
	})

	return engine
}
