package discord

import (
	"context"
	"net/netip"

	"github.com/dstrants/tvremote/internal/cache"
	"github.com/dstrants/tvremote/internal/remote"
	"github.com/dstrants/tvremote/internal/transport"
)

// Remote is the operation surface the slash commands drive.
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
