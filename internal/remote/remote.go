// Package remote is the operation surface of the TV remote. Every device
// operation opens its own session, runs one or two commands and closes it.
// Channel and app lists are served from the local cache unless a sync is
// forced.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/dstrants/tvremote/internal/cache"
	"github.com/dstrants/tvremote/internal/metrics"
	"github.com/dstrants/tvremote/internal/pairing"
	"github.com/dstrants/tvremote/internal/session"
	"github.com/dstrants/tvremote/internal/transport"
)

const (
	// ShutdownNotice is shown on screen before power-off.
	ShutdownNotice = "System will turn off now!"
	// ShutdownGrace is how long the notice stays up before power-off.
	ShutdownGrace = 5 * time.Second
)

// ErrInvalidVolume rejects levels outside 0..100.
var ErrInvalidVolume = errors.New("volume must be between 0 and 100")

// SessionOpener opens registered sessions. *session.Manager implements it.
type SessionOpener interface {
	Open(ctx context.Context, explicit *netip.Addr) (*session.Session, error)
}

// RecordLoader reads the pairing record. *pairing.Store implements it.
type RecordLoader interface {
	Load() (pairing.Record, error)
}

// Options wires a Remote.
type Options struct {
	Sessions SessionOpener
	Records  RecordLoader
	Cache    cache.Store
	Clock    Clock        // nil uses SystemClock
	Logger   *slog.Logger // nil uses slog.Default()
}

// Remote implements every user-facing operation.
type Remote struct {
	sessions SessionOpener
	records  RecordLoader
	cache    cache.Store
	clock    Clock
	logger   *slog.Logger
}

// New creates a Remote.
func New(opts Options) *Remote {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Remote{
		sessions: opts.Sessions,
		records:  opts.Records,
		cache:    opts.Cache,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}
}

// Configure pairs with the TV at addr and persists the issued key, replacing
// any previous pairing.
func (r *Remote) Configure(ctx context.Context, addr netip.Addr) error {
	s, err := r.sessions.Open(ctx, &addr)
	if err != nil {
		return err
	}
	s.Close()
	return nil
}

// TurnOff shows ShutdownNotice, waits ShutdownGrace and powers the TV off.
// Once the notice is up the wait and the power-off ignore ctx cancellation.
func (r *Remote) TurnOff(ctx context.Context) (transport.Response, error) {
	s, err := r.sessions.Open(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	if _, err := s.Invoke(ctx, transport.CmdNotify, map[string]any{"message": ShutdownNotice}); err != nil {
		return nil, err
	}
	start := r.clock.Now()
	r.clock.Sleep(ShutdownGrace)
	r.logger.Info("powering off", "waited", r.clock.Now().Sub(start))
	return s.Invoke(context.WithoutCancel(ctx), transport.CmdPowerOff, nil)
}

// Mute sets the mute flag.
func (r *Remote) Mute(ctx context.Context, on bool) (transport.Response, error) {
	return r.invoke(ctx, transport.CmdMute, map[string]any{"mute": on})
}

// Unmute clears the mute flag.
func (r *Remote) Unmute(ctx context.Context) (transport.Response, error) {
	return r.Mute(ctx, false)
}

// GetVolume reports the current level and mute state.
func (r *Remote) GetVolume(ctx context.Context) (transport.Response, error) {
	return r.invoke(ctx, transport.CmdGetVolume, nil)
}

// VolumeUp raises the volume one step.
func (r *Remote) VolumeUp(ctx context.Context) (transport.Response, error) {
	return r.invoke(ctx, transport.CmdVolumeUp, nil)
}

// VolumeDown lowers the volume one step.
func (r *Remote) VolumeDown(ctx context.Context) (transport.Response, error) {
	return r.invoke(ctx, transport.CmdVolumeDown, nil)
}

// SetVolume sets an absolute level in 0..100.
func (r *Remote) SetVolume(ctx context.Context, level int) (transport.Response, error) {
	if level < 0 || level > 100 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidVolume, level)
	}
	return r.invoke(ctx, transport.CmdSetVolume, map[string]any{"volume": level})
}

// ChannelUp switches to the next channel.
func (r *Remote) ChannelUp(ctx context.Context) (transport.Response, error) {
	return r.invoke(ctx, transport.CmdChannelUp, nil)
}

// ChannelDown switches to the previous channel.
func (r *Remote) ChannelDown(ctx context.Context) (transport.Response, error) {
	return r.invoke(ctx, transport.CmdChannelDown, nil)
}

// GetCurrentChannel asks the TV directly; the answer is not cached.
func (r *Remote) GetCurrentChannel(ctx context.Context) (transport.Response, error) {
	return r.invoke(ctx, transport.CmdGetCurrentChannel, nil)
}

// GetChannels returns the cached channel list, refreshing it from the TV
// first when forceSync is set.
func (r *Remote) GetChannels(ctx context.Context, forceSync bool) ([]cache.Record, error) {
	return r.collection(ctx, cache.Channels, transport.CmdListChannels, "channelList", forceSync)
}

// GetApps returns the cached app list, refreshing it from the TV first when
// forceSync is set.
func (r *Remote) GetApps(ctx context.Context, forceSync bool) ([]cache.Record, error) {
	return r.collection(ctx, cache.Apps, transport.CmdListApps, "apps", forceSync)
}

// Status describes the local state without contacting the TV.
type Status struct {
	Paired   bool   `json:"paired"`
	IP       string `json:"ip,omitempty"`
	Channels int    `json:"channels"`
	Apps     int    `json:"apps"`
}

// Status reports whether a pairing exists and how many records are cached.
func (r *Remote) Status(ctx context.Context) (Status, error) {
	var st Status
	rec, err := r.records.Load()
	switch {
	case err == nil:
		st.Paired = true
		st.IP = rec.IP.String()
	case errors.Is(err, pairing.ErrConfigMissing):
	default:
		return Status{}, err
	}

	chs, err := r.cache.Collection(cache.Channels).All(ctx)
	if err != nil {
		return Status{}, err
	}
	apps, err := r.cache.Collection(cache.Apps).All(ctx)
	if err != nil {
		return Status{}, err
	}
	st.Channels = len(chs)
	st.Apps = len(apps)
	return st, nil
}

func (r *Remote) invoke(ctx context.Context, command string, args map[string]any) (transport.Response, error) {
	s, err := r.sessions.Open(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Invoke(ctx, command, args)
}

func (r *Remote) collection(ctx context.Context, name, command, field string, forceSync bool) ([]cache.Record, error) {
	col := r.cache.Collection(name)
	if forceSync {
		err := r.sync(ctx, col, command, field)
		metrics.ObserveCacheSync(name, err)
		if err != nil {
			return nil, err
		}
	}
	return col.All(ctx)
}

// sync fetches the full list and swaps it into col. A failed fetch leaves
// col untouched.
func (r *Remote) sync(ctx context.Context, col cache.Collection, command, field string) error {
	resp, err := r.invoke(ctx, command, nil)
	if err != nil {
		return err
	}
	recs, err := records(resp, field)
	if err != nil {
		return &transport.CommandError{Command: command, Err: err}
	}
	if err := col.ReplaceAll(ctx, recs); err != nil {
		return err
	}
	r.logger.Info("cache synced", "collection", col.Name(), "records", len(recs))
	return nil
}

// records extracts the list under field, keeping each entry as reported.
func records(resp transport.Response, field string) ([]cache.Record, error) {
	raw, ok := resp[field]
	if !ok {
		return nil, fmt.Errorf("response has no %q list", field)
	}

	switch list := raw.(type) {
	case nil:
		return []cache.Record{}, nil
	case []any:
		out := make([]cache.Record, 0, len(list))
		for i, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s[%d] is %T, want object", field, i, item)
			}
			out = append(out, cache.Record(m))
		}
		return out, nil
	case []map[string]any:
		out := make([]cache.Record, len(list))
		for i, m := range list {
			out[i] = cache.Record(m)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%q is %T, want list", field, raw)
	}
}
