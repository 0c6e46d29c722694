package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstrants/tvremote/internal/cache"
	"github.com/dstrants/tvremote/internal/pairing"
	"github.com/dstrants/tvremote/internal/remote"
	"github.com/dstrants/tvremote/internal/session"
	"github.com/dstrants/tvremote/internal/transport"
)

// mockRemote records calls and returns canned results.
type mockRemote struct {
	mu    sync.Mutex
	calls []string
	err   error

	configured netip.Addr
	volume     int
	muteFlag   *bool
	syncFlag   *bool
	records    []cache.Record
	status     remote.Status
	statusErr  error
}

func (m *mockRemote) record(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
	return m.err
}

func (m *mockRemote) resp(name string) (transport.Response, error) {
	if err := m.record(name); err != nil {
		return nil, err
	}
	return transport.Response{"returnValue": true, "op": name}, nil
}

func (m *mockRemote) Configure(_ context.Context, addr netip.Addr) error {
	m.configured = addr
	return m.record("configure")
}
func (m *mockRemote) TurnOff(context.Context) (transport.Response, error) { return m.resp("turnoff") }
func (m *mockRemote) Mute(_ context.Context, on bool) (transport.Response, error) {
	m.muteFlag = &on
	return m.resp("mute")
}
func (m *mockRemote) Unmute(context.Context) (transport.Response, error)     { return m.resp("unmute") }
func (m *mockRemote) GetVolume(context.Context) (transport.Response, error)  { return m.resp("volume") }
func (m *mockRemote) VolumeUp(context.Context) (transport.Response, error)   { return m.resp("volume-up") }
func (m *mockRemote) VolumeDown(context.Context) (transport.Response, error) { return m.resp("volume-down") }
func (m *mockRemote) SetVolume(_ context.Context, level int) (transport.Response, error) {
	m.volume = level
	if level < 0 || level > 100 {
		return nil, fmt.Errorf("%w: got %d", remote.ErrInvalidVolume, level)
	}
	return m.resp("set-volume")
}
func (m *mockRemote) ChannelUp(context.Context) (transport.Response, error)   { return m.resp("channel-up") }
func (m *mockRemote) ChannelDown(context.Context) (transport.Response, error) { return m.resp("channel-down") }
func (m *mockRemote) GetCurrentChannel(context.Context) (transport.Response, error) {
	return m.resp("channel-current")
}
func (m *mockRemote) GetChannels(_ context.Context, force bool) ([]cache.Record, error) {
	m.syncFlag = &force
	if err := m.record("channels"); err != nil {
		return nil, err
	}
	return m.records, nil
}
func (m *mockRemote) GetApps(_ context.Context, force bool) ([]cache.Record, error) {
	m.syncFlag = &force
	if err := m.record("apps"); err != nil {
		return nil, err
	}
	return m.records, nil
}
func (m *mockRemote) Status(context.Context) (remote.Status, error) {
	return m.status, m.statusErr
}

func do(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.10:5555"
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestRouter_Root(t *testing.T) {
	r := NewRouter(&mockRemote{}, Config{})
	rec := do(t, r, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Let's remote your tv", decode[Response](t, rec).Message)
}

func TestRouter_CommandRoutes(t *testing.T) {
	tests := []struct {
		path    string
		call    string
		message string
	}{
		{"/turnoff", "turnoff", "TV closed"},
		{"/volume", "volume", "Volume fetched"},
		{"/volume/up", "volume-up", "Volume up"},
		{"/volume/down", "volume-down", "Volume down"},
		{"/volume/set/40", "set-volume", "Volume set"},
		{"/volume/mute", "mute", "TV muted"},
		{"/volume/unmute", "unmute", "TV unmuted"},
		{"/channel/up", "channel-up", "Channel up"},
		{"/channel/down", "channel-down", "Channel down"},
		{"/channel/current", "channel-current", "Current channel"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			m := &mockRemote{}
			rec := do(t, NewRouter(m, Config{}), tt.path)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			body := decode[Response](t, rec)
			assert.Equal(t, tt.message, body.Message)
			assert.Equal(t, []string{tt.call}, m.calls)
			payload, ok := body.Payload.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tt.call, payload["op"])
		})
	}
}

func TestRouter_MuteSendsFlag(t *testing.T) {
	m := &mockRemote{}
	do(t, NewRouter(m, Config{}), "/volume/mute")
	require.NotNil(t, m.muteFlag)
	assert.True(t, *m.muteFlag)
}

func TestRouter_SetVolume(t *testing.T) {
	m := &mockRemote{}
	r := NewRouter(m, Config{})

	rec := do(t, r, "/volume/set/55")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 55, m.volume)

	rec = do(t, r, "/volume/set/loud")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", decode[ErrorResponse](t, rec).Error)

	rec = do(t, r, "/volume/set/150")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Configure(t *testing.T) {
	m := &mockRemote{}
	r := NewRouter(m, Config{})

	rec := do(t, r, "/configure/192.168.1.50")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Configuration done!", decode[Response](t, rec).Message)
	assert.Equal(t, netip.MustParseAddr("192.168.1.50"), m.configured)

	for _, bad := range []string{"/configure/not-an-ip", "/configure/fe80::1", "/configure/300.1.1.1"} {
		rec := do(t, r, bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
	assert.Equal(t, []string{"configure"}, m.calls)
}

func TestRouter_ListRoutes(t *testing.T) {
	tests := []struct {
		path     string
		message  string
		wantSync bool
	}{
		{"/channels", "Channels fetched", false},
		{"/channels?sync=true", "Channels fetched", true},
		{"/channels?sync=1", "Channels fetched", true},
		{"/apps", "Apps fetched", false},
		{"/apps?sync=yes", "Apps fetched", true},
		{"/apps?sync=false", "Apps fetched", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			m := &mockRemote{records: []cache.Record{{"id": "netflix"}}}
			rec := do(t, NewRouter(m, Config{}), tt.path)
			require.Equal(t, http.StatusOK, rec.Code)

			body := decode[Response](t, rec)
			assert.Equal(t, tt.message, body.Message)
			assert.Equal(t, []any{map[string]any{"id": "netflix"}}, body.Payload)
			require.NotNil(t, m.syncFlag)
			assert.Equal(t, tt.wantSync, *m.syncFlag)
		})
	}
}

func TestRouter_BadSyncFlag(t *testing.T) {
	m := &mockRemote{}
	rec := do(t, NewRouter(m, Config{}), "/channels?sync=maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, m.calls)
}

func TestRouter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"pairing required", session.ErrPairingRequired, http.StatusConflict, "pairing_required"},
		{"config invalid", fmt.Errorf("%w: token is missing", pairing.ErrConfigInvalid), http.StatusConflict, "config_invalid"},
		{"rejected", fmt.Errorf("%w: 403 User denied access", transport.ErrPairingRejected), http.StatusForbidden, "pairing_rejected"},
		{"unreachable", fmt.Errorf("%w: dial", transport.ErrDeviceUnreachable), http.StatusGatewayTimeout, "device_unreachable"},
		{"command failed", &transport.CommandError{Command: "mute", Err: errors.New("boom")}, http.StatusBadGateway, "command_failed"},
		{"cache write", fmt.Errorf("%w: apps: disk full", cache.ErrCacheWriteFailed), http.StatusInternalServerError, "cache_write_failed"},
		{"cancelled register", fmt.Errorf("%w: register abandoned: %w", transport.ErrDeviceUnreachable, context.Canceled), 499, "request_cancelled"},
		{"cancelled command", &transport.CommandError{Command: "mute", Err: context.Canceled}, 499, "request_cancelled"},
		{"other", errors.New("surprise"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockRemote{err: tt.err}
			rec := do(t, NewRouter(m, Config{}), "/volume/mute")
			assert.Equal(t, tt.status, rec.Code)

			body := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.code, body.Error)
			assert.Equal(t, tt.err.Error(), body.Message)
		})
	}
}

func TestRouter_Health(t *testing.T) {
	m := &mockRemote{status: remote.Status{Paired: true, IP: "192.168.1.50"}}
	rec := do(t, NewRouter(m, Config{}), "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", body.Status)
	assert.True(t, body.Paired)
	assert.Empty(t, m.calls, "health never reaches the device")

	m = &mockRemote{statusErr: errors.New("disk gone")}
	rec = do(t, NewRouter(m, Config{}), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_Metrics(t *testing.T) {
	r := NewRouter(&mockRemote{}, Config{})
	do(t, r, "/volume/up")

	rec := do(t, r, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tvremote_http_requests_total{route="/volume/up",status="200"}`)
}

func TestRouter_NotFound(t *testing.T) {
	rec := do(t, NewRouter(&mockRemote{}, Config{}), "/launch/netflix")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, rec).Error)
}

func TestRouter_CORS(t *testing.T) {
	r := NewRouter(&mockRemote{}, Config{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://phone.local")
	r.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RateLimit(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)
	defer limiter.Stop()
	r := NewRouter(&mockRemote{}, Config{Limiter: limiter})

	assert.Equal(t, http.StatusOK, do(t, r, "/").Code)
	assert.Equal(t, http.StatusOK, do(t, r, "/").Code)

	rec := do(t, r, "/")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", decode[ErrorResponse](t, rec).Error)
}

func TestRouter_RequestLogging(t *testing.T) {
	var buf strings.Builder
	logger := newTestLogger(&buf)
	r := NewRouter(&mockRemote{err: session.ErrPairingRequired}, Config{Logger: logger})

	do(t, r, "/channel/up")
	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "path=/channel/up")
	assert.Contains(t, out, "status=409")
}
