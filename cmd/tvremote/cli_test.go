package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstrants/tvremote/internal/faketv"
	"github.com/dstrants/tvremote/internal/pairing"
	"github.com/dstrants/tvremote/internal/session"
)

// cliEnv runs the root command against an emulated TV on loopback.
type cliEnv struct {
	t    *testing.T
	tv   *faketv.TV
	home string
	port string
}

func newCLIEnv(t *testing.T, tvCfg faketv.Config) *cliEnv {
	t.Helper()
	tv := faketv.New(tvCfg)
	srv := httptest.NewServer(tv)
	t.Cleanup(func() {
		tv.Close()
		srv.Close()
	})
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return &cliEnv{t: t, tv: tv, home: t.TempDir(), port: u.Port()}
}

func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	var out bytes.Buffer
	full := append([]string{
		"--home", e.home,
		"--tv-port", e.port,
		"--pair-timeout", "2s",
		"--timeout", "2s",
		"--log-level", "error",
	}, args...)
	rootCmd.SetArgs(full)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_ConfigureThenCommands(t *testing.T) {
	env := newCLIEnv(t, faketv.Config{ClientKey: "cli-key", Prompt: true})

	out, err := env.run("configure", "127.0.0.1")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration done!")

	rec, err := pairing.NewStore(env.home).Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", rec.IP.String())
	assert.Equal(t, "cli-key", rec.Token)

	out, err = env.run("volume")
	require.NoError(t, err)
	assert.Contains(t, out, "Volume fetched")
	assert.Contains(t, out, `"volume": 10`)

	out, err = env.run("volume", "set", "33")
	require.NoError(t, err)
	assert.Contains(t, out, "Volume set")

	out, err = env.run("mute")
	require.NoError(t, err)
	assert.Contains(t, out, "TV muted")

	out, err = env.run("channel", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "Channel up")

	out, err = env.run("channels", "--sync=false")
	require.NoError(t, err)
	assert.Contains(t, out, "No channels cached")

	out, err = env.run("channels", "--sync")
	require.NoError(t, err)
	assert.Contains(t, out, "3 channels")
	assert.Contains(t, out, "ERT2")
	assert.FileExists(t, filepath.Join(env.home, "channels.json"))

	calls := len(env.tv.Calls())
	out, err = env.run("channels", "--sync=false")
	require.NoError(t, err)
	assert.Contains(t, out, "ERT3")
	assert.Len(t, env.tv.Calls(), calls, "cached read must not reach the TV")

	out, err = env.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "paired:    yes (127.0.0.1)")
	assert.Contains(t, out, "channels:  3")
}

func TestCLI_SQLiteBackend(t *testing.T) {
	env := newCLIEnv(t, faketv.Config{ClientKey: "cli-key"})

	_, err := env.run("configure", "127.0.0.1")
	require.NoError(t, err)

	out, err := env.run("--cache-backend", "sqlite", "apps", "--sync")
	require.NoError(t, err)
	assert.Contains(t, out, "2 apps")
	assert.Contains(t, out, "Netflix")
	assert.FileExists(t, filepath.Join(env.home, "cache.db"))

	// Reset for the tests that share the global flag set.
	_, err = env.run("--cache-backend", "file", "apps", "--sync=false")
	require.NoError(t, err)
}

func TestCLI_RequiresPairing(t *testing.T) {
	env := newCLIEnv(t, faketv.Config{})

	_, err := env.run("unmute")
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrPairingRequired)
	assert.Contains(t, hintFor(err), "configure")
	assert.Empty(t, env.tv.Calls())
}

func TestCLI_InvalidArguments(t *testing.T) {
	env := newCLIEnv(t, faketv.Config{})

	_, err := env.run("configure", "tv.local")
	assert.Error(t, err)

	_, err = env.run("volume", "set", "loud")
	assert.Error(t, err)

	_, err = env.run("--cache-backend", "redis", "status")
	assert.Error(t, err)
	_, err = env.run("--cache-backend", "file", "status")
	assert.NoError(t, err)

	_, statErr := os.Stat(pairing.NewStore(env.home).Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestHintFor(t *testing.T) {
	assert.Empty(t, hintFor(assert.AnError))
	assert.Contains(t, hintFor(pairing.ErrConfigInvalid), "pairing file")
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, "Volume fetched", map[string]any{"volume": 3}))
	assert.Equal(t, "Volume fetched\n{\n  \"volume\": 3\n}\n", buf.String())

	buf.Reset()
	require.NoError(t, printResult(&buf, "", nil))
	assert.Empty(t, buf.String())
}

func TestField(t *testing.T) {
	rec := map[string]any{"channelNumber": " 7 ", "major": float64(7)}
	assert.Equal(t, "7", field(rec, "channelNumber"))
	assert.Equal(t, "7", field(rec, "major"))
	assert.Empty(t, field(rec, "missing"))
}
