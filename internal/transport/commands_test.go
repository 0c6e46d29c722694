package transport

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCommands_CoverVocabulary(t *testing.T) {
	cmds := DefaultCommands()
	names := []string{
		CmdMute, CmdGetVolume, CmdSetVolume, CmdVolumeUp, CmdVolumeDown,
		CmdPowerOff, CmdNotify, CmdChannelUp, CmdChannelDown,
		CmdGetCurrentChannel, CmdListChannels, CmdListApps,
	}
	require.Len(t, cmds, len(names))
	for _, name := range names {
		cmd, ok := cmds.Lookup(name)
		require.True(t, ok, name)
		assert.True(t, strings.HasPrefix(cmd.URI, "ssap://"), name)
	}
}

func TestDefaultCommands_FreshCopy(t *testing.T) {
	a := DefaultCommands()
	a[CmdMute] = Command{URI: "ssap://changed"}

	b := DefaultCommands()
	assert.Equal(t, "ssap://audio/setMute", b[CmdMute].URI)
}

func TestCommands_With(t *testing.T) {
	base := DefaultCommands()
	ext := base.With("launch", "ssap://system.launcher/launch")

	_, ok := base.Lookup("launch")
	assert.False(t, ok, "With must not modify the receiver")

	cmd, ok := ext.Lookup("launch")
	require.True(t, ok)
	assert.Equal(t, "ssap://system.launcher/launch", cmd.URI)
	assert.Len(t, ext, len(base)+1)
}

func TestCommandError_Matching(t *testing.T) {
	cause := errors.New("tuner busy")
	err := error(&CommandError{Command: CmdChannelUp, Err: cause})

	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrDeviceUnreachable)
	assert.Equal(t, `command "channel-up" failed: tuner busy`, err.Error())
}

func TestRegistrationEvent_String(t *testing.T) {
	assert.Equal(t, "prompted", Prompted.String())
	assert.Equal(t, "registered", Registered.String())
	assert.Equal(t, "unknown", RegistrationEvent(0).String())
}
