package transport

import "maps"

// Command names understood by the default vocabulary.
const (
	CmdMute              = "mute"
	CmdGetVolume         = "get-volume"
	CmdSetVolume         = "set-volume"
	CmdVolumeUp          = "volume-up"
	CmdVolumeDown        = "volume-down"
	CmdPowerOff          = "power-off"
	CmdNotify            = "notify"
	CmdChannelUp         = "channel-up"
	CmdChannelDown       = "channel-down"
	CmdGetCurrentChannel = "get-current-channel"
	CmdListChannels      = "list-channels"
	CmdListApps          = "list-apps"
)

// Command is the wire-level descriptor of a named remote procedure.
type Command struct {
	URI string
}

// Commands maps command names to descriptors. New commands are added to the
// table, not to the transport.
type Commands map[string]Command

// DefaultCommands returns a fresh copy of the built-in vocabulary.
func DefaultCommands() Commands {
	return Commands{
		CmdMute:              {URI: "ssap://audio/setMute"},
		CmdGetVolume:         {URI: "ssap://audio/getVolume"},
		CmdSetVolume:         {URI: "ssap://audio/setVolume"},
		CmdVolumeUp:          {URI: "ssap://audio/volumeUp"},
		CmdVolumeDown:        {URI: "ssap://audio/volumeDown"},
		CmdPowerOff:          {URI: "ssap://system/turnOff"},
		CmdNotify:            {URI: "ssap://system.notifications/createToast"},
		CmdChannelUp:         {URI: "ssap://tv/channelUp"},
		CmdChannelDown:       {URI: "ssap://tv/channelDown"},
		CmdGetCurrentChannel: {URI: "ssap://tv/getCurrentChannel"},
		CmdListChannels:      {URI: "ssap://tv/getChannelList"},
		CmdListApps:          {URI: "ssap://com.webos.applicationManager/listApps"},
	}
}

// With returns a copy of c with name bound to uri.
func (c Commands) With(name, uri string) Commands {
	out := make(Commands, len(c)+1)
	maps.Copy(out, c)
	out[name] = Command{URI: uri}
	return out
}

// Lookup returns the descriptor for name.
func (c Commands) Lookup(name string) (Command, bool) {
	cmd, ok := c[name]
	return cmd, ok
}
