// Package faketv emulates the SSAP endpoint of a webOS TV: the pairing
// exchange and a small stateful command set. It backs transport tests and the
// faketv binary used for manual runs without a television.
package faketv

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dstrants/tvremote/internal/protocol"
)

// Handler serves one SSAP URI. A returned error is sent as an error frame.
type Handler func(payload map[string]any) (map[string]any, error)

// Config controls how the emulated TV behaves.
type Config struct {
	ClientKey      string   // key issued on a fresh pairing; random when empty
	Prompt         bool     // send the PROMPT ack before "registered" on fresh pairings
	Reject         bool     // deny every registration
	KnownKeys      []string // keys accepted without a prompt
	CloseOnTurnOff bool     // drop the socket after answering turnOff
}

// Call records one request the TV received.
type Call struct {
	URI     string
	Payload map[string]any
	At      time.Time
}

// Registration records one register frame the TV received.
type Registration struct {
	PresentedKey string
	IssuedKey    string
	Prompted     bool
	Rejected     bool
}

// TV is an http.Handler that upgrades to WebSocket and speaks SSAP.
type TV struct {
	cfg      Config
	upgrader websocket.Upgrader

	mu            sync.Mutex
	keys          map[string]bool
	handlers      map[string]Handler
	calls         []Call
	registrations []Registration
	conns         map[*websocket.Conn]bool

	volume   int
	muted    bool
	channel  int
	channels []map[string]any
	apps     []map[string]any
}

// New creates an emulated TV with a default channel line-up and app list.
func New(cfg Config) *TV {
	tv := &TV{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		keys:     make(map[string]bool),
		handlers: make(map[string]Handler),
		conns:    make(map[*websocket.Conn]bool),
		volume:   10,
		channels: DefaultChannels(),
		apps:     DefaultApps(),
	}
	for _, k := range cfg.KnownKeys {
		tv.keys[k] = true
	}
	tv.installDefaults()
	return tv
}

// DefaultChannels is the line-up a fresh TV reports.
func DefaultChannels() []map[string]any {
	return []map[string]any{
		{"channelId": "1_1_1_0_0_0", "channelNumber": "1", "channelName": "ERT1"},
		{"channelId": "1_2_2_0_0_0", "channelNumber": "2", "channelName": "ERT2"},
		{"channelId": "1_3_3_0_0_0", "channelNumber": "3", "channelName": "ERT3"},
	}
}

// DefaultApps is the installed app list a fresh TV reports.
func DefaultApps() []map[string]any {
	return []map[string]any{
		{"id": "netflix", "title": "Netflix"},
		{"id": "youtube.leanback.v4", "title": "YouTube"},
	}
}

// SetHandler overrides the behavior of uri.
func (tv *TV) SetHandler(uri string, h Handler) {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	tv.handlers[uri] = h
}

// SetChannels replaces the reported channel list.
func (tv *TV) SetChannels(chs []map[string]any) {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	tv.channels = chs
	tv.channel = 0
}

// SetApps replaces the reported app list.
func (tv *TV) SetApps(apps []map[string]any) {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	tv.apps = apps
}

// Calls returns a copy of every request received so far.
func (tv *TV) Calls() []Call {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	out := make([]Call, len(tv.calls))
	copy(out, tv.calls)
	return out
}

// Registrations returns a copy of every register frame received so far.
func (tv *TV) Registrations() []Registration {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	out := make([]Registration, len(tv.registrations))
	copy(out, tv.registrations)
	return out
}

// ServeHTTP upgrades the request and serves SSAP frames until the peer leaves.
func (tv *TV) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := tv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	tv.mu.Lock()
	tv.conns[ws] = true
	tv.mu.Unlock()

	defer func() {
		tv.mu.Lock()
		delete(tv.conns, ws)
		tv.mu.Unlock()
		ws.Close()
	}()

	s := &session{tv: tv, ws: ws}
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if !s.handle(data) {
			return
		}
	}
}

// Close drops every open connection.
func (tv *TV) Close() {
	tv.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(tv.conns))
	for c := range tv.conns {
		conns = append(conns, c)
	}
	tv.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// session is the per-connection state.
type session struct {
	tv         *TV
	ws         *websocket.Conn
	registered bool
}

// handle processes one inbound frame. It returns false to close the socket.
func (s *session) handle(data []byte) bool {
	frame, err := protocol.ParseFrame(data)
	if err != nil {
		slog.Debug("faketv: bad frame", "error", err)
		return true
	}
	req, ok := frame.(*protocol.RequestFrame)
	if !ok {
		return true
	}

	switch req.Type {
	case protocol.FrameTypeRegister:
		s.register(req)
		return true
	case protocol.FrameTypeRequest:
		if !s.registered {
			s.sendError(req.ID, "401 insufficient permissions (not registered)")
			return true
		}
		return s.request(req)
	}
	return true
}

func (s *session) register(req *protocol.RequestFrame) {
	var p protocol.RegisterPayload
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			s.sendError(req.ID, "400 bad register payload")
			return
		}
	}

	s.tv.mu.Lock()
	reg := Registration{PresentedKey: p.ClientKey}
	known := p.ClientKey != "" && s.tv.keys[p.ClientKey]
	reject := s.tv.cfg.Reject
	prompt := s.tv.cfg.Prompt && !known
	s.tv.mu.Unlock()

	if reject {
		if s.tv.cfg.Prompt {
			s.sendResponse(req.ID, map[string]any{"pairingType": protocol.PairingTypePrompt, "returnValue": true})
			reg.Prompted = true
		}
		reg.Rejected = true
		s.tv.record(reg)
		s.sendError(req.ID, "403 User denied access")
		return
	}

	if prompt {
		s.sendResponse(req.ID, map[string]any{"pairingType": protocol.PairingTypePrompt, "returnValue": true})
		reg.Prompted = true
	}

	key := p.ClientKey
	if !known {
		key = s.tv.cfg.ClientKey
		if key == "" {
			key = randomKey()
		}
	}

	s.tv.mu.Lock()
	s.tv.keys[key] = true
	s.tv.mu.Unlock()

	reg.IssuedKey = key
	s.tv.record(reg)
	s.registered = true

	data, _ := protocol.MarshalRegistered(req.ID, key)
	s.write(data)
}

func (s *session) request(req *protocol.RequestFrame) bool {
	payload := map[string]any{}
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			s.sendError(req.ID, "400 bad request payload")
			return true
		}
	}

	s.tv.mu.Lock()
	s.tv.calls = append(s.tv.calls, Call{URI: req.URI, Payload: payload, At: time.Now()})
	h, ok := s.tv.handlers[req.URI]
	s.tv.mu.Unlock()

	if !ok {
		s.sendError(req.ID, "404 no such service or method")
		return true
	}

	res, err := h(payload)
	if err != nil {
		s.sendError(req.ID, err.Error())
		return true
	}
	if res == nil {
		res = map[string]any{}
	}
	if _, set := res["returnValue"]; !set {
		res["returnValue"] = true
	}
	s.sendResponse(req.ID, res)

	if req.URI == "ssap://system/turnOff" && s.tv.cfg.CloseOnTurnOff {
		return false
	}
	return true
}

func (s *session) sendResponse(id string, payload map[string]any) {
	data, err := protocol.MarshalResponse(id, payload)
	if err != nil {
		return
	}
	s.write(data)
}

func (s *session) sendError(id, message string) {
	data, err := protocol.MarshalError(id, message)
	if err != nil {
		return
	}
	s.write(data)
}

func (s *session) write(data []byte) {
	if err := s.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("faketv: write failed", "error", err)
	}
}

func (tv *TV) record(reg Registration) {
	tv.mu.Lock()
	tv.registrations = append(tv.registrations, reg)
	tv.mu.Unlock()
}

// installDefaults wires the built-in stateful handlers.
func (tv *TV) installDefaults() {
	tv.handlers["ssap://audio/getVolume"] = func(map[string]any) (map[string]any, error) {
		tv.mu.Lock()
		defer tv.mu.Unlock()
		return map[string]any{"volume": tv.volume, "muted": tv.muted, "scenario": "mastervolume_tv_speaker"}, nil
	}
	tv.handlers["ssap://audio/setVolume"] = func(p map[string]any) (map[string]any, error) {
		v, ok := p["volume"].(float64)
		if !ok || v < 0 || v > 100 {
			return nil, errors.New("400 volume out of range")
		}
		tv.mu.Lock()
		tv.volume = int(v)
		tv.mu.Unlock()
		return nil, nil
	}
	tv.handlers["ssap://audio/volumeUp"] = func(map[string]any) (map[string]any, error) {
		tv.mu.Lock()
		defer tv.mu.Unlock()
		if tv.volume < 100 {
			tv.volume++
		}
		return nil, nil
	}
	tv.handlers["ssap://audio/volumeDown"] = func(map[string]any) (map[string]any, error) {
		tv.mu.Lock()
		defer tv.mu.Unlock()
		if tv.volume > 0 {
			tv.volume--
		}
		return nil, nil
	}
	tv.handlers["ssap://audio/setMute"] = func(p map[string]any) (map[string]any, error) {
		m, ok := p["mute"].(bool)
		if !ok {
			return nil, errors.New("400 mute flag missing")
		}
		tv.mu.Lock()
		tv.muted = m
		tv.mu.Unlock()
		return nil, nil
	}
	tv.handlers["ssap://system/turnOff"] = func(map[string]any) (map[string]any, error) {
		return nil, nil
	}
	tv.handlers["ssap://system.notifications/createToast"] = func(p map[string]any) (map[string]any, error) {
		if msg, _ := p["message"].(string); msg == "" {
			return nil, errors.New("400 message missing")
		}
		return map[string]any{"toastId": "com.webos.service.apiadapter-" + randomKey()[:6]}, nil
	}
	tv.handlers["ssap://tv/channelUp"] = func(map[string]any) (map[string]any, error) {
		tv.mu.Lock()
		defer tv.mu.Unlock()
		if len(tv.channels) > 0 {
			tv.channel = (tv.channel + 1) % len(tv.channels)
		}
		return nil, nil
	}
	tv.handlers["ssap://tv/channelDown"] = func(map[string]any) (map[string]any, error) {
		tv.mu.Lock()
		defer tv.mu.Unlock()
		if len(tv.channels) > 0 {
			tv.channel = (tv.channel - 1 + len(tv.channels)) % len(tv.channels)
		}
		return nil, nil
	}
	tv.handlers["ssap://tv/getCurrentChannel"] = func(map[string]any) (map[string]any, error) {
		tv.mu.Lock()
		defer tv.mu.Unlock()
		if len(tv.channels) == 0 {
			return nil, errors.New("500 no channel tuned")
		}
		out := map[string]any{}
		for k, v := range tv.channels[tv.channel] {
			out[k] = v
		}
		return out, nil
	}
	tv.handlers["ssap://tv/getChannelList"] = func(map[string]any) (map[string]any, error) {
		tv.mu.Lock()
		defer tv.mu.Unlock()
		return map[string]any{"channelList": copyRecords(tv.channels), "valueList": ""}, nil
	}
	tv.handlers["ssap://com.webos.applicationManager/listApps"] = func(map[string]any) (map[string]any, error) {
		tv.mu.Lock()
		defer tv.mu.Unlock()
		return map[string]any{"apps": copyRecords(tv.apps)}, nil
	}
}

func copyRecords(in []map[string]any) []map[string]any {
	out := make([]map[string]any, len(in))
	for i, r := range in {
		c := make(map[string]any, len(r))
		for k, v := range r {
			c[k] = v
		}
		out[i] = c
	}
	return out
}

func randomKey() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("faketv: crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}
