package transport

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dstrants/tvremote/internal/protocol"
)

const (
	// DefaultPort is the plain WebSocket SSAP port.
	DefaultPort = 3000
	// DefaultSecurePort is the TLS SSAP port used by newer firmware.
	DefaultSecurePort = 3001

	// maxFrameSize bounds a single inbound frame. Channel lists on large
	// cable line-ups run to a few hundred KB.
	maxFrameSize = 4 << 20
)

// Config configures the WebSocket transport.
type Config struct {
	Port            int           // 0 picks DefaultPort or DefaultSecurePort
	Secure          bool          // wss with certificate verification off (TVs self-sign)
	DialTimeout     time.Duration // connect bound
	RegisterTimeout time.Duration // bound on the whole registration exchange
	CommandTimeout  time.Duration // bound on each command round trip
	Commands        Commands      // nil means DefaultCommands()
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
		if c.Secure {
			c.Port = DefaultSecurePort
		}
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.RegisterTimeout <= 0 {
		c.RegisterTimeout = 60 * time.Second
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = 10 * time.Second
	}
	if c.Commands == nil {
		c.Commands = DefaultCommands()
	}
	return c
}

// WebSocket is the SSAP transport over gorilla/websocket.
type WebSocket struct {
	cfg    Config
	dialer *websocket.Dialer
}

// NewWebSocket creates a transport with the given config.
func NewWebSocket(cfg Config) *WebSocket {
	cfg = cfg.withDefaults()
	dialer := &websocket.Dialer{
		HandshakeTimeout: cfg.DialTimeout,
	}
	if cfg.Secure {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &WebSocket{cfg: cfg, dialer: dialer}
}

// URL returns the endpoint dialled for addr.
func (t *WebSocket) URL(addr netip.Addr) string {
	scheme := "ws"
	if t.cfg.Secure {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/", scheme, net.JoinHostPort(addr.String(), strconv.Itoa(t.cfg.Port)))
}

// Connect dials the TV at addr.
func (t *WebSocket) Connect(ctx context.Context, addr netip.Addr) (Conn, error) {
	if !addr.IsValid() {
		return nil, fmt.Errorf("%w: invalid address", ErrDeviceUnreachable)
	}
	url := t.URL(addr)

	dialCtx, cancel := context.WithTimeout(ctx, t.cfg.DialTimeout)
	defer cancel()

	ws, _, err := t.dialer.DialContext(dialCtx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrDeviceUnreachable, url, err)
	}
	ws.SetReadLimit(maxFrameSize)

	slog.Debug("transport connected", "url", url)
	return newWSConn(ws, t.cfg), nil
}

// wsConn matches inbound frames to in-flight requests by id.
type wsConn struct {
	ws      *websocket.Conn
	cfg     Config
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan any

	done    chan struct{}
	readErr error
}

func newWSConn(ws *websocket.Conn, cfg Config) *wsConn {
	c := &wsConn{
		ws:      ws,
		cfg:     cfg,
		pending: make(map[string]chan any),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *wsConn) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			return
		}

		frame, err := protocol.ParseFrame(data)
		if err != nil {
			slog.Debug("transport dropped frame", "error", err)
			continue
		}

		var id string
		switch f := frame.(type) {
		case *protocol.ResponseFrame:
			id = f.ID
		case *protocol.ErrorFrame:
			id = f.ID
			if id == "" {
				// Some firmwares answer without an id before a request is
				// matched. Every waiter gets it.
				c.broadcast(frame)
				continue
			}
		default:
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[id]
		c.mu.Unlock()
		if !ok {
			// Unsolicited or late frame; nobody is waiting for it.
			continue
		}
		deliver(ch, id, frame)
	}
}

func (c *wsConn) broadcast(frame any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		slog.Debug("transport dropped id-less error frame")
	}
	for id, ch := range c.pending {
		deliver(ch, id, frame)
	}
}

func deliver(ch chan any, id string, frame any) {
	select {
	case ch <- frame:
	default:
		slog.Warn("transport waiter backlog full, dropping frame", "id", id)
	}
}

func (c *wsConn) track(id string) chan any {
	ch := make(chan any, 4)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	return ch
}

func (c *wsConn) untrack(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *wsConn) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.CommandTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return fmt.Errorf("%w: %v", ErrConnClosed, c.readErr)
	}
	return ErrConnClosed
}

// Register sends a register frame and waits for the "registered" frame.
func (c *wsConn) Register(ctx context.Context, token string, onEvent func(RegistrationEvent)) (string, error) {
	id := nextID("register")
	ch := c.track(id)
	defer c.untrack(id)

	data, err := protocol.MarshalRegister(id, protocol.NewRegisterPayload(token))
	if err != nil {
		return "", err
	}
	if err := c.write(data); err != nil {
		return "", fmt.Errorf("%w: send register: %v", ErrDeviceUnreachable, err)
	}

	timer := time.NewTimer(c.cfg.RegisterTimeout)
	defer timer.Stop()

	emit := func(ev RegistrationEvent) {
		if onEvent != nil {
			onEvent(ev)
		}
	}

	for {
		select {
		case frame := <-ch:
			switch f := frame.(type) {
			case *protocol.ResponseFrame:
				if f.Type == protocol.FrameTypeRegistered {
					var p protocol.RegisteredPayload
					if len(f.Payload) > 0 {
						if err := json.Unmarshal(f.Payload, &p); err != nil {
							return "", fmt.Errorf("%w: decode registered payload: %v", ErrPairingRejected, err)
						}
					}
					key := p.ClientKey
					if key == "" {
						key = token
					}
					if key == "" {
						return "", fmt.Errorf("%w: device issued no client key", ErrPairingRejected)
					}
					emit(Registered)
					return key, nil
				}
				if protocol.IsPromptAck(f.Payload) {
					emit(Prompted)
					continue
				}
				if ok, present := protocol.ReturnValue(f.Payload); present && !ok {
					return "", fmt.Errorf("%w: %s", ErrPairingRejected, protocol.ErrorText(f.Payload))
				}
			case *protocol.ErrorFrame:
				return "", fmt.Errorf("%w: %s", ErrPairingRejected, f.Error)
			}
		case <-c.done:
			return "", fmt.Errorf("%w: %v", ErrDeviceUnreachable, c.closedErr())
		case <-timer.C:
			return "", fmt.Errorf("%w: no confirmation within %s", ErrPairingRejected, c.cfg.RegisterTimeout)
		case <-ctx.Done():
			return "", fmt.Errorf("%w: register abandoned: %w", ErrDeviceUnreachable, ctx.Err())
		}
	}
}

// Invoke sends a request for command and waits for its single answer.
func (c *wsConn) Invoke(ctx context.Context, command string, args map[string]any) (Response, error) {
	cmd, ok := c.cfg.Commands.Lookup(command)
	if !ok {
		return nil, &CommandError{Command: command, Err: ErrUnknownCommand}
	}

	id := nextID(command)
	ch := c.track(id)
	defer c.untrack(id)

	var payload any
	if len(args) > 0 {
		payload = args
	}
	data, err := protocol.MarshalRequest(id, cmd.URI, payload)
	if err != nil {
		return nil, &CommandError{Command: command, Err: err}
	}
	if err := c.write(data); err != nil {
		return nil, &CommandError{Command: command, Err: fmt.Errorf("send: %w", err)}
	}

	timer := time.NewTimer(c.cfg.CommandTimeout)
	defer timer.Stop()

	select {
	case frame := <-ch:
		switch f := frame.(type) {
		case *protocol.ResponseFrame:
			resp := Response{}
			if len(f.Payload) > 0 {
				if err := json.Unmarshal(f.Payload, &resp); err != nil {
					return nil, &CommandError{Command: command, Err: fmt.Errorf("decode payload: %w", err)}
				}
			}
			if ok, present := protocol.ReturnValue(f.Payload); present && !ok {
				text := protocol.ErrorText(f.Payload)
				if text == "" {
					text = "returnValue false"
				}
				return nil, &CommandError{Command: command, Err: errors.New(text)}
			}
			return resp, nil
		case *protocol.ErrorFrame:
			return nil, &CommandError{Command: command, Err: errors.New(f.Error)}
		default:
			return nil, &CommandError{Command: command, Err: fmt.Errorf("unexpected frame %T", frame)}
		}
	case <-c.done:
		return nil, &CommandError{Command: command, Err: c.closedErr()}
	case <-timer.C:
		return nil, &CommandError{Command: command, Err: ErrTimeout}
	case <-ctx.Done():
		return nil, &CommandError{Command: command, Err: ctx.Err()}
	}
}

// Close sends a close frame and tears down the socket.
func (c *wsConn) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	err := c.ws.Close()
	<-c.done
	return err
}

func nextID(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}
