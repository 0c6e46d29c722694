package transport

import (
	"context"
	"net/netip"
)

// RegistrationEvent is a status reported during the registration exchange.
type RegistrationEvent int

const (
	// Prompted means the TV is showing the accept/deny dialog.
	Prompted RegistrationEvent = iota + 1
	// Registered ends the exchange successfully.
	Registered
)

func (e RegistrationEvent) String() string {
	switch e {
	case Prompted:
		return "prompted"
	case Registered:
		return "registered"
	default:
		return "unknown"
	}
}

// Response is the payload the TV returned for a command.
type Response map[string]any

// Transport opens connections to a TV.
type Transport interface {
	Connect(ctx context.Context, addr netip.Addr) (Conn, error)
}

// Conn is a live connection to a TV.
type Conn interface {
	// Register runs the pairing exchange. An empty token forces a fresh
	// pairing. onEvent observes every status event; it may be nil. The
	// returned token is the client key the TV accepted or issued.
	Register(ctx context.Context, token string, onEvent func(RegistrationEvent)) (string, error)

	// Invoke calls a named command from the vocabulary.
	Invoke(ctx context.Context, command string, args map[string]any) (Response, error)

	Close() error
}
