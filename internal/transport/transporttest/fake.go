// Package transporttest provides an in-memory transport.Transport for tests
// of the layers above the wire.
package transporttest

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/dstrants/tvremote/internal/transport"
)

// Invocation is one command the fake received.
type Invocation struct {
	Command string
	Args    map[string]any
	At      time.Time
}

// Fake records every call and answers from canned tables. The zero value
// connects, registers and answers every command with an empty response.
type Fake struct {
	mu sync.Mutex

	ConnectErr  error
	RegisterErr error
	IssuedKey   string // returned by Register; empty echoes the presented token or "fake-key"
	Prompt      bool   // emit Prompted before Registered when no token is presented
	Responses   map[string]transport.Response
	Errors      map[string]error
	Now         func() time.Time

	Connects    []netip.Addr
	Presented   []string
	Events      []transport.RegistrationEvent
	Invocations []Invocation
	Closes      int
}

var _ transport.Transport = (*Fake)(nil)

// Connect implements transport.Transport.
func (f *Fake) Connect(ctx context.Context, addr netip.Addr) (transport.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Connects = append(f.Connects, addr)
	if f.ConnectErr != nil {
		return nil, f.ConnectErr
	}
	return &fakeConn{f: f}, nil
}

// Commands returns the names of every invocation in order.
func (f *Fake) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Invocations))
	for i, inv := range f.Invocations {
		out[i] = inv.Command
	}
	return out
}

// Calls returns a copy of every invocation.
func (f *Fake) Calls() []Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Invocation, len(f.Invocations))
	copy(out, f.Invocations)
	return out
}

// ConnectCount returns how many times Connect was called.
func (f *Fake) ConnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Connects)
}

// CloseCount returns how many connections were closed.
func (f *Fake) CloseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Closes
}

func (f *Fake) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

type fakeConn struct {
	f *Fake
}

func (c *fakeConn) Register(ctx context.Context, token string, onEvent func(transport.RegistrationEvent)) (string, error) {
	f := c.f
	f.mu.Lock()
	f.Presented = append(f.Presented, token)
	regErr := f.RegisterErr
	prompt := f.Prompt && token == ""
	issued := f.IssuedKey
	f.mu.Unlock()

	emit := func(ev transport.RegistrationEvent) {
		f.mu.Lock()
		f.Events = append(f.Events, ev)
		f.mu.Unlock()
		if onEvent != nil {
			onEvent(ev)
		}
	}

	if prompt {
		emit(transport.Prompted)
	}
	if regErr != nil {
		return "", regErr
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if issued == "" {
		issued = token
	}
	if issued == "" {
		issued = "fake-key"
	}
	emit(transport.Registered)
	return issued, nil
}

func (c *fakeConn) Invoke(ctx context.Context, command string, args map[string]any) (transport.Response, error) {
	f := c.f
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Invocations = append(f.Invocations, Invocation{Command: command, Args: args, At: f.now()})
	if err := ctx.Err(); err != nil {
		return nil, &transport.CommandError{Command: command, Err: err}
	}
	if err, ok := f.Errors[command]; ok {
		return nil, &transport.CommandError{Command: command, Err: err}
	}
	if resp, ok := f.Responses[command]; ok {
		return resp, nil
	}
	return transport.Response{"returnValue": true}, nil
}

func (c *fakeConn) Close() error {
	c.f.mu.Lock()
	c.f.Closes++
	c.f.mu.Unlock()
	return nil
}
