// Package session turns a pairing record and a transport into a registered
// connection to the TV. Every operation gets its own session; nothing is pooled
// and the record is re-read from disk on every Open.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/dstrants/tvremote/internal/metrics"
	"github.com/dstrants/tvremote/internal/pairing"
	"github.com/dstrants/tvremote/internal/transport"
)

// ErrPairingRequired means no TV has been configured yet. It also matches
// pairing.ErrConfigMissing.
var ErrPairingRequired = fmt.Errorf("pairing required, configure the TV address first: %w", pairing.ErrConfigMissing)

// RecordStore loads and saves the pairing record.
type RecordStore interface {
	Load() (pairing.Record, error)
	Save(pairing.Record) error
}

// Manager opens sessions.
type Manager struct {
	store     RecordStore
	transport transport.Transport
	logger    *slog.Logger
}

// NewManager creates a manager. A nil logger uses slog.Default().
func NewManager(store RecordStore, tr transport.Transport, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, transport: tr, logger: logger}
}

// Open connects and registers with the TV.
//
// With explicit set, a fresh pairing runs against that address (no token is
// presented) and the issued key replaces any stored record. Otherwise the
// stored record is loaded and its token re-presented.
func (m *Manager) Open(ctx context.Context, explicit *netip.Addr) (*Session, error) {
	var (
		rec  pairing.Record
		mode string
	)
	if explicit != nil {
		if !explicit.Is4() {
			return nil, fmt.Errorf("%w: %s is not an IPv4 address", pairing.ErrConfigInvalid, *explicit)
		}
		rec = pairing.Record{IP: *explicit}
		mode = metrics.ModeFresh
	} else {
		loaded, err := m.store.Load()
		if err != nil {
			if errors.Is(err, pairing.ErrConfigMissing) {
				return nil, ErrPairingRequired
			}
			return nil, err
		}
		rec = loaded
		mode = metrics.ModeStored
	}

	log := m.logger.With("ip", rec.IP.String())

	conn, err := m.transport.Connect(ctx, rec.IP)
	if err != nil {
		log.Warn("connect failed", "error", err)
		return nil, err
	}

	issued, err := conn.Register(ctx, rec.Token, func(ev transport.RegistrationEvent) {
		switch ev {
		case transport.Prompted:
			metrics.IncPrompt()
			log.Info("please accept the connection on the TV")
		case transport.Registered:
			log.Debug("registered with tv", "mode", mode)
		}
	})
	metrics.ObserveRegistration(mode, err)
	if err != nil {
		log.Warn("registration failed", "mode", mode, "error", err)
		closeConn(log, conn)
		return nil, err
	}

	if explicit != nil {
		rec.Token = issued
		if err := m.store.Save(rec); err != nil {
			closeConn(log, conn)
			return nil, fmt.Errorf("save pairing record: %w", err)
		}
		log.Info("tv paired", "token", pairing.RedactToken(issued))
	} else if !pairing.SameToken(issued, rec.Token) {
		// Records only change through an explicit re-pairing.
		log.Warn("device issued a different client key, keeping stored record",
			"stored", pairing.RedactToken(rec.Token),
			"issued", pairing.RedactToken(issued))
	}

	return &Session{conn: conn, record: rec, logger: log}, nil
}

// Session is one registered connection.
type Session struct {
	conn   transport.Conn
	record pairing.Record
	logger *slog.Logger
}

// Record returns the pairing record the session was established with.
func (s *Session) Record() pairing.Record { return s.record }

// Invoke runs a named command and records its outcome.
func (s *Session) Invoke(ctx context.Context, command string, args map[string]any) (transport.Response, error) {
	resp, err := s.conn.Invoke(ctx, command, args)
	metrics.ObserveCommand(command, err)
	if err != nil {
		s.logger.Warn("command failed", "command", command, "error", err)
		return nil, err
	}
	s.logger.Debug("command ok", "command", command)
	return resp, nil
}

// Close releases the connection. Errors are logged, not returned.
func (s *Session) Close() {
	closeConn(s.logger, s.conn)
}

func closeConn(log *slog.Logger, conn transport.Conn) {
	if err := conn.Close(); err != nil {
		log.Debug("close connection", "error", err)
	}
}
