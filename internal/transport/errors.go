package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceUnreachable indicates the TV could not be reached or dropped
	// the connection mid-exchange.
	ErrDeviceUnreachable = errors.New("device unreachable")

	// ErrPairingRejected indicates the TV refused the registration or the
	// user did not accept the on-screen prompt in time.
	ErrPairingRejected = errors.New("pairing rejected")

	// ErrCommandFailed is matched by every *CommandError.
	ErrCommandFailed = errors.New("command failed")

	// ErrUnknownCommand indicates a command name missing from the vocabulary.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrTimeout indicates the TV did not answer a command in time.
	ErrTimeout = errors.New("timed out waiting for device")

	// ErrConnClosed indicates the connection closed before an answer arrived.
	ErrConnClosed = errors.New("connection closed")
)

// CommandError reports a failed device command.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed: %v", e.Command, e.Err)
}

// Unwrap exposes both ErrCommandFailed and the underlying cause to errors.Is.
func (e *CommandError) Unwrap() []error {
	return []error{ErrCommandFailed, e.Err}
}
