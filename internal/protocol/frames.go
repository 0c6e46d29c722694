package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FrameError carries structured context for observability.
type FrameError struct {
	Code    string // e.g. "INVALID_JSON", "MISSING_FIELD", "UNKNOWN_TYPE"
	Field   string // which field was the problem, if applicable
	Message string // human-readable detail
}

func (e *FrameError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("frame error [%s]: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("frame error [%s]: %s", e.Code, e.Message)
}

// FrameType is the SSAP "type" discriminator.
type FrameType string

const (
	FrameTypeRegister   FrameType = "register"
	FrameTypeRequest    FrameType = "request"
	FrameTypeResponse   FrameType = "response"
	FrameTypeRegistered FrameType = "registered"
	FrameTypeError      FrameType = "error"
)

type RawFrame struct {
	Type FrameType `json:"type"`
}

// RequestFrame is sent by the client. Register frames carry no URI.
type RequestFrame struct {
	Type    FrameType       `json:"type"`
	ID      string          `json:"id"`
	URI     string          `json:"uri,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ResponseFrame is sent by the TV, either as a plain response or as the
// terminal "registered" frame of the pairing exchange.
type ResponseFrame struct {
	Type    FrameType       `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ErrorFrame reports a failed request or a refused registration.
type ErrorFrame struct {
	Type    FrameType       `json:"type"`
	ID      string          `json:"id"`
	Error   string          `json:"error"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ParseFrame decodes one inbound SSAP frame into its concrete type.
func ParseFrame(data []byte) (any, error) {
	var raw RawFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &FrameError{Code: "INVALID_JSON", Message: fmt.Sprintf("invalid frame JSON: %v", err)}
	}

	if raw.Type == "" {
		return nil, &FrameError{Code: "MISSING_FIELD", Field: "type", Message: "frame missing required \"type\" field"}
	}

	switch raw.Type {

	case FrameTypeRegister, FrameTypeRequest:
		var req RequestFrame
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, &FrameError{Code: "INVALID_JSON", Message: fmt.Sprintf("invalid %s frame JSON: %v", raw.Type, err)}
		}
		if req.ID == "" {
			return nil, &FrameError{Code: "MISSING_FIELD", Field: "id", Message: fmt.Sprintf("%s frame missing required \"id\" field", raw.Type)}
		}
		if req.Type == FrameTypeRequest && req.URI == "" {
			return nil, &FrameError{Code: "MISSING_FIELD", Field: "uri", Message: "request frame missing required \"uri\" field"}
		}
		req.Payload = nullToNil(req.Payload)
		return &req, nil

	case FrameTypeResponse, FrameTypeRegistered:
		var res ResponseFrame
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, &FrameError{Code: "INVALID_JSON", Message: fmt.Sprintf("invalid %s frame JSON: %v", raw.Type, err)}
		}
		if res.ID == "" {
			return nil, &FrameError{Code: "MISSING_FIELD", Field: "id", Message: fmt.Sprintf("%s frame missing required \"id\" field", raw.Type)}
		}
		res.Payload = nullToNil(res.Payload)
		return &res, nil

	case FrameTypeError:
		var ef ErrorFrame
		if err := json.Unmarshal(data, &ef); err != nil {
			return nil, &FrameError{Code: "INVALID_JSON", Message: fmt.Sprintf("invalid error frame JSON: %v", err)}
		}
		// Some firmwares omit the id on errors raised before a request is matched.
		ef.Payload = nullToNil(ef.Payload)
		return &ef, nil

	default:
		return nil, &FrameError{Code: "UNKNOWN_TYPE", Message: fmt.Sprintf("unknown frame type: %q", raw.Type)}
	}
}

func nullToNil(raw json.RawMessage) json.RawMessage {
	if bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return raw
}
