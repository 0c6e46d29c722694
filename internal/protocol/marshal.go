package protocol

import (
	"encoding/json"
	"fmt"
)

// MarshalRequest builds a JSON-encoded request frame for uri.
func MarshalRequest(id, uri string, payload any) ([]byte, error) {
	if uri == "" {
		return nil, &FrameError{Code: "MISSING_FIELD", Field: "uri", Message: "request frame missing required \"uri\" field"}
	}
	return marshalClientFrame(FrameTypeRequest, id, uri, payload)
}

// MarshalRegister builds a JSON-encoded register frame.
func MarshalRegister(id string, payload RegisterPayload) ([]byte, error) {
	return marshalClientFrame(FrameTypeRegister, id, "", payload)
}

func marshalClientFrame(typ FrameType, id, uri string, payload any) ([]byte, error) {
	if id == "" {
		return nil, &FrameError{Code: "MISSING_FIELD", Field: "id", Message: fmt.Sprintf("%s frame missing required \"id\" field", typ)}
	}

	frame := RequestFrame{
		Type: typ,
		ID:   id,
		URI:  uri,
	}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, &FrameError{Code: "INVALID_JSON", Message: fmt.Sprintf("failed to marshal %s payload: %v", typ, err)}
		}
		frame.Payload = raw
	}

	return json.Marshal(frame)
}

// MarshalResponse builds a JSON-encoded response frame.
func MarshalResponse(id string, payload any) ([]byte, error) {
	return marshalServerFrame(FrameTypeResponse, id, payload)
}

// MarshalRegistered builds the terminal frame of a successful registration.
func MarshalRegistered(id, clientKey string) ([]byte, error) {
	return marshalServerFrame(FrameTypeRegistered, id, RegisteredPayload{ClientKey: clientKey})
}

func marshalServerFrame(typ FrameType, id string, payload any) ([]byte, error) {
	if id == "" {
		return nil, &FrameError{Code: "MISSING_FIELD", Field: "id", Message: fmt.Sprintf("%s frame missing required \"id\" field", typ)}
	}

	frame := ResponseFrame{
		Type: typ,
		ID:   id,
	}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, &FrameError{Code: "INVALID_JSON", Message: fmt.Sprintf("failed to marshal %s payload: %v", typ, err)}
		}
		frame.Payload = raw
	}

	return json.Marshal(frame)
}

// MarshalError builds a JSON-encoded error frame.
func MarshalError(id, message string) ([]byte, error) {
	if message == "" {
		return nil, &FrameError{Code: "MISSING_FIELD", Field: "error", Message: "error frame missing required \"error\" field"}
	}
	return json.Marshal(ErrorFrame{
		Type:    FrameTypeError,
		ID:      id,
		Error:   message,
		Payload: json.RawMessage(`{}`),
	})
}
