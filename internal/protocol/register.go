package protocol

import "encoding/json"

// PairingTypePrompt asks the TV to show an accept/deny dialog.
const PairingTypePrompt = "PROMPT"

// RegisterPayload is the body of a register frame. ClientKey is empty for a
// first-time (forced) registration.
type RegisterPayload struct {
	ForcePairing bool     `json:"forcePairing"`
	PairingType  string   `json:"pairingType"`
	ClientKey    string   `json:"client-key,omitempty"`
	Manifest     Manifest `json:"manifest"`
}

// Manifest describes the client and the permissions it asks for.
type Manifest struct {
	ManifestVersion int         `json:"manifestVersion"`
	AppVersion      string      `json:"appVersion"`
	Signed          SignedBlock `json:"signed"`
	Permissions     []string    `json:"permissions"`
}

type SignedBlock struct {
	AppID             string            `json:"appId"`
	VendorID          string            `json:"vendorId"`
	Created           string            `json:"created"`
	LocalizedAppNames map[string]string `json:"localizedAppNames"`
	Permissions       []string          `json:"permissions"`
	Serial            string            `json:"serial"`
}

// DefaultPermissions covers every command in the default vocabulary.
var DefaultPermissions = []string{
	"LAUNCH",
	"CONTROL_AUDIO",
	"CONTROL_POWER",
	"CONTROL_DISPLAY",
	"CONTROL_INPUT_TV",
	"READ_INSTALLED_APPS",
	"READ_TV_CHANNEL_LIST",
	"READ_CURRENT_CHANNEL",
	"READ_RUNNING_APPS",
	"WRITE_NOTIFICATION_TOAST",
}

// NewRegisterPayload builds a PROMPT registration. An empty clientKey forces
// a fresh pairing.
func NewRegisterPayload(clientKey string) RegisterPayload {
	return RegisterPayload{
		ForcePairing: false,
		PairingType:  PairingTypePrompt,
		ClientKey:    clientKey,
		Manifest: Manifest{
			ManifestVersion: 1,
			AppVersion:      "1.1",
			Signed: SignedBlock{
				AppID:             "com.github.dstrants.tvremote",
				VendorID:          "com.github.dstrants",
				Created:           "20240101",
				LocalizedAppNames: map[string]string{"": "TV Remote"},
				Permissions:       DefaultPermissions,
				Serial:            "tvremote",
			},
			Permissions: DefaultPermissions,
		},
	}
}

// RegisteredPayload is carried by the "registered" frame.
type RegisteredPayload struct {
	ClientKey string `json:"client-key"`
}

// IsPromptAck reports whether a response payload to a register frame means the
// TV is waiting for the user to accept the pairing dialog.
func IsPromptAck(payload json.RawMessage) bool {
	if len(payload) == 0 {
		return false
	}
	var p struct {
		PairingType string `json:"pairingType"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return false
	}
	return p.PairingType == PairingTypePrompt
}

// ReturnValue extracts the "returnValue" flag of a response payload. ok is
// false when the payload has no such field.
func ReturnValue(payload json.RawMessage) (value bool, ok bool) {
	if len(payload) == 0 {
		return false, false
	}
	var p struct {
		ReturnValue *bool `json:"returnValue"`
	}
	if err := json.Unmarshal(payload, &p); err != nil || p.ReturnValue == nil {
		return false, false
	}
	return *p.ReturnValue, true
}

// ErrorText returns the "errorText" a TV puts in failed response payloads.
func ErrorText(payload json.RawMessage) string {
	if len(payload) == 0 {
		return ""
	}
	var p struct {
		ErrorText string `json:"errorText"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return ""
	}
	return p.ErrorText
}
