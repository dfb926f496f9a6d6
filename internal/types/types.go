package types

import "encoding/json"

// Role is the side of the relay a connection registered as.
// Controllers originate state and commands; displays originate events.
type Role string

const (
	RoleController Role = "controller"
	RoleDisplay    Role = "display"
)

// ParseRole maps wire role names onto a Role. The controller UI has
// historically registered as "panel" and the overlay as "overlay";
// both spellings stay accepted alongside the canonical names.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "controller", "panel":
		return RoleController, true
	case "display", "overlay":
		return RoleDisplay, true
	default:
		return "", false
	}
}

// Message kinds carried in the Envelope's type discriminator.
const (
	TypeRegister     = "register"
	TypeState        = "state"
	TypeCmd          = "cmd"
	TypeEvent        = "event"
	TypeRequestState = "request-state"
	TypeError        = "error"
)

// Envelope is the single wire message exchanged over a relay connection.
// Which fields are meaningful depends on Type; payloads are opaque to
// the relay and forwarded untouched.
type Envelope struct {
	Type    string          `json:"type"`
	Role    string          `json:"role,omitempty"` // register only
	Channel string          `json:"channel,omitempty"`
	Cmd     string          `json:"cmd,omitempty"`   // cmd only
	Event   string          `json:"event,omitempty"` // event only
	Error   string          `json:"error,omitempty"` // error only
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ErrorEnvelope builds an error reply for a single connection.
// Errors are advisory; the connection stays open.
func ErrorEnvelope(reason string) Envelope {
	return Envelope{Type: TypeError, Error: reason}
}
