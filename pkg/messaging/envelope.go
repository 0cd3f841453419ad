// Package messaging defines the structured payload exchanged between the
// server and an agent per operation. The envelope and its sub-structures
// are immutable value objects once constructed: a responder builds a fresh
// envelope to reply rather than mutating one in place, and the only state
// threaded across exchanges is the opaque protocol_state mapping.
//
// The model validates its own shape (required fields, the send/receive
// choice, base64 secrets). The three open mappings pass through untouched;
// their contents are validated by whichever agent or protocol declared
// their shape via a capability descriptor's config schema.
package messaging

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/parcelpost/agent-directory/pkg/meta"
)

// Action tells the agent what to do with this exchange.
type Action string

// The two recognized directive actions.
const (
	ActionSend    Action = "send"
	ActionReceive Action = "receive"
)

// Valid reports whether the action is exactly "send" or "receive".
func (a Action) Valid() bool {
	return a == ActionSend || a == ActionReceive
}

// EndpointIdentity identifies the remote endpoint in this exchange.
type EndpointIdentity struct {
	Name     string `json:"name"`
	Hostname string `json:"hostname"`
	Address  string `json:"address"`
}

// Validate checks that all identity fields are present.
func (e *EndpointIdentity) Validate() error {
	if e.Name == "" {
		return NewValidationError("name", "must be non-empty")
	}
	if e.Hostname == "" {
		return NewValidationError("hostname", "must be non-empty")
	}
	if e.Address == "" {
		return NewValidationError("address", "must be non-empty")
	}
	return nil
}

// ServerDirective carries the server's instruction for this exchange.
type ServerDirective struct {
	Action Action `json:"action"`
	// ListenForID correlates this directive to the response the server
	// expects back.
	ListenForID       uuid.UUID        `json:"listen_for_id"`
	ServerPrivateKey  Secret           `json:"server_private_key,omitempty"`
	PreferredProtocol meta.ProtocolTag `json:"preferred_protocol,omitempty"`
}

// MarshalJSON distinguishes an absent secret (nil, omitted from the wire
// form) from a present zero-length one (emitted as ""). The []byte omitempty
// rule collapses the two, so the directive marshals through a wire struct
// holding a pointer instead.
func (d ServerDirective) MarshalJSON() ([]byte, error) {
	type wire struct {
		Action            Action           `json:"action"`
		ListenForID       uuid.UUID        `json:"listen_for_id"`
		ServerPrivateKey  *Secret          `json:"server_private_key,omitempty"`
		PreferredProtocol meta.ProtocolTag `json:"preferred_protocol,omitempty"`
	}
	w := wire{
		Action:            d.Action,
		ListenForID:       d.ListenForID,
		PreferredProtocol: d.PreferredProtocol,
	}
	if d.ServerPrivateKey != nil {
		w.ServerPrivateKey = &d.ServerPrivateKey
	}
	return json.Marshal(w)
}

// Validate checks the directive's closed-choice and presence constraints.
func (d *ServerDirective) Validate() error {
	if !d.Action.Valid() {
		return NewValidationError("action",
			"must be exactly \"send\" or \"receive\", got \""+string(d.Action)+"\"")
	}
	if d.ListenForID == uuid.Nil {
		return NewValidationError("listen_for_id", "must be a non-nil UUID")
	}
	if d.PreferredProtocol != "" && !d.PreferredProtocol.Valid() {
		return NewValidationError("preferred_protocol",
			"malformed protocol tag \""+string(d.PreferredProtocol)+"\"")
	}
	return nil
}

// Envelope is the payload of a single server/agent exchange. AgentConfig,
// ProtocolConfig, and ProtocolState are opaque containers from this model's
// perspective; no key or type constraint is imposed on their contents.
type Envelope struct {
	AgentConfig    map[string]any   `json:"agent_config"`
	ProtocolConfig map[string]any   `json:"protocol_config"`
	ProtocolState  map[string]any   `json:"protocol_state,omitempty"`
	ModelData      EndpointIdentity `json:"model_data"`
	ServerConfig   ServerDirective  `json:"server_config"`
}

// Validate checks the envelope and every sub-structure, returning a
// *ValidationError with the full field path on the first failure.
func (e *Envelope) Validate() error {
	if e.AgentConfig == nil {
		return NewValidationError("agent_config", "required mapping is missing")
	}
	if e.ProtocolConfig == nil {
		return NewValidationError("protocol_config", "required mapping is missing")
	}
	if err := e.ModelData.Validate(); err != nil {
		return err.(*ValidationError).prefixed("model_data")
	}
	if err := e.ServerConfig.Validate(); err != nil {
		return err.(*ValidationError).prefixed("server_config")
	}
	return nil
}

// DecodeEnvelope parses and validates a serialized envelope. A malformed
// document or any constraint violation fails with a *ValidationError; no
// partially constructed envelope is returned.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		if verr, ok := err.(*ValidationError); ok {
			return nil, verr
		}
		return nil, NewValidationError("envelope", err.Error())
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// Encode serializes the envelope to its JSON wire form, validating first so
// an invalid envelope can never reach the wire.
func (e *Envelope) Encode() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}
