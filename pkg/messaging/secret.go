package messaging

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Secret is a raw binary value that must survive round-trips through text
// serializations. It accepts dual-form input (raw bytes, or a base64 string
// that is decoded on construction) and always re-encodes as base64 text in
// JSON; it is never written to a text representation as raw bytes. An
// absent (nil) secret serializes as absent, not as an empty string.
//
// All construction paths funnel through the same base64 boundary, so
// decode-then-encode is idempotent on valid input.
type Secret []byte

// SecretFromBytes wraps raw binary input unchanged.
func SecretFromBytes(b []byte) Secret {
	return Secret(b)
}

// SecretFromString decodes base64 textual input. Malformed input fails with
// a *ValidationError naming the offending value; nothing is silently
// coerced or dropped.
func SecretFromString(field, s string) (Secret, error) {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, NewValidationError(field, fmt.Sprintf("assumed base64 decode of %q failed: %v", s, err))
	}
	return Secret(decoded), nil
}

// String returns the base64 text form.
func (s Secret) String() string {
	return base64.StdEncoding.EncodeToString(s)
}

// MarshalJSON writes the secret as a base64 JSON string.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON reads a base64 JSON string through the same normalization
// boundary as SecretFromString. A JSON null leaves the secret nil (absent);
// an empty string decodes to a present, zero-length secret.
func (s *Secret) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return NewValidationError("server_private_key", "must be a base64 string")
	}
	decoded, err := SecretFromString("server_private_key", text)
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}
