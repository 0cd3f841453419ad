package commsutil

import "encoding/json"

// EncodePayload serializes a directory request, response, or change event to
// its JSON wire bytes.
func EncodePayload(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodePayload deserializes wire bytes into the given directory message
// target.
func DecodePayload(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
