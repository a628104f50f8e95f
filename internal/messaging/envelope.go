package messaging

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrMalformed is returned for frames that are not a request envelope.
var ErrMalformed = errors.New("malformed message")

const (
	TypeResponse = "response"
	TypeError    = "error"
)

// Request is an inbound message. Payload fields sit beside id and type in
// the same JSON object, so the raw body is kept for Decode.
type Request struct {
	ID   *int64 `json:"id,omitempty"`
	Type string `json:"type"`

	raw json.RawMessage
}

// ParseRequest decodes the envelope of a frame.
func ParseRequest(frame []byte) (Request, error) {
	var request Request
	if err := json.Unmarshal(frame, &request); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if request.Type == "" {
		return Request{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	request.raw = append(json.RawMessage(nil), frame...)
	return request, nil
}

// Decode unmarshals the payload fields into v.
func (request Request) Decode(v any) error {
	if len(request.raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(request.raw, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", request.Type, err)
	}
	return nil
}

// Response answers a request that carried an id.
type Response struct {
	ID     int64  `json:"id"`
	Type   string `json:"type"`
	Result any    `json:"result"`
}

// ErrorResponse reports a failed request.
type ErrorResponse struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Error string `json:"error"`
}
