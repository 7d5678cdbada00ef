package api

import (
	"github.com/danielgtaylor/huma/v2"
)

// envelopeVersion is bumped when the envelope shape changes.
const envelopeVersion = 1

// Envelope wraps every response body.
type Envelope struct {
	V       int       `json:"v"`
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// EnvelopeTransformer wraps response bodies in an Envelope. Errors produced
// by the error handler become the envelope's error member.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	switch body := v.(type) {
	case *Envelope, Envelope:
		return v, nil
	case *APIError:
		return &Envelope{V: envelopeVersion, Success: false, Error: body}, nil
	default:
		return &Envelope{V: envelopeVersion, Success: true, Data: v}, nil
	}
}
