// Package v1 defines the Ocean Sentinel realtime protocol v1 contract.
//
// This package is intentionally stable and dependency-light.
// Every frame on the wire is a JSON object tagged by "type" with a free-form "payload".
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Envelope is the canonical wire wrapper.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate performs structural validation for an Envelope.
// Inbound types are open-ended: only the presence of a type tag is enforced.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("missing field: type")
	}
	if len(e.Payload) > 0 {
		if !json.Valid(e.Payload) {
			return errors.New("invalid field: payload")
		}
	}
	return nil
}

// Encode builds a frame for typ with payload marshalled as JSON.
func Encode(typ string, payload any) ([]byte, error) {
	if strings.TrimSpace(typ) == "" {
		return nil, errors.New("missing field: type")
	}
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return json.Marshal(Envelope{Type: typ, Payload: p})
}

// Decode parses and validates one inbound frame.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("bad json: %w", err)
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, fmt.Errorf("bad envelope: %w", err)
	}
	return env, nil
}
