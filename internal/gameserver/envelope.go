// Package gameserver hosts the game engine and its websocket transport:
// the single world lock, the session lifecycle, the simulation tick, and
// the wire protocol spoken with clients.
package gameserver

import (
	"encoding/json"
	"fmt"
)

// Inbound envelope types.
const (
	TypeGame       = "game"
	TypeSuggest    = "autocomplete_suggest"
	TypeSuggestGet = "autocomplete_get"
	TypePing       = "ping"
)

// Outbound envelope types. TypeGame and TypeChat carry the two output
// streams a client renders separately.
const (
	TypeChat         = "chat"
	TypeSuggestion   = "suggestion"
	TypeAutocomplete = "autocomplete"
	TypePong         = "pong"
	TypeError        = "error"
)

// Envelope is the framing for every websocket message in both directions.
// Data is a bare JSON string: `{"type":"game","data":"go north"}`.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EncodeText marshals a text-payload envelope.
func EncodeText(envType, text string) ([]byte, error) {
	data, err := json.Marshal(text)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", envType, err)
	}
	return json.Marshal(Envelope{Type: envType, Data: data})
}

// DecodeEnvelope parses one inbound frame.
//
// Postcondition: Returns an error for malformed JSON or an empty type.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("envelope missing type")
	}
	return env, nil
}

// DecodeText parses the string payload of an inbound envelope.
func DecodeText(env Envelope) (string, error) {
	var text string
	if err := json.Unmarshal(env.Data, &text); err != nil {
		return "", fmt.Errorf("decoding %s payload: %w", env.Type, err)
	}
	return text, nil
}
