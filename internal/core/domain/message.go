package domain

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// MessageType is the kind of a cross-window message sent by the authorization tab.
type MessageType string

// Recognised message types.
const (
	MessageSuccess MessageType = "oauth-success"
	MessageError   MessageType = "oauth-error"
	MessageCancel  MessageType = "oauth-cancel"
)

// IsDefinitive reports whether the type settles a flow.
func (t MessageType) IsDefinitive() bool {
	switch t {
	case MessageSuccess, MessageError, MessageCancel:
		return true
	default:
		return false
	}
}

// WindowMessage is a raw message delivered from a spawned tab.
type WindowMessage struct {
	// Window is the name of the window the message came from, if known.
	Window string
	// Origin is the scheme://host[:port] the sending page claims.
	Origin string
	// Data is the message payload: a JSON object, a JSON string or bare text.
	Data []byte
	// ReceivedAt is when the relay accepted the message.
	ReceivedAt time.Time
}

// ParsedMessage is a WindowMessage decoded into one of the two accepted shapes.
type ParsedMessage struct {
	Type MessageType
	// Provider is set for structured messages that carry one.
	Provider Provider
	// Legacy is true for bare-string messages without a provider field.
	Legacy bool
	// Error carries the error text of an oauth-error message.
	Error string
	// Data carries the optional payload of a structured message.
	Data json.RawMessage
}

type structuredMessage struct {
	Type     string          `json:"type"`
	Provider string          `json:"provider"`
	Data     json.RawMessage `json:"data,omitempty"`
	Error    json.RawMessage `json:"error,omitempty"`
}

// ParseMessage decodes a message payload.
// Returns ErrUnrecognisedMessage for anything that is not a structured or legacy message.
func ParseMessage(data []byte) (ParsedMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ParsedMessage{}, ErrUnrecognisedMessage
	}

	switch trimmed[0] {
	case '{':
		var sm structuredMessage
		if err := json.Unmarshal(trimmed, &sm); err != nil {
			return ParsedMessage{}, ErrUnrecognisedMessage
		}
		t := MessageType(sm.Type)
		if !t.IsDefinitive() {
			return ParsedMessage{}, ErrUnrecognisedMessage
		}
		msg := ParsedMessage{Type: t, Data: sm.Data, Error: errorText(sm.Error)}
		if sm.Provider != "" {
			p, err := ParseProvider(sm.Provider)
			if err != nil {
				return ParsedMessage{}, ErrUnrecognisedMessage
			}
			msg.Provider = p
		}
		return msg, nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return ParsedMessage{}, ErrUnrecognisedMessage
		}
		return parseLegacy(s)
	default:
		return parseLegacy(string(trimmed))
	}
}

func parseLegacy(s string) (ParsedMessage, error) {
	t := MessageType(strings.TrimSpace(s))
	if !t.IsDefinitive() {
		return ParsedMessage{}, ErrUnrecognisedMessage
	}
	return ParsedMessage{Type: t, Legacy: true}, nil
}

// errorText accepts either a JSON string or an object with a message field.
func errorText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		return obj.Error
	}
	return string(raw)
}

// OriginOf returns the scheme://host[:port] origin of a URL, lowercased.
// Returns an empty string for URLs without scheme or host.
func OriginOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}
