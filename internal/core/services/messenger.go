package services

import (
	"errors"
	"sync/atomic"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driven"
	"github.com/custodia-labs/linkdeck/internal/logger"
)

// Messenger classifies messages posted by authorization tabs.
// Only messages from the backend origin, for the listening provider, in one
// of the recognised shapes are ever delivered.
type Messenger struct {
	bus    driven.MessageBus
	origin string
}

// NewMessenger creates a messenger that accepts messages from origin only.
func NewMessenger(bus driven.MessageBus, origin string) *Messenger {
	return &Messenger{
		bus:    bus,
		origin: domain.OriginOf(origin),
	}
}

// Origin returns the only origin messages are accepted from.
func (m *Messenger) Origin() string {
	return m.origin
}

// Classify decides whether msg belongs to a flow for provider.
// Returns ErrOriginMismatch, ErrUnrecognisedMessage or ErrProviderMismatch
// for messages that must be ignored.
func (m *Messenger) Classify(provider domain.Provider, msg domain.WindowMessage) (domain.ParsedMessage, error) {
	if m.origin == "" || domain.OriginOf(msg.Origin) != m.origin {
		return domain.ParsedMessage{}, domain.ErrOriginMismatch
	}
	parsed, err := domain.ParseMessage(msg.Data)
	if err != nil {
		return domain.ParsedMessage{}, err
	}
	if parsed.Provider != "" && parsed.Provider != provider {
		return domain.ParsedMessage{}, domain.ErrProviderMismatch
	}
	return parsed, nil
}

// Listen subscribes on behalf of one flow. deliver is called at most once,
// with the first definitive message. The returned function unsubscribes.
func (m *Messenger) Listen(provider domain.Provider, deliver func(domain.ParsedMessage)) (stop func()) {
	window := provider.WindowName()
	var delivered atomic.Bool

	predicate := func(msg domain.WindowMessage) bool {
		return msg.Window == "" || msg.Window == window
	}

	handler := func(msg domain.WindowMessage) {
		if delivered.Load() {
			return
		}
		parsed, err := m.Classify(provider, msg)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrUnrecognisedMessage):
				logger.Warn("ignoring unrecognised message for %s from %s: %q", provider, msg.Origin, truncate(msg.Data, 120))
			default:
				logger.Debug("ignoring message for %s from %q: %v", provider, msg.Origin, err)
			}
			return
		}
		if !delivered.CompareAndSwap(false, true) {
			return
		}
		deliver(parsed)
	}

	return m.bus.Subscribe(predicate, handler)
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
