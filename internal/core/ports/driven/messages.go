package driven

import "github.com/custodia-labs/linkdeck/internal/core/domain"

// MessagePredicate selects messages for a subscription.
type MessagePredicate func(msg domain.WindowMessage) bool

// MessageHandler receives messages that passed the predicate.
type MessageHandler func(msg domain.WindowMessage)

// MessageBus delivers messages posted by spawned tabs.
// Each subscription is independent so concurrent flows never share listener state.
type MessageBus interface {
	// Subscribe registers handler for messages matching predicate.
	// A nil predicate matches everything. The returned function removes the
	// subscription and is safe to call more than once.
	Subscribe(predicate MessagePredicate, handler MessageHandler) (unsubscribe func())
}
