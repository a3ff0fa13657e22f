package event

import "time"

// Kind is the discriminant of a domain event. It doubles as the bus topic and
// the configuration key for the event type.
type Kind string

const (
	KindChatMessage Kind = "chat_message" // [INTERACTIVE]
	KindMediaPlayed Kind = "media_played" // [AMBIENT]
)

// Kinds lists every event kind the relay understands, in registration order.
func Kinds() []Kind { return []Kind{KindChatMessage, KindMediaPlayed} }

func (k Kind) String() string { return string(k) }

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindChatMessage, KindMediaPlayed:
		return true
	}
	return false
}

type Priority int32

const (
	PriorityLow    Priority = 10
	PriorityNormal Priority = 20
	PriorityHigh   Priority = 30
)

// Eventer is the closed set of events flowing through the pipeline.
// Only types in this package can implement it.
type Eventer interface {
	GetID() string
	GetKind() Kind
	GetPriority() Priority
	GetOccurredAt() time.Time
	// IdentityKey returns the composite of the fields that make two
	// occurrences "the same event" for de-duplication.
	IdentityKey() string

	sealed()
}
