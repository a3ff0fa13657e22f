package event

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

var _ Eventer = (*ChatMessageEvent)(nil)

// identityPrefixLen bounds how much of the comment takes part in the identity key.
const identityPrefixLen = 50

type FollowRole int

const (
	NotFollowing FollowRole = iota
	Follower
	Friend
)

// ChatMessage is the normalized payload of one chat comment.
type ChatMessage struct {
	UniqueID      string
	Nickname      string
	Comment       string
	FollowRole    FollowRole
	BadgeLevel    *int
	IsModerator   bool
	IsNewGifter   bool
	IsSubscriber  bool
	SupporterRank *int
}

// ChatMessageEvent wraps a ChatMessage. The payload is unexported and handed
// out by value so a constructed event cannot be mutated.
type ChatMessageEvent struct {
	id         string
	occurredAt time.Time
	msg        ChatMessage
}

func NewChatMessageEvent(msg ChatMessage, occurredAt time.Time) *ChatMessageEvent {
	msg.BadgeLevel = cloneInt(msg.BadgeLevel)
	msg.SupporterRank = cloneInt(msg.SupporterRank)
	return &ChatMessageEvent{
		id:         uuid.NewString(),
		occurredAt: occurredAt,
		msg:        msg,
	}
}

func (e *ChatMessageEvent) GetID() string            { return e.id }
func (e *ChatMessageEvent) GetKind() Kind            { return KindChatMessage }
func (e *ChatMessageEvent) GetPriority() Priority    { return PriorityHigh }
func (e *ChatMessageEvent) GetOccurredAt() time.Time { return e.occurredAt }
func (e *ChatMessageEvent) sealed()                  {}

// Payload returns a copy of the chat message.
func (e *ChatMessageEvent) Payload() ChatMessage {
	msg := e.msg
	msg.BadgeLevel = cloneInt(e.msg.BadgeLevel)
	msg.SupporterRank = cloneInt(e.msg.SupporterRank)
	return msg
}

// IdentityKey is sender + message prefix.
func (e *ChatMessageEvent) IdentityKey() string {
	comment := strings.TrimSpace(e.msg.Comment)
	if r := []rune(comment); len(r) > identityPrefixLen {
		comment = string(r[:identityPrefixLen])
	}
	return string(KindChatMessage) + ":" + e.msg.UniqueID + ":" + comment
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
