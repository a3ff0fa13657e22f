package store

import (
	"github.com/streamcue/relay-service/internal/domain/event"
	"github.com/streamcue/relay-service/internal/domain/rules"
)

// EventTypeConfig is the record kept per event kind.
type EventTypeConfig struct {
	EventType event.Kind   `json:"event_type"`
	Enabled   bool         `json:"enabled"`
	Filter    rules.Filter `json:"filter_parameters"`
}

func (c EventTypeConfig) clone() EventTypeConfig {
	c.Filter = c.Filter.Clone()
	return c
}

// ConfigUpdate is a partial update. Nil members are left untouched; nested
// filter members are merged field by field.
type ConfigUpdate struct {
	Enabled *bool         `json:"enabled,omitempty"`
	Filter  *FilterUpdate `json:"filter_parameters,omitempty"`

	// clearChat drops the chat filter; only ReplaceWith sets it.
	clearChat bool
}

type FilterUpdate struct {
	Chat *ChatFilterUpdate `json:"chat,omitempty"`
}

type ChatFilterUpdate struct {
	FollowRoles    *FollowRolesUpdate    `json:"follow_roles,omitempty"`
	UserStatus     *UserStatusUpdate     `json:"user_status,omitempty"`
	SupporterRange *SupporterRangeUpdate `json:"supporter_range,omitempty"`
}

type FollowRolesUpdate struct {
	NoFollow *bool `json:"no_follow,omitempty"`
	Follower *bool `json:"follower,omitempty"`
	Friend   *bool `json:"friend,omitempty"`
}

type UserStatusUpdate struct {
	Moderator  *bool `json:"moderator,omitempty"`
	Subscriber *bool `json:"subscriber,omitempty"`
	NewGifter  *bool `json:"new_gifter,omitempty"`
}

type SupporterRangeUpdate struct {
	Unrestricted *bool `json:"unrestricted,omitempty"`
	Min          *int  `json:"min,omitempty"`
	Max          *int  `json:"max,omitempty"`
}

// ReplaceWith builds an update that overwrites every field of a record with
// cfg. A nil chat filter in cfg clears the record's chat filter.
func ReplaceWith(cfg EventTypeConfig) ConfigUpdate {
	u := ConfigUpdate{Enabled: &cfg.Enabled}
	c := cfg.Filter.Chat
	if c == nil {
		u.clearChat = true
		return u
	}
	u.Filter = &FilterUpdate{Chat: &ChatFilterUpdate{
		FollowRoles: &FollowRolesUpdate{
			NoFollow: &c.FollowRoles.NoFollow,
			Follower: &c.FollowRoles.Follower,
			Friend:   &c.FollowRoles.Friend,
		},
		UserStatus: &UserStatusUpdate{
			Moderator:  &c.UserStatus.Moderator,
			Subscriber: &c.UserStatus.Subscriber,
			NewGifter:  &c.UserStatus.NewGifter,
		},
		SupporterRange: &SupporterRangeUpdate{
			Unrestricted: &c.SupporterRange.Unrestricted,
			Min:          &c.SupporterRange.Min,
			Max:          &c.SupporterRange.Max,
		},
	}}
	return u
}

// apply merges u into cfg and returns the result; cfg itself is not modified.
func (u ConfigUpdate) apply(cfg EventTypeConfig) EventTypeConfig {
	out := cfg.clone()
	if u.Enabled != nil {
		out.Enabled = *u.Enabled
	}
	if u.clearChat {
		out.Filter.Chat = nil
		return out
	}
	if u.Filter == nil || u.Filter.Chat == nil {
		return out
	}

	chat := rules.DefaultChatFilter()
	if out.Filter.Chat != nil {
		chat = *out.Filter.Chat
	}
	cu := u.Filter.Chat
	if r := cu.FollowRoles; r != nil {
		setBool(&chat.FollowRoles.NoFollow, r.NoFollow)
		setBool(&chat.FollowRoles.Follower, r.Follower)
		setBool(&chat.FollowRoles.Friend, r.Friend)
	}
	if s := cu.UserStatus; s != nil {
		setBool(&chat.UserStatus.Moderator, s.Moderator)
		setBool(&chat.UserStatus.Subscriber, s.Subscriber)
		setBool(&chat.UserStatus.NewGifter, s.NewGifter)
	}
	if r := cu.SupporterRange; r != nil {
		setBool(&chat.SupporterRange.Unrestricted, r.Unrestricted)
		setInt(&chat.SupporterRange.Min, r.Min)
		setInt(&chat.SupporterRange.Max, r.Max)
	}
	out.Filter.Chat = &chat
	return out
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
