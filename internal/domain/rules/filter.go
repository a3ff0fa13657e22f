// Package rules turns filter parameters into predicates over domain events.
// Everything here is pure: no I/O and no shared state.
package rules

import (
	"errors"
	"fmt"
)

var ErrInvalidFilter = errors.New("invalid filter")

// FollowRoles marks which follow relationships are allowed through.
type FollowRoles struct {
	NoFollow bool `json:"no_follow" mapstructure:"no_follow"`
	Follower bool `json:"follower" mapstructure:"follower"`
	Friend   bool `json:"friend" mapstructure:"friend"`
}

// UserStatus marks which status flags are allowed through.
type UserStatus struct {
	Moderator  bool `json:"moderator" mapstructure:"moderator"`
	Subscriber bool `json:"subscriber" mapstructure:"subscriber"`
	NewGifter  bool `json:"new_gifter" mapstructure:"new_gifter"`
}

// All reports whether every status category is allowed.
func (s UserStatus) All() bool { return s.Moderator && s.Subscriber && s.NewGifter }

// SupporterRange bounds the supporter rank, inclusive on both ends.
type SupporterRange struct {
	Unrestricted bool `json:"unrestricted" mapstructure:"unrestricted"`
	Min          int  `json:"min" mapstructure:"min"`
	Max          int  `json:"max" mapstructure:"max"`
}

// ChatFilter is the filter-parameter set of chat events.
type ChatFilter struct {
	FollowRoles    FollowRoles    `json:"follow_roles" mapstructure:"follow_roles"`
	UserStatus     UserStatus     `json:"user_status" mapstructure:"user_status"`
	SupporterRange SupporterRange `json:"supporter_range" mapstructure:"supporter_range"`
}

// DefaultChatFilter lets every chat message through.
func DefaultChatFilter() ChatFilter {
	return ChatFilter{
		FollowRoles:    FollowRoles{NoFollow: true, Follower: true, Friend: true},
		UserStatus:     UserStatus{Moderator: true, Subscriber: true, NewGifter: true},
		SupporterRange: SupporterRange{Unrestricted: true, Min: 0, Max: 100},
	}
}

func (f ChatFilter) Validate() error {
	r := f.SupporterRange
	if r.Min < 0 || r.Max < 0 {
		return fmt.Errorf("%w: supporter range bounds must be non-negative", ErrInvalidFilter)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%w: supporter range min %d > max %d", ErrInvalidFilter, r.Min, r.Max)
	}
	return nil
}

// Filter is the kind-specific parameter set of one event type. Kinds without
// field-level filtering leave every member nil.
type Filter struct {
	Chat *ChatFilter `json:"chat,omitempty" mapstructure:"chat"`
}

// Clone returns a deep copy.
func (f Filter) Clone() Filter {
	if f.Chat != nil {
		c := *f.Chat
		f.Chat = &c
	}
	return f
}

func (f Filter) Validate() error {
	if f.Chat != nil {
		return f.Chat.Validate()
	}
	return nil
}
