package rules_test

import (
	"testing"
	"time"

	"github.com/streamcue/relay-service/internal/domain/event"
	"github.com/streamcue/relay-service/internal/domain/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func chat(msg event.ChatMessage) *event.ChatMessageEvent {
	return event.NewChatMessageEvent(msg, time.Now())
}

func TestEvaluateChat(t *testing.T) {
	restrictive := rules.ChatFilter{
		FollowRoles:    rules.FollowRoles{NoFollow: true, Follower: true},
		UserStatus:     rules.UserStatus{Subscriber: true},
		SupporterRange: rules.SupporterRange{Min: 1, Max: 10},
	}

	tests := []struct {
		name   string
		msg    event.ChatMessage
		filter rules.ChatFilter
		want   bool
	}{
		{
			name:   "default filter passes everything",
			msg:    event.ChatMessage{FollowRole: event.Friend},
			filter: rules.DefaultChatFilter(),
			want:   true,
		},
		{
			name:   "all checks pass",
			msg:    event.ChatMessage{FollowRole: event.Follower, IsSubscriber: true, SupporterRank: intPtr(5)},
			filter: restrictive,
			want:   true,
		},
		{
			name:   "follow role not allowed",
			msg:    event.ChatMessage{FollowRole: event.Friend, IsSubscriber: true, SupporterRank: intPtr(5)},
			filter: restrictive,
			want:   false,
		},
		{
			name:   "zero value role counts as not following",
			msg:    event.ChatMessage{IsSubscriber: true, SupporterRank: intPtr(5)},
			filter: restrictive,
			want:   true,
		},
		{
			name:   "no allowed status flag",
			msg:    event.ChatMessage{FollowRole: event.Follower, IsModerator: true, SupporterRank: intPtr(5)},
			filter: restrictive,
			want:   false,
		},
		{
			name:   "rank on lower bound",
			msg:    event.ChatMessage{IsSubscriber: true, SupporterRank: intPtr(1)},
			filter: restrictive,
			want:   true,
		},
		{
			name:   "rank on upper bound",
			msg:    event.ChatMessage{IsSubscriber: true, SupporterRank: intPtr(10)},
			filter: restrictive,
			want:   true,
		},
		{
			name:   "rank out of range",
			msg:    event.ChatMessage{IsSubscriber: true, SupporterRank: intPtr(11)},
			filter: restrictive,
			want:   false,
		},
		{
			name:   "missing rank fails a restricted range",
			msg:    event.ChatMessage{IsSubscriber: true},
			filter: restrictive,
			want:   false,
		},
		{
			name: "missing rank passes an unrestricted range",
			msg:  event.ChatMessage{IsSubscriber: true},
			filter: rules.ChatFilter{
				FollowRoles:    rules.FollowRoles{NoFollow: true},
				UserStatus:     rules.UserStatus{Subscriber: true},
				SupporterRange: rules.SupporterRange{Unrestricted: true},
			},
			want: true,
		},
		{
			name: "nothing allowed",
			msg:  event.ChatMessage{IsSubscriber: true, IsModerator: true, IsNewGifter: true},
			filter: rules.ChatFilter{
				SupporterRange: rules.SupporterRange{Unrestricted: true},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.EvaluateChat(tt.msg, tt.filter))
			f := tt.filter
			assert.Equal(t, tt.want, rules.Evaluate(chat(tt.msg), rules.Filter{Chat: &f}))
		})
	}
}

// The property from the pipeline contract, checked exhaustively over a small domain.
func TestEvaluateChat_MatchesDefinition(t *testing.T) {
	roles := []event.FollowRole{event.NotFollowing, event.Follower, event.Friend}
	ranks := []*int{nil, intPtr(0), intPtr(3), intPtr(7)}
	bools := []bool{false, true}

	for mask := 0; mask < 1<<7; mask++ {
		bit := func(i int) bool { return mask&(1<<i) != 0 }
		f := rules.ChatFilter{
			FollowRoles:    rules.FollowRoles{NoFollow: bit(0), Follower: bit(1), Friend: bit(2)},
			UserStatus:     rules.UserStatus{Moderator: bit(3), Subscriber: bit(4), NewGifter: bit(5)},
			SupporterRange: rules.SupporterRange{Unrestricted: bit(6), Min: 2, Max: 5},
		}
		for _, role := range roles {
			for _, rank := range ranks {
				for _, mod := range bools {
					for _, sub := range bools {
						msg := event.ChatMessage{FollowRole: role, SupporterRank: rank, IsModerator: mod, IsSubscriber: sub}

						roleOK := map[event.FollowRole]bool{
							event.NotFollowing: f.FollowRoles.NoFollow,
							event.Follower:     f.FollowRoles.Follower,
							event.Friend:       f.FollowRoles.Friend,
						}[role]
						statusOK := f.UserStatus.All() ||
							(f.UserStatus.Moderator && mod) || (f.UserStatus.Subscriber && sub)
						rankOK := f.SupporterRange.Unrestricted || (rank != nil && *rank >= 2 && *rank <= 5)

						require.Equal(t, roleOK && statusOK && rankOK, rules.EvaluateChat(msg, f),
							"filter=%+v msg=%+v", f, msg)
					}
				}
			}
		}
	}
}

func TestEvaluate_NilChatFilterPasses(t *testing.T) {
	assert.True(t, rules.Evaluate(chat(event.ChatMessage{}), rules.Filter{}))
}

func TestEvaluate_MediaAlwaysPasses(t *testing.T) {
	ev := event.NewMediaPlayedEvent(event.MediaTrack{TrackName: "Song"}, time.Now())
	f := rules.DefaultChatFilter()
	f.FollowRoles = rules.FollowRoles{}
	assert.True(t, rules.Evaluate(ev, rules.Filter{Chat: &f}))
}

func TestChatFilter_Validate(t *testing.T) {
	f := rules.DefaultChatFilter()
	require.NoError(t, f.Validate())

	f.SupporterRange = rules.SupporterRange{Min: 5, Max: 1}
	assert.ErrorIs(t, f.Validate(), rules.ErrInvalidFilter)

	f.SupporterRange = rules.SupporterRange{Min: -1, Max: 1}
	assert.ErrorIs(t, f.Validate(), rules.ErrInvalidFilter)
}

func TestFilter_CloneIsDeep(t *testing.T) {
	c := rules.DefaultChatFilter()
	orig := rules.Filter{Chat: &c}
	cp := orig.Clone()
	cp.Chat.FollowRoles.Friend = false

	assert.True(t, orig.Chat.FollowRoles.Friend)
}
