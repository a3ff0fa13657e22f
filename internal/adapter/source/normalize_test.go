package source_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/streamcue/relay-service/internal/adapter/source"
	"github.com/streamcue/relay-service/internal/domain/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatNormalizer(t *testing.T) {
	n := source.ChatNormalizer{}
	assert.True(t, n.Accepts("chat"))
	assert.False(t, n.Accepts("gift"))

	now := time.Now()
	ev, err := n.Normalize(json.RawMessage(`{
		"comment": "hello there",
		"uniqueId": "u1",
		"nickname": "Nick",
		"followRole": 1,
		"userBadges": [{"level": 7}],
		"isSubscriber": true,
		"topGifterRank": 5
	}`), now)
	require.NoError(t, err)

	chat, ok := ev.(*event.ChatMessageEvent)
	require.True(t, ok)
	msg := chat.Payload()
	assert.Equal(t, "Nick", msg.Nickname)
	assert.Equal(t, event.Follower, msg.FollowRole)
	require.NotNil(t, msg.BadgeLevel)
	assert.Equal(t, 7, *msg.BadgeLevel)
	require.NotNil(t, msg.SupporterRank)
	assert.Equal(t, 5, *msg.SupporterRank)
	assert.True(t, msg.IsSubscriber)
	assert.Equal(t, now, ev.GetOccurredAt())
}

func TestChatNormalizer_Defaults(t *testing.T) {
	ev, err := source.ChatNormalizer{}.Normalize(json.RawMessage(`{"comment":"hi","uniqueId":"u2"}`), time.Now())
	require.NoError(t, err)
	msg := ev.(*event.ChatMessageEvent).Payload()
	assert.Equal(t, event.NotFollowing, msg.FollowRole)
	assert.Equal(t, "u2", msg.Nickname)
	assert.Nil(t, msg.BadgeLevel)
	assert.Nil(t, msg.SupporterRank)
}

func TestChatNormalizer_Malformed(t *testing.T) {
	for name, body := range map[string]string{
		"not json":      `{`,
		"empty comment": `{"comment":"  ","uniqueId":"u"}`,
		"no unique id":  `{"comment":"hi"}`,
		"bad role":      `{"comment":"hi","uniqueId":"u","followRole":9}`,
		"wrong type":    `{"comment":42,"uniqueId":"u"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := source.ChatNormalizer{}.Normalize(json.RawMessage(body), time.Now())
			require.ErrorIs(t, err, source.ErrMalformedPayload)
		})
	}
}

func TestMediaNormalizer(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		artist string
	}{
		{"string list", `{"name":"Song","artists":["A","B"],"image_url":"http://img"}`, "A, B"},
		{"plain string", `{"name":"Song","artists":"Solo"}`, "Solo"},
		{"objects", `{"name":"Song","artists":[{"name":"X"},{"name":"Y"}]}`, "X, Y"},
		{"artist field", `{"name":"Song","artist":"Fallback"}`, "Fallback"},
	}
	n := source.MediaNormalizer{}
	assert.True(t, n.Accepts("player_state_update"))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := n.Normalize(json.RawMessage(tt.body), time.Now())
			require.NoError(t, err)
			track := ev.(*event.MediaPlayedEvent).Payload()
			assert.Equal(t, "Song", track.TrackName)
			assert.Equal(t, tt.artist, track.ArtistName)
		})
	}

	_, err := n.Normalize(json.RawMessage(`{"artists":["A"]}`), time.Now())
	require.ErrorIs(t, err, source.ErrMalformedPayload)
	_, err = n.Normalize(json.RawMessage(`{"name":"S","artists":{"a":1}}`), time.Now())
	require.ErrorIs(t, err, source.ErrMalformedPayload)
}

func TestNormalizerFor(t *testing.T) {
	_, err := source.NormalizerFor("chat")
	require.NoError(t, err)
	_, err = source.NormalizerFor("media")
	require.NoError(t, err)
	_, err = source.NormalizerFor("video")
	require.Error(t, err)
}
