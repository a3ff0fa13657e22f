package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/streamcue/relay-service/internal/domain/event"
)

var ErrMalformedPayload = errors.New("malformed payload")

const (
	KindChat  = "chat"
	KindMedia = "media"

	FrameChat        = "chat"
	FramePlayerState = "player_state_update"

	// assistant busy/idle, relayed by the media source
	FrameSpeakingStarted = "assistantSpeakingStarted"
	FrameSpeakingEnded   = "assistantSpeakingEnded"
)

// Envelope is one frame read from a source.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Normalizer turns the frames of one source kind into domain events.
type Normalizer interface {
	// Accepts reports whether frames named name carry events. Others are ignored.
	Accepts(name string) bool
	Normalize(data json.RawMessage, now time.Time) (event.Eventer, error)
}

// NormalizerFor picks the normalizer of a configured source kind.
func NormalizerFor(kind string) (Normalizer, error) {
	switch kind {
	case KindChat:
		return ChatNormalizer{}, nil
	case KindMedia:
		return MediaNormalizer{}, nil
	}
	return nil, fmt.Errorf("unknown source kind %q", kind)
}

type ChatNormalizer struct{}

type rawBadge struct {
	Level *int `json:"level"`
}

type rawChat struct {
	Comment       string     `json:"comment"`
	UniqueID      string     `json:"uniqueId"`
	Nickname      string     `json:"nickname"`
	FollowRole    *int       `json:"followRole"`
	UserBadges    []rawBadge `json:"userBadges"`
	IsModerator   bool       `json:"isModerator"`
	IsNewGifter   bool       `json:"isNewGifter"`
	IsSubscriber  bool       `json:"isSubscriber"`
	TopGifterRank *int       `json:"topGifterRank"`
}

func (ChatNormalizer) Accepts(name string) bool { return name == FrameChat }

func (ChatNormalizer) Normalize(data json.RawMessage, now time.Time) (event.Eventer, error) {
	var raw rawChat
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(raw.Comment) == "" {
		return nil, fmt.Errorf("%w: empty comment", ErrMalformedPayload)
	}
	if raw.UniqueID == "" {
		return nil, fmt.Errorf("%w: missing uniqueId", ErrMalformedPayload)
	}

	role := event.NotFollowing
	if raw.FollowRole != nil {
		switch r := event.FollowRole(*raw.FollowRole); r {
		case event.NotFollowing, event.Follower, event.Friend:
			role = r
		default:
			return nil, fmt.Errorf("%w: follow role %d", ErrMalformedPayload, *raw.FollowRole)
		}
	}

	nickname := raw.Nickname
	if nickname == "" {
		nickname = raw.UniqueID
	}

	msg := event.ChatMessage{
		UniqueID:      raw.UniqueID,
		Nickname:      nickname,
		Comment:       raw.Comment,
		FollowRole:    role,
		IsModerator:   raw.IsModerator,
		IsNewGifter:   raw.IsNewGifter,
		IsSubscriber:  raw.IsSubscriber,
		SupporterRank: raw.TopGifterRank,
	}
	if len(raw.UserBadges) > 0 {
		msg.BadgeLevel = raw.UserBadges[0].Level
	}
	return event.NewChatMessageEvent(msg, now), nil
}

type MediaNormalizer struct{}

type rawTrack struct {
	Name     string          `json:"name"`
	Artists  json.RawMessage `json:"artists"`
	Artist   string          `json:"artist"`
	ImageURL string          `json:"image_url"`
}

func (MediaNormalizer) Accepts(name string) bool { return name == FramePlayerState }

func (MediaNormalizer) Normalize(data json.RawMessage, now time.Time) (event.Eventer, error) {
	var raw rawTrack
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(raw.Name) == "" {
		return nil, fmt.Errorf("%w: missing track name", ErrMalformedPayload)
	}

	artist, err := parseArtists(raw.Artists)
	if err != nil {
		return nil, err
	}
	if artist == "" {
		artist = raw.Artist
	}

	return event.NewMediaPlayedEvent(event.MediaTrack{
		TrackName:  raw.Name,
		ArtistName: artist,
		ArtworkURL: raw.ImageURL,
	}, now), nil
}

// parseArtists accepts a plain string, a list of strings or a list of
// {"name": ...} objects.
func parseArtists(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single, nil
	}

	var names []string
	if err := json.Unmarshal(raw, &names); err == nil {
		return strings.Join(names, ", "), nil
	}

	var objs []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &objs); err != nil {
		return "", fmt.Errorf("%w: artists: %w", ErrMalformedPayload, err)
	}
	names = make([]string, 0, len(objs))
	for _, o := range objs {
		names = append(names, o.Name)
	}
	return strings.Join(names, ", "), nil
}
