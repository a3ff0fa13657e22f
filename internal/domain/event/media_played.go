package event

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

var _ Eventer = (*MediaPlayedEvent)(nil)

// MediaTrack is the normalized "now playing" payload.
type MediaTrack struct {
	TrackName  string
	ArtistName string
	ArtworkURL string
}

type MediaPlayedEvent struct {
	id         string
	occurredAt time.Time
	track      MediaTrack
}

func NewMediaPlayedEvent(track MediaTrack, occurredAt time.Time) *MediaPlayedEvent {
	return &MediaPlayedEvent{
		id:         uuid.NewString(),
		occurredAt: occurredAt,
		track:      track,
	}
}

func (e *MediaPlayedEvent) GetID() string            { return e.id }
func (e *MediaPlayedEvent) GetKind() Kind            { return KindMediaPlayed }
func (e *MediaPlayedEvent) GetPriority() Priority    { return PriorityNormal }
func (e *MediaPlayedEvent) GetOccurredAt() time.Time { return e.occurredAt }
func (e *MediaPlayedEvent) Payload() MediaTrack      { return e.track }
func (e *MediaPlayedEvent) sealed()                  {}

// IdentityKey is track + artist, case-insensitive.
func (e *MediaPlayedEvent) IdentityKey() string {
	return string(KindMediaPlayed) + ":" +
		strings.ToLower(strings.TrimSpace(e.track.TrackName)) + "|" +
		strings.ToLower(strings.TrimSpace(e.track.ArtistName))
}
