package service

import (
	"errors"
	"fmt"

	"github.com/streamcue/relay-service/internal/domain/event"
)

var ErrUnsupportedEvent = errors.New("unsupported event")

// Format renders ev as the single line the assistant receives. Every event
// variant is handled here and nowhere else.
func Format(ev event.Eventer) (string, error) {
	switch e := ev.(type) {
	case *event.ChatMessageEvent:
		msg := e.Payload()
		return fmt.Sprintf("%s: %s", msg.Nickname, msg.Comment), nil
	case *event.MediaPlayedEvent:
		track := e.Payload()
		if track.ArtistName == "" {
			return fmt.Sprintf("Now playing \"%s\"", track.TrackName), nil
		}
		return fmt.Sprintf("Now playing \"%s\" by %s", track.TrackName, track.ArtistName), nil
	}
	return "", fmt.Errorf("%w: %T", ErrUnsupportedEvent, ev)
}
