package model

import (
	"errors"
	"fmt"
)

var ErrUnknownSignal = errors.New("unknown assistant signal")

// Signal is a busy/idle transition reported by the assistant.
type Signal string

const (
	SpeakingStarted Signal = "speaking_started"
	SpeakingEnded   Signal = "speaking_ended"
)

// ParseSignal accepts the wire names of both signals.
func ParseSignal(s string) (Signal, error) {
	switch Signal(s) {
	case SpeakingStarted, SpeakingEnded:
		return Signal(s), nil
	}
	return "", fmt.Errorf("parse signal %q: %w", s, ErrUnknownSignal)
}

// Speaking reports the flag value the signal sets.
func (s Signal) Speaking() bool { return s == SpeakingStarted }

// SignalFor is the inverse of Speaking.
func SignalFor(speaking bool) Signal {
	if speaking {
		return SpeakingStarted
	}
	return SpeakingEnded
}
