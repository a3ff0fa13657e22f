package model

// DisconnectedPayload is sent before the server closes a session.
type DisconnectedPayload struct {
	Reason string `json:"reason"`
	Code   string `json:"code,omitempty"` // "SHUTDOWN", "EVICTED", "SLOW_CONSUMER"
}
