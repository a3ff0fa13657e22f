package model

// ConnectedPayload is the first frame an assistant session receives.
type ConnectedPayload struct {
	Ok            bool   `json:"ok"`
	SessionID     string `json:"session_id"`
	ServerVersion string `json:"server_version"`
	Speaking      bool   `json:"speaking"`
}
