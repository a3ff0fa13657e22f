package model

import "time"

type HubStats struct {
	TotalSessions int            `json:"total_sessions"`
	Broadcasts    uint64         `json:"broadcasts"`
	Rejected      uint64         `json:"rejected"`
	Uptime        time.Duration  `json:"uptime"`
	Sessions      []SessionStats `json:"sessions,omitempty"`
}

type SessionStats struct {
	ID        string    `json:"id"`
	RemoteIP  string    `json:"remote_ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Dropped   uint64    `json:"dropped"`
}
