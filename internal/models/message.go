package models

import (
	"encoding/json"
	"time"
)

// WebSocket message types exchanged over the stats channel.
const (
	MsgStatsUpdate  = "stats_update"
	MsgRequestStats = "request_stats"
	MsgVisibility   = "visibility"
	MsgPing         = "ping"
	MsgPong         = "pong"
	MsgError        = "error"
)

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Type        string          `json:"type"`
	Timestamp   time.Time       `json:"timestamp,omitempty"`
	Incremental bool            `json:"incremental,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Error       string          `json:"error,omitempty"`
	// Full asks the server for a complete snapshot on a request_stats
	// message; Visible reports viewer visibility on a visibility message.
	Full    bool `json:"full,omitempty"`
	Visible bool `json:"visible,omitempty"`
}
