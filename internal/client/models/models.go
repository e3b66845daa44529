// Package models holds the API payloads the command-line client exchanges
// with the PlayerHub server.
package models

import "time"

type Session struct {
	Token   string `json:"token"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

type LookupResult struct {
	Exists  bool `json:"exists"`
	IsAdmin bool `json:"isAdmin"`
}

type Device struct {
	ID               string `json:"id"`
	FriendlyName     string `json:"friendlyName"`
	Role             string `json:"role,omitempty"`
	MasterEmail      string `json:"masterEmail,omitempty"`
	DispatchEndpoint string `json:"dispatchEndpoint,omitempty"`
}

type Member struct {
	Email   string `json:"email"`
	Role    string `json:"role"`
	AddedBy string `json:"addedBy,omitempty"`
}

type Content struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	ContentType string    `json:"contentType"`
	PostedBy    string    `json:"postedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UploadURL   string    `json:"uploadUrl,omitempty"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
}

// CommandResult reports how a command reached the device. Mode is "direct"
// when the player answered, "c2d" when the command was queued.
type CommandResult struct {
	OK           bool           `json:"ok"`
	DeviceID     string         `json:"deviceId"`
	Command      string         `json:"command"`
	Payload      map[string]any `json:"payload,omitempty"`
	MessageID    string         `json:"messageId"`
	MethodStatus *int           `json:"methodStatus,omitempty"`
	Mode         string         `json:"mode"`
}
