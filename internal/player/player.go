// Package player is the agent side of command dispatch. It runs on a
// display device, answers direct gRPC calls from the hub and drains the
// device's durable command stream.
package player

import (
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/playerhub/internal/clock"
)

// Response status codes mirror HTTP semantics so the hub can report them
// verbatim as methodStatus.
const (
	StatusOK         = 200
	StatusBadRequest = 400
	StatusNotFound   = 404
)

// State is the observable playback state.
type State struct {
	Playing    bool      `json:"playing"`
	Fullscreen bool      `json:"fullscreen"`
	Track      string    `json:"track,omitempty"`
	Restarts   int       `json:"restarts"`
	Executed   int       `json:"executed"`
	UpdatedAt  time.Time `json:"updatedAt"`
	LastMethod string    `json:"lastMethod,omitempty"`
}

func (s State) asMap() map[string]any {
	m := map[string]any{
		"playing":    s.Playing,
		"fullscreen": s.Fullscreen,
		"restarts":   s.Restarts,
		"executed":   s.Executed,
		"updatedAt":  s.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if s.Track != "" {
		m["track"] = s.Track
	}
	if s.LastMethod != "" {
		m["lastMethod"] = s.LastMethod
	}
	return m
}

// Player applies commands to an in-process playback state. It is safe for
// concurrent use; gRPC calls and the stream consumer share one instance.
type Player struct {
	clk clock.Clock

	mu    sync.Mutex
	state State
}

func New(clk clock.Clock) *Player {
	return &Player{clk: clk, state: State{UpdatedAt: clk.Now()}}
}

// State returns a snapshot.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Execute runs one command and returns a status code plus a response
// payload. Unknown methods yield StatusNotFound, malformed payloads
// StatusBadRequest.
func (p *Player) Execute(method string, payload map[string]any) (int, map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch method {
	case "play":
		p.state.Playing = true
	case "pause":
		p.state.Playing = false
	case "fullscreen":
		on := !p.state.Fullscreen
		if v, ok := payload["enabled"]; ok {
			b, isBool := v.(bool)
			if !isBool {
				return StatusBadRequest, errorPayload("enabled must be a boolean")
			}
			on = b
		}
		p.state.Fullscreen = on
	case "change-track":
		track, _ := payload["track"].(string)
		if track == "" {
			return StatusBadRequest, errorPayload("track is required")
		}
		p.state.Track = track
		p.state.Playing = true
	case "status":
		return StatusOK, p.state.asMap()
	case "restart":
		restarts := p.state.Restarts + 1
		p.state = State{Restarts: restarts, Executed: p.state.Executed}
	default:
		return StatusNotFound, errorPayload(fmt.Sprintf("unknown method %q", method))
	}

	p.state.Executed++
	p.state.LastMethod = method
	p.state.UpdatedAt = p.clk.Now()
	return StatusOK, p.state.asMap()
}

func errorPayload(msg string) map[string]any {
	return map[string]any{"error": msg}
}
