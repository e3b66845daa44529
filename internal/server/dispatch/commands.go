// Package dispatch delivers runtime commands to players. A direct gRPC call
// races a timeout; on any failure the command is queued on a durable
// per-device stream instead.
package dispatch

import (
	"fmt"

	"github.com/dmitrijs2005/playerhub/internal/common"
)

// Delivery modes reported to callers.
const (
	ModeDirect = "direct"
	ModeQueued = "c2d"
)

var commands = map[string]struct{}{
	"play":         {},
	"pause":        {},
	"fullscreen":   {},
	"change-track": {},
	"status":       {},
	"restart":      {},
}

// ValidateCommand rejects names outside the fixed command set.
func ValidateCommand(name string) error {
	if _, ok := commands[name]; !ok {
		return fmt.Errorf("%q: %w", name, common.ErrUnknownCommand)
	}
	return nil
}
