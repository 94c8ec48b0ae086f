// Package store looks up registered game servers. Documents are keyed by
// "{name}|{guildId}" and partitioned by guild so one guild cannot address
// another guild's VMs.
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("game server not found")

// GameServer is the registration record for one controllable VM. This core
// only ever reads it.
type GameServer struct {
	ID         string `json:"id"`
	ResourceID string `json:"ResourceId"`
	Game       string `json:"Game"`
	Name       string `json:"Name"`
	CurrentSku string `json:"CurrentSku"`
}

// Key builds the composite document ID for a server name within a guild.
func Key(name, guildID string) string {
	return name + "|" + guildID
}

type ServerStore interface {
	// Get returns the server registered under name in guildID, or
	// ErrNotFound.
	Get(ctx context.Context, name, guildID string) (*GameServer, error)
	// List returns every server registered in guildID.
	List(ctx context.Context, guildID string) ([]GameServer, error)
}
