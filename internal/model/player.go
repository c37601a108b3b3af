package model

import "time"

// ConnectionID identifies a live transport connection. It is NOT a stable
// player identity: reconnecting players get a fresh ConnectionID and are
// recognised by display name instead.
type ConnectionID string

// Player represents a participant in a session, keyed by their current
// connection. The row survives transport drops (Disconnected is set instead
// of deleting) so that a refresh can pick up where it left off.
type Player struct {
	ID           ConnectionID `json:"id"`
	Name         string       `json:"name"`
	IsHost       bool         `json:"isHost"`
	Faction      string       `json:"faction,omitempty"`
	Disconnected bool         `json:"disconnected"`
	HasSubmitted bool         `json:"hasSubmitted,omitempty"`
	JoinedAt     time.Time    `json:"joinedAt"`
}

// PlayerFaction is the host's view of a single player's assigned role.
type PlayerFaction struct {
	ID      ConnectionID `json:"id"`
	Name    string       `json:"name"`
	Faction string       `json:"faction"`
}
