package model

import "errors"

// Common errors used across the application
var (
	// Session errors
	ErrSessionNotFound  = errors.New("session not found")
	ErrNotHost          = errors.New("player is not the host")
	ErrInvalidPhase     = errors.New("action not allowed in current phase")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrJoinClosed       = errors.New("session can no longer be joined")
	ErrNameTaken        = errors.New("display name is already in use by a connected player")

	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Faction errors
	ErrFactionNotFound = errors.New("faction not found")
)
