package session

import (
	"time"

	"github.com/andersCTO/monstrens-natt/internal/model"
)

// Defaults for session behavior
const (
	DefaultMinPlayersToStart = 2
	DefaultMingelDuration    = 45 * time.Second
	DefaultResultsTTL        = 30 * time.Second
	DefaultSessionName       = "Monstrens Natt"
	DefaultMaxCodeAttempts   = 100

	// UnknownHostName is shown in summaries when a session has no host
	UnknownHostName = "Okänd"
)

// Config holds tunable session rules
type Config struct {
	// MinPlayersToStart is the minimum non-host player count to leave the lobby
	MinPlayersToStart int

	// MingelDuration is how long the mingle phase runs client-side
	MingelDuration time.Duration

	// JoinCutoff is the last phase in which new players may still join
	JoinCutoff model.Phase

	// HostFailover promotes the oldest connected player when the host
	// disconnects. Off by default: the host role is reserved for a reconnect.
	HostFailover bool

	// ResultsTTL is how long a finished session lingers before deletion
	ResultsTTL time.Duration
}

// DefaultConfig returns the standard session rules
func DefaultConfig() Config {
	return Config{
		MinPlayersToStart: DefaultMinPlayersToStart,
		MingelDuration:    DefaultMingelDuration,
		JoinCutoff:        model.PhaseMingel,
		HostFailover:      false,
		ResultsTTL:        DefaultResultsTTL,
	}
}
