package model

import (
	"sort"
	"time"
)

// SessionCode is the human-typeable 6-digit code players use to join
type SessionCode string

// Phase represents the current phase of a session's state machine
type Phase string

const (
	PhaseLobby    Phase = "lobby"    // Waiting for players
	PhaseMingel   Phase = "mingel"   // Players mingling in character
	PhaseGuessing Phase = "guessing" // Players submitting faction guesses
	PhaseResults  Phase = "results"  // Scores revealed, session scheduled for deletion
)

var phaseOrder = map[Phase]int{
	PhaseLobby:    0,
	PhaseMingel:   1,
	PhaseGuessing: 2,
	PhaseResults:  3,
}

// Valid reports whether p is one of the known phases
func (p Phase) Valid() bool {
	_, ok := phaseOrder[p]
	return ok
}

// AllowsJoin reports whether a new player may join while the session is in
// phase p, given the configured cutoff phase. The lobby is always joinable;
// results never is.
func (p Phase) AllowsJoin(cutoff Phase) bool {
	if p == PhaseResults {
		return false
	}
	return phaseOrder[p] <= phaseOrder[cutoff]
}

// Guess is one row of a submission: a faction and the 0-2 players the
// submitter believes belong to it.
type Guess struct {
	Faction string         `json:"faction"`
	Players []ConnectionID `json:"players"`
}

// Submission holds one player's complete set of guesses. A session keeps at
// most one submission per player; resubmitting replaces the previous entry.
type Submission struct {
	PlayerID ConnectionID `json:"playerId"`
	Guesses  []Guess      `json:"guesses"`
}

// ScoreDetails breaks down how a score was reached
type ScoreDetails struct {
	CorrectRows     int `json:"correctRows"`
	WrongOwnFaction int `json:"wrongOwnFaction"`
}

// Score is one player's final result
type Score struct {
	PlayerID   ConnectionID `json:"playerId"`
	PlayerName string       `json:"playerName"`
	Score      int          `json:"score"`
	Details    ScoreDetails `json:"details"`
}

// Session is the aggregate root for one game room
type Session struct {
	Code            SessionCode              `json:"code"`
	Name            string                   `json:"name"`
	HostID          ConnectionID             `json:"hostId"`
	Players         map[ConnectionID]*Player `json:"players"`
	Phase           Phase                    `json:"phase"`
	MingelDuration  int                      `json:"mingelDuration"` // seconds
	MingelStartedAt time.Time                `json:"mingelStartedAt"`
	Submissions     []Submission             `json:"submissions"`
	Scores          []Score                  `json:"scores,omitempty"`
	CreatedAt       time.Time                `json:"createdAt"`
	UpdatedAt       time.Time                `json:"updatedAt"`
}

// Host returns the current host player, or nil if none
func (s *Session) Host() *Player {
	return s.Players[s.HostID]
}

// FindByName returns the player with the given display name, or nil.
// Display name is the stable identity used to recognise reconnects.
func (s *Session) FindByName(name string) *Player {
	for _, p := range s.Players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// PlayersInOrder returns all players sorted by join time (ties by name),
// giving broadcasts and host transfer a stable ordering.
func (s *Session) PlayersInOrder() []*Player {
	players := make([]*Player, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		if !players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].JoinedAt.Before(players[j].JoinedAt)
		}
		return players[i].Name < players[j].Name
	})
	return players
}

// NonHostPlayers returns the players who actually play (everyone but the
// host), in join order.
func (s *Session) NonHostPlayers() []*Player {
	var players []*Player
	for _, p := range s.PlayersInOrder() {
		if !p.IsHost {
			players = append(players, p)
		}
	}
	return players
}

// Roster returns a snapshot of all players for room broadcasts
func (s *Session) Roster() []Player {
	ordered := s.PlayersInOrder()
	roster := make([]Player, len(ordered))
	for i, p := range ordered {
		roster[i] = *p
	}
	return roster
}

// FactionRoster returns the host's roster-to-faction view of all non-host
// players.
func (s *Session) FactionRoster() []PlayerFaction {
	nonHost := s.NonHostPlayers()
	roster := make([]PlayerFaction, len(nonHost))
	for i, p := range nonHost {
		roster[i] = PlayerFaction{ID: p.ID, Name: p.Name, Faction: p.Faction}
	}
	return roster
}

// SessionSummary is the discovery/browse view of a session
type SessionSummary struct {
	Code        SessionCode `json:"code"`
	Name        string      `json:"name"`
	PlayerCount int         `json:"playerCount"`
	Phase       Phase       `json:"phase"`
	HostName    string      `json:"hostName"`
}
