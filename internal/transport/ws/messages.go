package ws

import (
	"encoding/json"
	"errors"

	"github.com/andersCTO/monstrens-natt/internal/faction"
	"github.com/andersCTO/monstrens-natt/internal/model"
)

// Event names the kind of a websocket message
type Event string

// Client → Server events
const (
	EventCreateGame        Event = "create-game"
	EventJoinGame          Event = "join-game"
	EventJoinVisualization Event = "join-visualization"
	EventLeaveGame         Event = "leave-game"
	EventDeleteGame        Event = "delete-game"
	EventStartGame         Event = "start-game"
	EventEndMingel         Event = "end-mingel"
	EventSubmitGuesses     Event = "submit-guesses"
	EventEndGuessing       Event = "end-guessing"
	EventGetActiveGames    Event = "get-active-games"
	EventValidateGame      Event = "validate-game"
	EventPing              Event = "ping"
)

// Server → Client events
const (
	EventGameCreated         Event = "game-created"
	EventGameJoined          Event = "game-joined"
	EventVisualizationJoined Event = "visualization-joined"
	EventGameValidated       Event = "game-validated"
	EventLobbyUpdate         Event = "lobby-update"
	EventRoleAssigned        Event = "role-assigned"
	EventHostViewData        Event = "host-view-data"
	EventPhaseChanged        Event = "phase-changed"
	EventSubmissionUpdate    Event = "submission-update"
	EventGameResults         Event = "game-results"
	EventGamesUpdated        Event = "games-updated"
	EventGameDeleted         Event = "game-deleted"
	EventError               Event = "error"
	EventPong                Event = "pong"
)

// Envelope is the wire frame for every message in both directions
type Envelope struct {
	Event   Event           `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// OutEnvelope is the server-side frame with an arbitrary payload
type OutEnvelope struct {
	Event   Event `json:"event"`
	Payload any   `json:"payload,omitempty"`
}

// Error codes
const (
	ErrCodeInvalidMessage   = "INVALID_MESSAGE"
	ErrCodeGameNotFound     = "GAME_NOT_FOUND"
	ErrCodeNotHost          = "NOT_HOST"
	ErrCodeNameTaken        = "NAME_TAKEN"
	ErrCodeJoinClosed       = "JOIN_CLOSED"
	ErrCodeInvalidPhase     = "INVALID_PHASE"
	ErrCodeNotEnoughPlayers = "NOT_ENOUGH_PLAYERS"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// Client payloads

// CreateGamePayload starts a new session
type CreateGamePayload struct {
	PlayerName string `json:"playerName"`
	GameName   string `json:"gameName"`
}

func (p *CreateGamePayload) Validate() error {
	if p.PlayerName == "" {
		return errors.New("playerName is required")
	}
	return nil
}

// JoinGamePayload joins an existing session
type JoinGamePayload struct {
	GameCode   string `json:"gameCode"`
	PlayerName string `json:"playerName"`
}

func (p *JoinGamePayload) Validate() error {
	if p.GameCode == "" {
		return errors.New("gameCode is required")
	}
	if p.PlayerName == "" {
		return errors.New("playerName is required")
	}
	return nil
}

// GameCodePayload is shared by the events that only reference a session
type GameCodePayload struct {
	GameCode string `json:"gameCode"`
}

func (p *GameCodePayload) Validate() error {
	if p.GameCode == "" {
		return errors.New("gameCode is required")
	}
	return nil
}

// SubmitGuessesPayload carries one player's guess sheet
type SubmitGuessesPayload struct {
	GameCode string        `json:"gameCode"`
	Guesses  []model.Guess `json:"guesses"`
}

func (p *SubmitGuessesPayload) Validate() error {
	if p.GameCode == "" {
		return errors.New("gameCode is required")
	}
	if p.Guesses == nil {
		return errors.New("guesses is required")
	}
	return nil
}

// Server payloads

// GameCreatedPayload confirms session creation to the host
type GameCreatedPayload struct {
	GameCode model.SessionCode  `json:"gameCode"`
	GameName string             `json:"gameName"`
	PlayerID model.ConnectionID `json:"playerId"`
	Players  []model.Player     `json:"players"`
}

// GameJoinedPayload confirms a join or reconnect, carrying enough state for
// the client to render the current phase immediately.
type GameJoinedPayload struct {
	GameCode    model.SessionCode  `json:"gameCode"`
	GameName    string             `json:"gameName"`
	Phase       model.Phase        `json:"phase"`
	PlayerID    model.ConnectionID `json:"playerId"`
	IsHost      bool               `json:"isHost"`
	Reconnected bool               `json:"reconnected"`
	Players     []model.Player     `json:"players"`
}

// VisualizationJoinedPayload confirms a spectator join
type VisualizationJoinedPayload struct {
	GameCode model.SessionCode `json:"gameCode"`
	GameName string            `json:"gameName"`
	Phase    model.Phase       `json:"phase"`
	Players  []model.Player    `json:"players"`
}

// GameValidatedPayload answers a validate-game probe
type GameValidatedPayload struct {
	GameCode string `json:"gameCode"`
	Valid    bool   `json:"valid"`
}

// LobbyUpdatePayload is broadcast to a room when its roster changes
type LobbyUpdatePayload struct {
	Players []model.Player     `json:"players"`
	HostID  model.ConnectionID `json:"hostId"`
}

// RoleAssignedPayload tells one player their faction, with a randomized
// selection of its tells, forbidden words and phrases.
type RoleAssignedPayload struct {
	Faction faction.Info `json:"faction"`
}

// HostViewDataPayload gives the host everyone's factions
type HostViewDataPayload struct {
	Players []model.PlayerFaction `json:"players"`
}

// PhaseChangedPayload announces a phase transition. StartTime is unix
// milliseconds so mingle countdowns stay in sync across clients.
type PhaseChangedPayload struct {
	Phase          model.Phase `json:"phase"`
	MingelDuration int         `json:"mingelDuration,omitempty"`
	StartTime      int64       `json:"startTime,omitempty"`
}

// SubmissionUpdatePayload reports guessing progress to the room
type SubmissionUpdatePayload struct {
	PlayerID         model.ConnectionID `json:"playerId"`
	PlayerName       string             `json:"playerName"`
	TotalSubmissions int                `json:"totalSubmissions"`
	TotalPlayers     int                `json:"totalPlayers"`
}

// GameResultsPayload carries the final standings together with the revealed
// roster, so clients can show who was what.
type GameResultsPayload struct {
	Scores  []model.Score         `json:"scores"`
	Players []model.PlayerFaction `json:"players"`
}

// GamesUpdatedPayload pushes the browsable session list
type GamesUpdatedPayload struct {
	Games []model.SessionSummary `json:"games"`
}

// GameDeletedPayload evicts a room
type GameDeletedPayload struct {
	GameCode model.SessionCode `json:"gameCode"`
	Message  string            `json:"message"`
}

// ErrorPayload reports a failed request
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
