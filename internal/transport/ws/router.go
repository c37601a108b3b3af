package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/andersCTO/monstrens-natt/internal/faction"
	"github.com/andersCTO/monstrens-natt/internal/model"
	"github.com/andersCTO/monstrens-natt/internal/services/session"
)

// Messages shown to players when a session goes away
const (
	msgDeletedByHost  = "Spelet har avslutats av värden"
	msgSessionExpired = "Spelet finns inte längre"
)

// EventRouter dispatches inbound websocket events to the session controller
// and fans the results back out through the hub. It is also the controller's
// Notifier, pushing summary updates and expiry evictions to clients.
type EventRouter struct {
	sessions session.ControllerInterface
	catalog  *faction.Catalog
	hub      *Hub
	logger   *slog.Logger
}

// NewEventRouter creates the router
func NewEventRouter(
	sessions session.ControllerInterface,
	catalog *faction.Catalog,
	hub *Hub,
	logger *slog.Logger,
) *EventRouter {
	return &EventRouter{
		sessions: sessions,
		catalog:  catalog,
		hub:      hub,
		logger:   logger.With(slog.String("component", "ws_router")),
	}
}

// Hub exposes the hub for connection registration
func (r *EventRouter) Hub() *Hub {
	return r.hub
}

var _ session.Notifier = (*EventRouter)(nil)

// SessionsChanged pushes the fresh session list to every connected client
func (r *EventRouter) SessionsChanged(ctx context.Context) {
	summaries, err := r.sessions.ListSummaries(ctx)
	if err != nil {
		r.logger.Error("failed to list sessions for broadcast", slog.Any("error", err))
		return
	}
	r.hub.BroadcastAll(EventGamesUpdated, GamesUpdatedPayload{Games: summaries})
}

// SessionExpired evicts the room of a session the results timer deleted
func (r *EventRouter) SessionExpired(ctx context.Context, code model.SessionCode) {
	r.hub.BroadcastRoom(roomKey(code), EventGameDeleted, GameDeletedPayload{
		GameCode: code,
		Message:  msgSessionExpired,
	})
	r.hub.CloseRoom(roomKey(code))
}

// Dispatch routes one inbound message
func (r *EventRouter) Dispatch(c *Client, envelope Envelope) {
	ctx := context.Background()

	switch envelope.Event {
	case EventCreateGame:
		r.handleCreateGame(ctx, c, envelope.Payload)
	case EventJoinGame:
		r.handleJoinGame(ctx, c, envelope.Payload)
	case EventJoinVisualization:
		r.handleJoinVisualization(ctx, c, envelope.Payload)
	case EventLeaveGame:
		r.handleLeaveGame(ctx, c, envelope.Payload)
	case EventDeleteGame:
		r.handleDeleteGame(ctx, c, envelope.Payload)
	case EventStartGame:
		r.handleStartGame(ctx, c, envelope.Payload)
	case EventEndMingel:
		r.handleEndMingel(ctx, c, envelope.Payload)
	case EventSubmitGuesses:
		r.handleSubmitGuesses(ctx, c, envelope.Payload)
	case EventEndGuessing:
		r.handleEndGuessing(ctx, c, envelope.Payload)
	case EventGetActiveGames:
		r.handleGetActiveGames(ctx, c)
	case EventValidateGame:
		r.handleValidateGame(ctx, c, envelope.Payload)
	case EventPing:
		c.SendEvent(EventPong, nil)
	default:
		c.SendEvent(EventError, ErrorPayload{
			Code:    ErrCodeInvalidMessage,
			Message: "Unknown event: " + string(envelope.Event),
		})
	}
}

// HandleDisconnect runs when a connection's read pump exits. The player rows
// stay behind soft-disconnected so the same name can come back.
func (r *EventRouter) HandleDisconnect(c *Client) {
	r.hub.Unregister(c)

	changed, err := r.sessions.Disconnect(context.Background(), c.ID())
	if err != nil {
		r.logger.Error("disconnect handling failed",
			slog.String("connection_id", string(c.ID())),
			slog.Any("error", err))
		return
	}

	for _, s := range changed {
		r.hub.BroadcastRoom(roomKey(s.Code), EventLobbyUpdate, LobbyUpdatePayload{
			Players: s.Roster(),
			HostID:  s.HostID,
		})
	}
}

func (r *EventRouter) handleCreateGame(ctx context.Context, c *Client, raw json.RawMessage) {
	var p CreateGamePayload
	if !r.decode(c, raw, &p) {
		return
	}

	s, err := r.sessions.Create(ctx, c.ID(), p.PlayerName, p.GameName)
	if err != nil {
		r.sendError(c, err)
		return
	}

	r.hub.JoinRoom(c.ID(), roomKey(s.Code))
	c.SendEvent(EventGameCreated, GameCreatedPayload{
		GameCode: s.Code,
		GameName: s.Name,
		PlayerID: c.ID(),
		Players:  s.Roster(),
	})
}

func (r *EventRouter) handleJoinGame(ctx context.Context, c *Client, raw json.RawMessage) {
	var p JoinGamePayload
	if !r.decode(c, raw, &p) {
		return
	}

	result, err := r.sessions.Join(ctx, model.SessionCode(p.GameCode), c.ID(), p.PlayerName)
	if err != nil {
		r.sendError(c, err)
		return
	}

	s := result.Session
	r.hub.JoinRoom(c.ID(), roomKey(s.Code))

	c.SendEvent(EventGameJoined, GameJoinedPayload{
		GameCode:    s.Code,
		GameName:    s.Name,
		Phase:       s.Phase,
		PlayerID:    result.Player.ID,
		IsHost:      result.Player.IsHost,
		Reconnected: result.Reconnected,
		Players:     s.Roster(),
	})
	r.hub.BroadcastRoom(roomKey(s.Code), EventLobbyUpdate, LobbyUpdatePayload{
		Players: s.Roster(),
		HostID:  s.HostID,
	})

	// Bring the joiner up to speed with the running game
	if result.Player.Faction != "" {
		r.sendRole(c, result.Player.Faction)
	}
	if result.Player.IsHost && s.Phase != model.PhaseLobby {
		c.SendEvent(EventHostViewData, HostViewDataPayload{Players: s.FactionRoster()})
	}
	if s.Phase != model.PhaseLobby {
		c.SendEvent(EventPhaseChanged, phasePayload(s))
	}
	if s.Phase == model.PhaseResults {
		c.SendEvent(EventGameResults, resultsPayload(s))
	}
}

func (r *EventRouter) handleJoinVisualization(ctx context.Context, c *Client, raw json.RawMessage) {
	var p GameCodePayload
	if !r.decode(c, raw, &p) {
		return
	}

	s, err := r.sessions.Get(ctx, model.SessionCode(p.GameCode))
	if err != nil {
		r.sendError(c, err)
		return
	}

	r.hub.JoinRoom(c.ID(), roomKey(s.Code))
	c.SendEvent(EventVisualizationJoined, VisualizationJoinedPayload{
		GameCode: s.Code,
		GameName: s.Name,
		Phase:    s.Phase,
		Players:  s.Roster(),
	})
	if s.Phase != model.PhaseLobby {
		c.SendEvent(EventPhaseChanged, phasePayload(s))
	}
	if s.Phase == model.PhaseResults {
		c.SendEvent(EventGameResults, resultsPayload(s))
	}
}

func (r *EventRouter) handleLeaveGame(ctx context.Context, c *Client, raw json.RawMessage) {
	var p GameCodePayload
	if !r.decode(c, raw, &p) {
		return
	}

	code := model.SessionCode(p.GameCode)
	result, err := r.sessions.Leave(ctx, code, c.ID())
	if err != nil {
		r.sendError(c, err)
		return
	}

	r.hub.LeaveRoom(c.ID())
	if !result.Deleted {
		r.hub.BroadcastRoom(roomKey(code), EventLobbyUpdate, LobbyUpdatePayload{
			Players: result.Session.Roster(),
			HostID:  result.Session.HostID,
		})
	}
}

func (r *EventRouter) handleDeleteGame(ctx context.Context, c *Client, raw json.RawMessage) {
	var p GameCodePayload
	if !r.decode(c, raw, &p) {
		return
	}

	code := model.SessionCode(p.GameCode)
	if err := r.sessions.Delete(ctx, code, c.ID()); err != nil {
		r.sendError(c, err)
		return
	}

	r.hub.BroadcastRoom(roomKey(code), EventGameDeleted, GameDeletedPayload{
		GameCode: code,
		Message:  msgDeletedByHost,
	})
	r.hub.CloseRoom(roomKey(code))
}

func (r *EventRouter) handleStartGame(ctx context.Context, c *Client, raw json.RawMessage) {
	var p GameCodePayload
	if !r.decode(c, raw, &p) {
		return
	}

	result, err := r.sessions.Start(ctx, model.SessionCode(p.GameCode), c.ID())
	if err != nil {
		r.sendError(c, err)
		return
	}

	s := result.Session
	for conn, factionName := range result.Assignments {
		r.sendRoleTo(conn, factionName)
	}
	r.hub.SendTo(s.HostID, EventHostViewData, HostViewDataPayload{
		Players: s.FactionRoster(),
	})
	r.hub.BroadcastRoom(roomKey(s.Code), EventPhaseChanged, phasePayload(s))
}

func (r *EventRouter) handleEndMingel(ctx context.Context, c *Client, raw json.RawMessage) {
	var p GameCodePayload
	if !r.decode(c, raw, &p) {
		return
	}

	s, err := r.sessions.EndMingel(ctx, model.SessionCode(p.GameCode), c.ID())
	if err != nil {
		r.sendError(c, err)
		return
	}

	// Refresh the host's overview for the guessing screen
	r.hub.SendTo(s.HostID, EventHostViewData, HostViewDataPayload{
		Players: s.FactionRoster(),
	})
	r.hub.BroadcastRoom(roomKey(s.Code), EventPhaseChanged, phasePayload(s))
}

func (r *EventRouter) handleSubmitGuesses(ctx context.Context, c *Client, raw json.RawMessage) {
	var p SubmitGuessesPayload
	if !r.decode(c, raw, &p) {
		return
	}

	result, err := r.sessions.SubmitGuesses(ctx, model.SessionCode(p.GameCode), c.ID(), p.Guesses)
	if err != nil {
		r.sendError(c, err)
		return
	}

	r.hub.BroadcastRoom(roomKey(result.Session.Code), EventSubmissionUpdate, SubmissionUpdatePayload{
		PlayerID:         result.Player.ID,
		PlayerName:       result.Player.Name,
		TotalSubmissions: result.TotalSubmissions,
		TotalPlayers:     result.TotalPlayers,
	})
}

func (r *EventRouter) handleEndGuessing(ctx context.Context, c *Client, raw json.RawMessage) {
	var p GameCodePayload
	if !r.decode(c, raw, &p) {
		return
	}

	s, err := r.sessions.EndGuessing(ctx, model.SessionCode(p.GameCode), c.ID())
	if err != nil {
		r.sendError(c, err)
		return
	}

	r.hub.BroadcastRoom(roomKey(s.Code), EventPhaseChanged, phasePayload(s))
	r.hub.BroadcastRoom(roomKey(s.Code), EventGameResults, resultsPayload(s))
}

func (r *EventRouter) handleGetActiveGames(ctx context.Context, c *Client) {
	summaries, err := r.sessions.ListSummaries(ctx)
	if err != nil {
		r.sendError(c, err)
		return
	}
	c.SendEvent(EventGamesUpdated, GamesUpdatedPayload{Games: summaries})
}

func (r *EventRouter) handleValidateGame(ctx context.Context, c *Client, raw json.RawMessage) {
	var p GameCodePayload
	if !r.decode(c, raw, &p) {
		return
	}

	valid, err := r.sessions.Validate(ctx, model.SessionCode(p.GameCode))
	if err != nil {
		r.sendError(c, err)
		return
	}
	c.SendEvent(EventGameValidated, GameValidatedPayload{
		GameCode: p.GameCode,
		Valid:    valid,
	})
}

// sendRole delivers a role reveal with a fresh randomized subset of the
// faction's material.
func (r *EventRouter) sendRole(c *Client, factionName string) {
	info, err := r.catalog.RandomizedSubset(factionName)
	if err != nil {
		r.logger.Error("unknown assigned faction",
			slog.String("faction", factionName),
			slog.Any("error", err))
		return
	}
	c.SendEvent(EventRoleAssigned, RoleAssignedPayload{Faction: info})
}

func (r *EventRouter) sendRoleTo(conn model.ConnectionID, factionName string) {
	info, err := r.catalog.RandomizedSubset(factionName)
	if err != nil {
		r.logger.Error("unknown assigned faction",
			slog.String("faction", factionName),
			slog.Any("error", err))
		return
	}
	r.hub.SendTo(conn, EventRoleAssigned, RoleAssignedPayload{Faction: info})
}

// decode unmarshals and validates a payload, reporting failures to the
// client. Returns false when dispatch should stop.
func (r *EventRouter) decode(c *Client, raw json.RawMessage, dst interface{ Validate() error }) bool {
	if len(raw) == 0 {
		c.SendEvent(EventError, ErrorPayload{
			Code:    ErrCodeInvalidMessage,
			Message: "Payload is required",
		})
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.SendEvent(EventError, ErrorPayload{
			Code:    ErrCodeInvalidMessage,
			Message: "Invalid payload",
		})
		return false
	}
	if err := dst.Validate(); err != nil {
		c.SendEvent(EventError, ErrorPayload{
			Code:    ErrCodeInvalidMessage,
			Message: err.Error(),
		})
		return false
	}
	return true
}

func (r *EventRouter) sendError(c *Client, err error) {
	code, message := mapError(err)
	if code == ErrCodeInternalError {
		r.logger.Error("request failed", slog.Any("error", err))
	}
	c.SendEvent(EventError, ErrorPayload{Code: code, Message: message})
}

func mapError(err error) (string, string) {
	switch {
	case errors.Is(err, model.ErrSessionNotFound):
		return ErrCodeGameNotFound, "Spelet hittades inte"
	case errors.Is(err, model.ErrNotHost):
		return ErrCodeNotHost, "Endast värden kan göra detta"
	case errors.Is(err, model.ErrNameTaken):
		return ErrCodeNameTaken, "Detta namn används redan av en annan spelare"
	case errors.Is(err, model.ErrJoinClosed):
		return ErrCodeJoinClosed, "Spelet kan inte jointas just nu"
	case errors.Is(err, model.ErrInvalidPhase):
		return ErrCodeInvalidPhase, "Åtgärden är inte möjlig i nuvarande fas"
	case errors.Is(err, model.ErrNotEnoughPlayers):
		return ErrCodeNotEnoughPlayers, "Det behövs fler spelare för att starta"
	case errors.Is(err, model.ErrPlayerNotFound):
		return ErrCodeGameNotFound, "Spelaren finns inte i spelet"
	default:
		return ErrCodeInternalError, "Något gick fel"
	}
}

// phasePayload snapshots the phase announcement for a session. The mingle
// start time goes out as unix milliseconds so countdowns agree across
// clients regardless of local clocks. Timing rides along on every phase once
// the game has started, so reconnecting clients can restore their timers.
func phasePayload(s *model.Session) PhaseChangedPayload {
	p := PhaseChangedPayload{Phase: s.Phase}
	if !s.MingelStartedAt.IsZero() {
		p.MingelDuration = s.MingelDuration
		p.StartTime = s.MingelStartedAt.UnixMilli()
	}
	return p
}

// resultsPayload pairs the final scores with the revealed factions
func resultsPayload(s *model.Session) GameResultsPayload {
	return GameResultsPayload{
		Scores:  s.Scores,
		Players: s.FactionRoster(),
	}
}

func roomKey(code model.SessionCode) string {
	return string(code)
}
