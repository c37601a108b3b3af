package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/andersCTO/monstrens-natt/internal/dependencies/clock"
	"github.com/andersCTO/monstrens-natt/internal/dependencies/random"
	"github.com/andersCTO/monstrens-natt/internal/dependencies/scheduler"
	"github.com/andersCTO/monstrens-natt/internal/faction"
	"github.com/andersCTO/monstrens-natt/internal/model"
	"github.com/andersCTO/monstrens-natt/internal/services/assign"
	"github.com/andersCTO/monstrens-natt/internal/services/scoring"
	"github.com/andersCTO/monstrens-natt/internal/storage"
)

// Session codes are 6-digit numbers players can type on a phone
const (
	codeMin  = 100000
	codeSpan = 900000
)

// Notifier is told about changes the transport layer must push out: summary
// updates for the browse view, and expiries that evict a whole room.
type Notifier interface {
	SessionsChanged(ctx context.Context)
	SessionExpired(ctx context.Context, code model.SessionCode)
}

// Controller manages the session state machine and player membership.
// All mutations of one session run under a per-code lock, so each operation
// sees a consistent load-mutate-save cycle.
type Controller struct {
	storage   storage.Storage
	assigner  *assign.Service
	scorer    *scoring.Service
	catalog   *faction.Catalog
	clock     clock.Clock
	random    random.Random
	scheduler scheduler.Scheduler
	logger    *slog.Logger
	cfg       Config

	mu       sync.Mutex
	locks    map[model.SessionCode]*sync.Mutex
	expiries map[model.SessionCode]scheduler.Task

	notifier Notifier
}

// NewController creates a new session Controller
func NewController(
	storage storage.Storage,
	assigner *assign.Service,
	scorer *scoring.Service,
	catalog *faction.Catalog,
	clock clock.Clock,
	random random.Random,
	sched scheduler.Scheduler,
	logger *slog.Logger,
	cfg Config,
) *Controller {
	return &Controller{
		storage:   storage,
		assigner:  assigner,
		scorer:    scorer,
		catalog:   catalog,
		clock:     clock,
		random:    random,
		scheduler: sched,
		logger:    logger,
		cfg:       cfg,
		locks:     make(map[model.SessionCode]*sync.Mutex),
		expiries:  make(map[model.SessionCode]scheduler.Task),
	}
}

// SetNotifier registers the summary-change listener. Must be called before
// the controller starts serving requests.
func (c *Controller) SetNotifier(n Notifier) {
	c.notifier = n
}

// JoinResult describes the outcome of a join or reconnect
type JoinResult struct {
	Session     *model.Session
	Player      *model.Player
	Reconnected bool
}

// StartResult carries the session and the fresh faction assignments
type StartResult struct {
	Session     *model.Session
	Assignments map[model.ConnectionID]string
}

// LeaveResult describes the outcome of an explicit leave
type LeaveResult struct {
	Session *model.Session
	Deleted bool
}

// SubmitResult reports submission progress for room broadcasts
type SubmitResult struct {
	Session          *model.Session
	Player           *model.Player
	TotalSubmissions int
	TotalPlayers     int
}

// Create makes a new session with the given connection as host. The host is
// a participant row but never receives a faction and never plays.
func (c *Controller) Create(ctx context.Context, hostConn model.ConnectionID, hostName, sessionName string) (*model.Session, error) {
	now := c.clock.Now()

	if sessionName == "" {
		sessionName = DefaultSessionName
	}

	// Generate a unique 6-digit code. The existence check runs under the
	// code's lock and the lock is held through the save, so a concurrent
	// create drawing the same code sees it occupied and retries.
	var code model.SessionCode
	var unlock func()
	for attempt := 0; ; attempt++ {
		if attempt >= DefaultMaxCodeAttempts {
			return nil, fmt.Errorf("no free session code after %d attempts", attempt)
		}
		code = model.SessionCode(strconv.Itoa(codeMin + c.random.Intn(codeSpan)))
		unlock = c.lockCode(code)
		exists, err := c.storage.SessionExists(ctx, code)
		if err != nil {
			unlock()
			return nil, err
		}
		if !exists {
			break
		}
		unlock()
	}
	defer unlock()

	session := &model.Session{
		Code:   code,
		Name:   sessionName,
		HostID: hostConn,
		Phase:  model.PhaseLobby,
		Players: map[model.ConnectionID]*model.Player{
			hostConn: {
				ID:       hostConn,
				Name:     hostName,
				IsHost:   true,
				JoinedAt: now,
			},
		},
		MingelDuration: int(c.cfg.MingelDuration.Seconds()),
		Submissions:    []model.Submission{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := c.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	c.logger.Info("session created",
		slog.String("code", string(code)),
		slog.String("host", hostName))
	c.notifySessionsChanged(ctx)

	return session, nil
}

// Get retrieves a session by code
func (c *Controller) Get(ctx context.Context, code model.SessionCode) (*model.Session, error) {
	return c.storage.GetSession(ctx, code)
}

// Validate reports whether a session with the given code exists
func (c *Controller) Validate(ctx context.Context, code model.SessionCode) (bool, error) {
	return c.storage.SessionExists(ctx, code)
}

// ListSummaries returns the browsable view of every live session
func (c *Controller) ListSummaries(ctx context.Context) ([]model.SessionSummary, error) {
	sessions, err := c.storage.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		name := s.Name
		if name == "" {
			name = DefaultSessionName
		}
		hostName := UnknownHostName
		if host := s.Host(); host != nil && host.Name != "" {
			hostName = host.Name
		}
		summaries = append(summaries, model.SessionSummary{
			Code:        s.Code,
			Name:        name,
			PlayerCount: len(s.NonHostPlayers()),
			Phase:       s.Phase,
			HostName:    hostName,
		})
	}
	return summaries, nil
}

// Join adds a player to a session, or reattaches a soft-disconnected player
// whose display name matches. A matching name that is still connected is a
// collision. Players joining after the lobby closed get a random faction so
// they can mingle immediately.
func (c *Controller) Join(ctx context.Context, code model.SessionCode, conn model.ConnectionID, name string) (*JoinResult, error) {
	unlock := c.lockCode(code)
	defer unlock()

	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()

	if existing := session.FindByName(name); existing != nil {
		if !existing.Disconnected {
			return nil, model.ErrNameTaken
		}

		// Reconnect: rebind the player row to the new connection
		delete(session.Players, existing.ID)
		wasHost := session.HostID == existing.ID
		existing.ID = conn
		existing.Disconnected = false
		session.Players[conn] = existing
		if wasHost {
			session.HostID = conn
		}
		session.UpdatedAt = now

		if err := c.storage.SaveSession(ctx, session); err != nil {
			return nil, err
		}

		c.logger.Info("player reconnected",
			slog.String("code", string(code)),
			slog.String("player", name))
		c.notifySessionsChanged(ctx)

		return &JoinResult{Session: session, Player: existing, Reconnected: true}, nil
	}

	if !session.Phase.AllowsJoin(c.cfg.JoinCutoff) {
		return nil, model.ErrJoinClosed
	}

	player := &model.Player{
		ID:       conn,
		Name:     name,
		JoinedAt: now,
	}
	if session.Phase != model.PhaseLobby {
		// Joined mid-game; hand out a role on the spot
		player.Faction = c.catalog.RandomName()
	}
	session.Players[conn] = player
	session.UpdatedAt = now

	if err := c.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	c.logger.Info("player joined",
		slog.String("code", string(code)),
		slog.String("player", name),
		slog.String("phase", string(session.Phase)))
	c.notifySessionsChanged(ctx)

	return &JoinResult{Session: session, Player: player}, nil
}

// Leave removes a player from a session. An empty session is deleted; a
// departing host hands the role to the longest-present remaining player.
func (c *Controller) Leave(ctx context.Context, code model.SessionCode, conn model.ConnectionID) (*LeaveResult, error) {
	unlock := c.lockCode(code)
	defer unlock()

	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		return nil, err
	}

	player, ok := session.Players[conn]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}

	delete(session.Players, conn)

	if len(session.Players) == 0 {
		c.cancelExpiry(code)
		if err := c.storage.DeleteSession(ctx, code); err != nil {
			return nil, err
		}
		c.logger.Info("session deleted, last player left",
			slog.String("code", string(code)))
		c.notifySessionsChanged(ctx)
		return &LeaveResult{Session: session, Deleted: true}, nil
	}

	if player.IsHost {
		next := session.PlayersInOrder()[0]
		next.IsHost = true
		session.HostID = next.ID
		c.logger.Info("host left, transferred",
			slog.String("code", string(code)),
			slog.String("new_host", next.Name))
	}

	session.UpdatedAt = c.clock.Now()
	if err := c.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	c.notifySessionsChanged(ctx)

	return &LeaveResult{Session: session}, nil
}

// Delete removes a session on the host's request
func (c *Controller) Delete(ctx context.Context, code model.SessionCode, requester model.ConnectionID) error {
	unlock := c.lockCode(code)
	defer unlock()

	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		return err
	}

	if requester != session.HostID {
		return model.ErrNotHost
	}

	c.cancelExpiry(code)
	if err := c.storage.DeleteSession(ctx, code); err != nil {
		return err
	}

	c.logger.Info("session deleted by host", slog.String("code", string(code)))
	c.notifySessionsChanged(ctx)
	return nil
}

// Start moves the session from lobby to mingel, assigning factions to every
// non-host player. Host only.
func (c *Controller) Start(ctx context.Context, code model.SessionCode, requester model.ConnectionID) (*StartResult, error) {
	unlock := c.lockCode(code)
	defer unlock()

	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		return nil, err
	}

	if requester != session.HostID {
		return nil, model.ErrNotHost
	}
	if session.Phase != model.PhaseLobby {
		return nil, model.ErrInvalidPhase
	}

	players := session.NonHostPlayers()
	if len(players) < c.cfg.MinPlayersToStart {
		return nil, model.ErrNotEnoughPlayers
	}

	ids := make([]model.ConnectionID, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}

	assignments := c.assigner.Assign(ids)
	for id, name := range assignments {
		session.Players[id].Faction = name
	}

	now := c.clock.Now()
	session.Phase = model.PhaseMingel
	session.MingelStartedAt = now
	session.UpdatedAt = now

	if err := c.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	c.logger.Info("session started",
		slog.String("code", string(code)),
		slog.Int("players", len(players)))
	c.notifySessionsChanged(ctx)

	return &StartResult{Session: session, Assignments: assignments}, nil
}

// EndMingel moves the session from mingel to guessing. Host only.
func (c *Controller) EndMingel(ctx context.Context, code model.SessionCode, requester model.ConnectionID) (*model.Session, error) {
	unlock := c.lockCode(code)
	defer unlock()

	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		return nil, err
	}

	if requester != session.HostID {
		return nil, model.ErrNotHost
	}
	if session.Phase != model.PhaseMingel {
		return nil, model.ErrInvalidPhase
	}

	session.Phase = model.PhaseGuessing
	session.UpdatedAt = c.clock.Now()

	if err := c.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	c.notifySessionsChanged(ctx)
	return session, nil
}

// SubmitGuesses records or replaces one player's guesses during the guessing
// phase.
func (c *Controller) SubmitGuesses(ctx context.Context, code model.SessionCode, conn model.ConnectionID, guesses []model.Guess) (*SubmitResult, error) {
	unlock := c.lockCode(code)
	defer unlock()

	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		return nil, err
	}

	if session.Phase != model.PhaseGuessing {
		return nil, model.ErrInvalidPhase
	}

	player, ok := session.Players[conn]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}

	submission := model.Submission{PlayerID: conn, Guesses: guesses}
	replaced := false
	for i, sub := range session.Submissions {
		if sub.PlayerID == conn {
			session.Submissions[i] = submission
			replaced = true
			break
		}
	}
	if !replaced {
		session.Submissions = append(session.Submissions, submission)
	}
	player.HasSubmitted = true
	session.UpdatedAt = c.clock.Now()

	if err := c.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	return &SubmitResult{
		Session:          session,
		Player:           player,
		TotalSubmissions: len(session.Submissions),
		TotalPlayers:     len(session.NonHostPlayers()),
	}, nil
}

// EndGuessing moves the session to results, computes scores, and schedules
// the session's deletion. Host only.
func (c *Controller) EndGuessing(ctx context.Context, code model.SessionCode, requester model.ConnectionID) (*model.Session, error) {
	unlock := c.lockCode(code)
	defer unlock()

	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		return nil, err
	}

	if requester != session.HostID {
		return nil, model.ErrNotHost
	}
	if session.Phase != model.PhaseGuessing {
		return nil, model.ErrInvalidPhase
	}

	session.Scores = c.scorer.Calculate(session.PlayersInOrder(), session.Submissions)
	session.Phase = model.PhaseResults
	session.UpdatedAt = c.clock.Now()

	if err := c.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	c.scheduleExpiry(code)

	c.logger.Info("session finished",
		slog.String("code", string(code)),
		slog.Int("submissions", len(session.Submissions)))
	c.notifySessionsChanged(ctx)

	return session, nil
}

// Disconnect soft-disconnects the connection in every session it appears in.
// The player row survives so the same display name can reconnect later.
// Returns the sessions that changed.
func (c *Controller) Disconnect(ctx context.Context, conn model.ConnectionID) ([]*model.Session, error) {
	sessions, err := c.storage.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	var changed []*model.Session
	for _, snapshot := range sessions {
		if _, ok := snapshot.Players[conn]; !ok {
			continue
		}

		updated, err := c.disconnectFrom(ctx, snapshot.Code, conn)
		if err != nil {
			return nil, err
		}
		if updated != nil {
			changed = append(changed, updated)
		}
	}

	if len(changed) > 0 {
		c.notifySessionsChanged(ctx)
	}
	return changed, nil
}

func (c *Controller) disconnectFrom(ctx context.Context, code model.SessionCode, conn model.ConnectionID) (*model.Session, error) {
	unlock := c.lockCode(code)
	defer unlock()

	// Reload under the lock; the listing snapshot may be stale
	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	player, ok := session.Players[conn]
	if !ok {
		return nil, nil
	}

	player.Disconnected = true

	if c.allDisconnected(session) && session.Phase == model.PhaseLobby {
		// Nobody left to come back for an unstarted session
		c.cancelExpiry(code)
		if err := c.storage.DeleteSession(ctx, code); err != nil {
			return nil, err
		}
		c.logger.Info("empty lobby pruned", slog.String("code", string(code)))
		return session, nil
	}

	if c.cfg.HostFailover && player.IsHost {
		if next := c.firstConnectedNonHost(session); next != nil {
			player.IsHost = false
			next.IsHost = true
			session.HostID = next.ID
			c.logger.Info("host disconnected, failover",
				slog.String("code", string(code)),
				slog.String("new_host", next.Name))
		}
	}

	session.UpdatedAt = c.clock.Now()
	if err := c.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	c.logger.Info("player disconnected",
		slog.String("code", string(code)),
		slog.String("player", player.Name))
	return session, nil
}

func (c *Controller) allDisconnected(session *model.Session) bool {
	for _, p := range session.Players {
		if !p.Disconnected {
			return false
		}
	}
	return true
}

func (c *Controller) firstConnectedNonHost(session *model.Session) *model.Player {
	for _, p := range session.PlayersInOrder() {
		if !p.IsHost && !p.Disconnected {
			return p
		}
	}
	return nil
}

// scheduleExpiry arms the deferred deletion for a finished session, replacing
// any previous timer for the same code.
func (c *Controller) scheduleExpiry(code model.SessionCode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if task, ok := c.expiries[code]; ok {
		task.Cancel()
	}
	c.expiries[code] = c.scheduler.AfterFunc(c.cfg.ResultsTTL, func() {
		c.expireSession(code)
	})
}

// cancelExpiry disarms a pending deletion, if any
func (c *Controller) cancelExpiry(code model.SessionCode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if task, ok := c.expiries[code]; ok {
		task.Cancel()
		delete(c.expiries, code)
	}
}

// expireSession runs when the results timer fires. The session is re-read
// and re-checked: if the code was reused or the session moved on, the stale
// timer must not delete it.
func (c *Controller) expireSession(code model.SessionCode) {
	ctx := context.Background()

	unlock := c.lockCode(code)
	defer unlock()

	c.mu.Lock()
	delete(c.expiries, code)
	c.mu.Unlock()

	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		return
	}
	if session.Phase != model.PhaseResults {
		c.logger.Debug("expiry skipped, session no longer in results",
			slog.String("code", string(code)),
			slog.String("phase", string(session.Phase)))
		return
	}

	if err := c.storage.DeleteSession(ctx, code); err != nil {
		c.logger.Error("failed to expire session",
			slog.String("code", string(code)),
			slog.Any("error", err))
		return
	}

	c.logger.Info("session expired", slog.String("code", string(code)))
	if c.notifier != nil {
		c.notifier.SessionExpired(ctx, code)
	}
	c.notifySessionsChanged(ctx)
}

// lockCode acquires the per-session mutex and returns its unlock func
func (c *Controller) lockCode(code model.SessionCode) func() {
	c.mu.Lock()
	lock, ok := c.locks[code]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[code] = lock
	}
	c.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (c *Controller) notifySessionsChanged(ctx context.Context) {
	if c.notifier != nil {
		c.notifier.SessionsChanged(ctx)
	}
}

// Interface for dependency injection
type ControllerInterface interface {
	Create(ctx context.Context, hostConn model.ConnectionID, hostName, sessionName string) (*model.Session, error)
	Get(ctx context.Context, code model.SessionCode) (*model.Session, error)
	Validate(ctx context.Context, code model.SessionCode) (bool, error)
	ListSummaries(ctx context.Context) ([]model.SessionSummary, error)
	Join(ctx context.Context, code model.SessionCode, conn model.ConnectionID, name string) (*JoinResult, error)
	Leave(ctx context.Context, code model.SessionCode, conn model.ConnectionID) (*LeaveResult, error)
	Delete(ctx context.Context, code model.SessionCode, requester model.ConnectionID) error
	Start(ctx context.Context, code model.SessionCode, requester model.ConnectionID) (*StartResult, error)
	EndMingel(ctx context.Context, code model.SessionCode, requester model.ConnectionID) (*model.Session, error)
	SubmitGuesses(ctx context.Context, code model.SessionCode, conn model.ConnectionID, guesses []model.Guess) (*SubmitResult, error)
	EndGuessing(ctx context.Context, code model.SessionCode, requester model.ConnectionID) (*model.Session, error)
	Disconnect(ctx context.Context, conn model.ConnectionID) ([]*model.Session, error)
}

var _ ControllerInterface = (*Controller)(nil)
