package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/andersCTO/monstrens-natt/internal/dependencies/mocks"
	"github.com/andersCTO/monstrens-natt/internal/faction"
	"github.com/andersCTO/monstrens-natt/internal/model"
	"github.com/andersCTO/monstrens-natt/internal/services/assign"
	"github.com/andersCTO/monstrens-natt/internal/services/scoring"
	"github.com/andersCTO/monstrens-natt/internal/services/session"
	"github.com/andersCTO/monstrens-natt/internal/storage/memory"
	"github.com/andersCTO/monstrens-natt/internal/testutil"
)

// RouterSuite drives the full dispatch path against a real controller with
// in-memory storage. Clients are constructed without a network connection;
// outbound frames are read straight from their send buffers.
type RouterSuite struct {
	suite.Suite
	clock      *mocks.MockClock
	scheduler  *mocks.MockScheduler
	catalog    *faction.Catalog
	controller *session.Controller
	hub        *Hub
	router     *EventRouter
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := testutil.NopLogger()
	storage := memory.New()
	s.clock = mocks.NewMockClock(time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC))
	s.scheduler = mocks.NewMockScheduler()
	random := mocks.NewMockRandom()
	s.catalog = faction.NewCatalog(random)
	s.controller = session.NewController(
		storage,
		assign.New(s.catalog, random, logger),
		scoring.New(),
		s.catalog,
		s.clock,
		random,
		s.scheduler,
		logger,
		session.DefaultConfig(),
	)
	s.hub = NewHub(logger)
	s.router = NewEventRouter(s.controller, s.catalog, s.hub, logger)
	s.controller.SetNotifier(s.router)
}

func (s *RouterSuite) newClient(id string) *Client {
	c := NewClient(model.ConnectionID(id), nil, s.router, testutil.NopLogger())
	s.hub.Register(c)
	return c
}

func (s *RouterSuite) dispatch(c *Client, event Event, payload any) {
	envelope := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		s.Require().NoError(err)
		envelope.Payload = data
	}
	s.router.Dispatch(c, envelope)
}

// expectEvent drains the client's queue until a frame of the wanted event
// appears, unmarshalling its payload into dst (when non-nil).
func (s *RouterSuite) expectEvent(c *Client, event Event, dst any) {
	for {
		select {
		case data := <-c.send:
			var envelope Envelope
			s.Require().NoError(json.Unmarshal(data, &envelope))
			if envelope.Event != event {
				continue
			}
			if dst != nil {
				s.Require().NoError(json.Unmarshal(envelope.Payload, dst))
			}
			return
		default:
			s.FailNowf("expected event not received", "wanted %s", event)
			return
		}
	}
}

// expectNoEvent asserts that no frame of the given event is queued
func (s *RouterSuite) expectNoEvent(c *Client, event Event) {
	for {
		select {
		case data := <-c.send:
			var envelope Envelope
			s.Require().NoError(json.Unmarshal(data, &envelope))
			s.Require().NotEqual(event, envelope.Event)
		default:
			return
		}
	}
}

func (s *RouterSuite) drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

// createGame sets up a hosted session and returns its code
func (s *RouterSuite) createGame(host *Client) model.SessionCode {
	s.dispatch(host, EventCreateGame, CreateGamePayload{PlayerName: "Anna", GameName: "Fredagsmys"})
	var created GameCreatedPayload
	s.expectEvent(host, EventGameCreated, &created)
	return created.GameCode
}

func (s *RouterSuite) joinGame(c *Client, code model.SessionCode, name string) {
	s.dispatch(c, EventJoinGame, JoinGamePayload{GameCode: string(code), PlayerName: name})
	s.expectEvent(c, EventGameJoined, nil)
}

func (s *RouterSuite) TestCreateGame() {
	host := s.newClient("host")
	s.dispatch(host, EventCreateGame, CreateGamePayload{PlayerName: "Anna", GameName: "Fredagsmys"})

	var created GameCreatedPayload
	s.expectEvent(host, EventGameCreated, &created)
	s.Equal(model.SessionCode("100000"), created.GameCode)
	s.Equal("Fredagsmys", created.GameName)
	s.Equal(model.ConnectionID("host"), created.PlayerID)
	s.Require().Len(created.Players, 1)
	s.True(created.Players[0].IsHost)
}

func (s *RouterSuite) TestJoinBroadcastsLobbyUpdate() {
	host := s.newClient("host")
	code := s.createGame(host)
	s.drain(host)

	player := s.newClient("p1")
	s.dispatch(player, EventJoinGame, JoinGamePayload{GameCode: string(code), PlayerName: "Björn"})

	var joined GameJoinedPayload
	s.expectEvent(player, EventGameJoined, &joined)
	s.Equal(code, joined.GameCode)
	s.False(joined.Reconnected)
	s.False(joined.IsHost)
	s.Len(joined.Players, 2)

	var update LobbyUpdatePayload
	s.expectEvent(host, EventLobbyUpdate, &update)
	s.Len(update.Players, 2)
	s.Equal(model.ConnectionID("host"), update.HostID)
}

func (s *RouterSuite) TestJoinUnknownGame() {
	player := s.newClient("p1")
	s.dispatch(player, EventJoinGame, JoinGamePayload{GameCode: "999999", PlayerName: "Björn"})

	var errPayload ErrorPayload
	s.expectEvent(player, EventError, &errPayload)
	s.Equal(ErrCodeGameNotFound, errPayload.Code)
	s.Equal("Spelet hittades inte", errPayload.Message)
}

func (s *RouterSuite) TestStartGameAssignsRolesAndAnnouncesPhase() {
	host := s.newClient("host")
	code := s.createGame(host)
	p1 := s.newClient("p1")
	p2 := s.newClient("p2")
	s.joinGame(p1, code, "Björn")
	s.joinGame(p2, code, "Cecilia")
	for _, c := range []*Client{host, p1, p2} {
		s.drain(c)
	}

	s.dispatch(host, EventStartGame, GameCodePayload{GameCode: string(code)})

	var role RoleAssignedPayload
	s.expectEvent(p1, EventRoleAssigned, &role)
	s.Contains(s.catalog.Names(), role.Faction.Name)
	s.LessOrEqual(len(role.Faction.TellingTales), 3)
	s.LessOrEqual(len(role.Faction.ForbiddenWords), 5)
	s.LessOrEqual(len(role.Faction.FavoritePhrases), 3)
	s.expectEvent(p2, EventRoleAssigned, nil)

	var hostView HostViewDataPayload
	s.expectEvent(host, EventHostViewData, &hostView)
	s.Len(hostView.Players, 2)
	for _, p := range hostView.Players {
		s.Contains(s.catalog.Names(), p.Faction)
	}

	var phase PhaseChangedPayload
	s.expectEvent(host, EventPhaseChanged, &phase)
	s.Equal(model.PhaseMingel, phase.Phase)
	s.Equal(45, phase.MingelDuration)
	s.Equal(s.clock.Now().UnixMilli(), phase.StartTime)
}

func (s *RouterSuite) TestNonHostCannotStart() {
	host := s.newClient("host")
	code := s.createGame(host)
	p1 := s.newClient("p1")
	p2 := s.newClient("p2")
	s.joinGame(p1, code, "Björn")
	s.joinGame(p2, code, "Cecilia")
	s.drain(p1)

	s.dispatch(p1, EventStartGame, GameCodePayload{GameCode: string(code)})

	var errPayload ErrorPayload
	s.expectEvent(p1, EventError, &errPayload)
	s.Equal(ErrCodeNotHost, errPayload.Code)
}

func (s *RouterSuite) TestFullGameFlow() {
	host := s.newClient("host")
	code := s.createGame(host)
	p1 := s.newClient("p1")
	p2 := s.newClient("p2")
	s.joinGame(p1, code, "Björn")
	s.joinGame(p2, code, "Cecilia")

	s.dispatch(host, EventStartGame, GameCodePayload{GameCode: string(code)})
	s.dispatch(host, EventEndMingel, GameCodePayload{GameCode: string(code)})
	for _, c := range []*Client{host, p1, p2} {
		s.drain(c)
	}

	s.dispatch(p1, EventSubmitGuesses, SubmitGuessesPayload{
		GameCode: string(code),
		Guesses:  []model.Guess{{Faction: "Vampyr", Players: []model.ConnectionID{"p2"}}},
	})
	var progress SubmissionUpdatePayload
	s.expectEvent(host, EventSubmissionUpdate, &progress)
	s.Equal("Björn", progress.PlayerName)
	s.Equal(1, progress.TotalSubmissions)
	s.Equal(2, progress.TotalPlayers)

	s.dispatch(host, EventEndGuessing, GameCodePayload{GameCode: string(code)})

	var phase PhaseChangedPayload
	s.expectEvent(p2, EventPhaseChanged, &phase)
	s.Equal(model.PhaseResults, phase.Phase)

	var results GameResultsPayload
	s.expectEvent(p2, EventGameResults, &results)
	s.Require().Len(results.Scores, 1)
	s.Equal("Björn", results.Scores[0].PlayerName)

	// The reveal rides along with the scores
	s.Require().Len(results.Players, 2)
	for _, p := range results.Players {
		s.Contains(s.catalog.Names(), p.Faction)
	}

	// Deletion is now armed
	s.Require().Len(s.scheduler.Tasks, 1)
}

func (s *RouterSuite) TestEndMingelRefreshesHostView() {
	host := s.newClient("host")
	code := s.createGame(host)
	p1 := s.newClient("p1")
	p2 := s.newClient("p2")
	s.joinGame(p1, code, "Björn")
	s.joinGame(p2, code, "Cecilia")
	s.dispatch(host, EventStartGame, GameCodePayload{GameCode: string(code)})
	s.drain(host)

	s.dispatch(host, EventEndMingel, GameCodePayload{GameCode: string(code)})

	var hostView HostViewDataPayload
	s.expectEvent(host, EventHostViewData, &hostView)
	s.Len(hostView.Players, 2)

	var phase PhaseChangedPayload
	s.expectEvent(host, EventPhaseChanged, &phase)
	s.Equal(model.PhaseGuessing, phase.Phase)
}

func (s *RouterSuite) TestReconnectCatchesUpMidGame() {
	host := s.newClient("host")
	code := s.createGame(host)
	p1 := s.newClient("p1")
	p2 := s.newClient("p2")
	s.joinGame(p1, code, "Björn")
	s.joinGame(p2, code, "Cecilia")
	s.dispatch(host, EventStartGame, GameCodePayload{GameCode: string(code)})

	s.router.HandleDisconnect(p1)

	fresh := s.newClient("p1-fresh")
	s.dispatch(fresh, EventJoinGame, JoinGamePayload{GameCode: string(code), PlayerName: "Björn"})

	var joined GameJoinedPayload
	s.expectEvent(fresh, EventGameJoined, &joined)
	s.True(joined.Reconnected)
	s.Equal(model.ConnectionID("p1-fresh"), joined.PlayerID)

	s.expectEvent(fresh, EventRoleAssigned, nil)

	var phase PhaseChangedPayload
	s.expectEvent(fresh, EventPhaseChanged, &phase)
	s.Equal(model.PhaseMingel, phase.Phase)
	s.Positive(phase.StartTime)
}

func (s *RouterSuite) TestReconnectDuringGuessingKeepsTiming() {
	host := s.newClient("host")
	code := s.createGame(host)
	p1 := s.newClient("p1")
	p2 := s.newClient("p2")
	s.joinGame(p1, code, "Björn")
	s.joinGame(p2, code, "Cecilia")
	s.dispatch(host, EventStartGame, GameCodePayload{GameCode: string(code)})
	s.dispatch(host, EventEndMingel, GameCodePayload{GameCode: string(code)})

	s.router.HandleDisconnect(p1)
	fresh := s.newClient("p1-fresh")
	s.dispatch(fresh, EventJoinGame, JoinGamePayload{GameCode: string(code), PlayerName: "Björn"})
	s.expectEvent(fresh, EventGameJoined, nil)

	var phase PhaseChangedPayload
	s.expectEvent(fresh, EventPhaseChanged, &phase)
	s.Equal(model.PhaseGuessing, phase.Phase)
	s.Equal(45, phase.MingelDuration)
	s.Positive(phase.StartTime)
}

func (s *RouterSuite) TestReconnectDuringResultsSeesReveal() {
	host := s.newClient("host")
	code := s.createGame(host)
	p1 := s.newClient("p1")
	p2 := s.newClient("p2")
	s.joinGame(p1, code, "Björn")
	s.joinGame(p2, code, "Cecilia")
	s.dispatch(host, EventStartGame, GameCodePayload{GameCode: string(code)})
	s.dispatch(host, EventEndMingel, GameCodePayload{GameCode: string(code)})
	s.dispatch(host, EventEndGuessing, GameCodePayload{GameCode: string(code)})

	s.router.HandleDisconnect(p1)
	fresh := s.newClient("p1-fresh")
	s.dispatch(fresh, EventJoinGame, JoinGamePayload{GameCode: string(code), PlayerName: "Björn"})

	var joined GameJoinedPayload
	s.expectEvent(fresh, EventGameJoined, &joined)
	s.True(joined.Reconnected)
	s.Equal(model.PhaseResults, joined.Phase)

	var results GameResultsPayload
	s.expectEvent(fresh, EventGameResults, &results)
	s.Len(results.Players, 2)
}

func (s *RouterSuite) TestSecondConnectionCannotStealName() {
	host := s.newClient("host")
	code := s.createGame(host)
	p1 := s.newClient("p1")
	s.joinGame(p1, code, "Björn")

	imposter := s.newClient("p2")
	s.dispatch(imposter, EventJoinGame, JoinGamePayload{GameCode: string(code), PlayerName: "Björn"})

	var errPayload ErrorPayload
	s.expectEvent(imposter, EventError, &errPayload)
	s.Equal(ErrCodeNameTaken, errPayload.Code)
	s.Equal("Detta namn används redan av en annan spelare", errPayload.Message)
}

func (s *RouterSuite) TestVisualizationJoin() {
	host := s.newClient("host")
	code := s.createGame(host)
	p1 := s.newClient("p1")
	s.joinGame(p1, code, "Björn")
	s.drain(host)

	viz := s.newClient("viz")
	s.dispatch(viz, EventJoinVisualization, GameCodePayload{GameCode: string(code)})

	var joined VisualizationJoinedPayload
	s.expectEvent(viz, EventVisualizationJoined, &joined)
	s.Equal(code, joined.GameCode)
	s.Len(joined.Players, 2)

	// The observer is in the room and sees roster changes
	p2 := s.newClient("p2")
	s.joinGame(p2, code, "Cecilia")
	var update LobbyUpdatePayload
	s.expectEvent(viz, EventLobbyUpdate, &update)
	s.Len(update.Players, 3)
}

func (s *RouterSuite) TestDeleteGameEvictsRoom() {
	host := s.newClient("host")
	code := s.createGame(host)
	p1 := s.newClient("p1")
	s.joinGame(p1, code, "Björn")
	s.drain(p1)

	s.dispatch(host, EventDeleteGame, GameCodePayload{GameCode: string(code)})

	var deleted GameDeletedPayload
	s.expectEvent(p1, EventGameDeleted, &deleted)
	s.Equal(code, deleted.GameCode)
	s.Equal("Spelet har avslutats av värden", deleted.Message)
}

func (s *RouterSuite) TestExpiryEvictsRoom() {
	host := s.newClient("host")
	code := s.createGame(host)
	p1 := s.newClient("p1")
	p2 := s.newClient("p2")
	s.joinGame(p1, code, "Björn")
	s.joinGame(p2, code, "Cecilia")
	s.dispatch(host, EventStartGame, GameCodePayload{GameCode: string(code)})
	s.dispatch(host, EventEndMingel, GameCodePayload{GameCode: string(code)})
	s.dispatch(host, EventEndGuessing, GameCodePayload{GameCode: string(code)})
	for _, c := range []*Client{host, p1, p2} {
		s.drain(c)
	}

	s.scheduler.FireAll()

	var deleted GameDeletedPayload
	s.expectEvent(p1, EventGameDeleted, &deleted)
	s.Equal("Spelet finns inte längre", deleted.Message)

	s.dispatch(p1, EventValidateGame, GameCodePayload{GameCode: string(code)})
	var validated GameValidatedPayload
	s.expectEvent(p1, EventGameValidated, &validated)
	s.False(validated.Valid)
}

func (s *RouterSuite) TestDisconnectNotifiesRoom() {
	host := s.newClient("host")
	code := s.createGame(host)
	p1 := s.newClient("p1")
	s.joinGame(p1, code, "Björn")
	s.drain(host)

	s.router.HandleDisconnect(p1)

	var update LobbyUpdatePayload
	s.expectEvent(host, EventLobbyUpdate, &update)
	s.Require().Len(update.Players, 2)
	for _, p := range update.Players {
		if p.Name == "Björn" {
			s.True(p.Disconnected)
		}
	}
}

func (s *RouterSuite) TestGetActiveGames() {
	host := s.newClient("host")
	code := s.createGame(host)

	browser := s.newClient("browser")
	s.drain(browser)
	s.dispatch(browser, EventGetActiveGames, nil)

	var games GamesUpdatedPayload
	s.expectEvent(browser, EventGamesUpdated, &games)
	s.Require().Len(games.Games, 1)
	s.Equal(code, games.Games[0].Code)
	s.Equal("Anna", games.Games[0].HostName)
}

func (s *RouterSuite) TestGamesUpdatedPushedOnChange() {
	browser := s.newClient("browser")

	host := s.newClient("host")
	s.createGame(host)

	var games GamesUpdatedPayload
	s.expectEvent(browser, EventGamesUpdated, &games)
	s.Len(games.Games, 1)
}

func (s *RouterSuite) TestInvalidPayload() {
	c := s.newClient("c")
	s.router.Dispatch(c, Envelope{Event: EventJoinGame, Payload: json.RawMessage(`{`)})

	var errPayload ErrorPayload
	s.expectEvent(c, EventError, &errPayload)
	s.Equal(ErrCodeInvalidMessage, errPayload.Code)
}

func (s *RouterSuite) TestMissingRequiredField() {
	c := s.newClient("c")
	s.dispatch(c, EventJoinGame, JoinGamePayload{GameCode: "123456"})

	var errPayload ErrorPayload
	s.expectEvent(c, EventError, &errPayload)
	s.Equal(ErrCodeInvalidMessage, errPayload.Code)
}

func (s *RouterSuite) TestUnknownEvent() {
	c := s.newClient("c")
	s.dispatch(c, Event("do-something"), nil)

	var errPayload ErrorPayload
	s.expectEvent(c, EventError, &errPayload)
	s.Equal(ErrCodeInvalidMessage, errPayload.Code)
}

func (s *RouterSuite) TestPingPong() {
	c := s.newClient("c")
	s.dispatch(c, EventPing, nil)
	s.expectEvent(c, EventPong, nil)
}

func (s *RouterSuite) TestLeaveGameUpdatesRoom() {
	host := s.newClient("host")
	code := s.createGame(host)
	p1 := s.newClient("p1")
	s.joinGame(p1, code, "Björn")
	s.drain(host)

	s.dispatch(p1, EventLeaveGame, GameCodePayload{GameCode: string(code)})

	var update LobbyUpdatePayload
	s.expectEvent(host, EventLobbyUpdate, &update)
	s.Len(update.Players, 1)

	// The leaver is out of the room and hears nothing further
	s.drain(p1)
	p2 := s.newClient("p2")
	s.joinGame(p2, code, "Cecilia")
	s.expectNoEvent(p1, EventLobbyUpdate)
}
