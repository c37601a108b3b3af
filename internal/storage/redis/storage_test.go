package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/andersCTO/monstrens-natt/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	mini, err := miniredis.Run()
	s.Require().NoError(err)
	s.mini = mini

	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	s.storage = NewWithClient(client, DefaultConfig())
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	_ = s.storage.Close()
	s.mini.Close()
}

func (s *StorageSuite) makeSession(code string) *model.Session {
	now := time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)
	return &model.Session{
		Code:   model.SessionCode(code),
		Name:   "Fredagsmys",
		HostID: "host-conn",
		Phase:  model.PhaseLobby,
		Players: map[model.ConnectionID]*model.Player{
			"host-conn": {
				ID:       "host-conn",
				Name:     "Anders",
				IsHost:   true,
				JoinedAt: now,
			},
		},
		MingelDuration: 45,
		Submissions:    []model.Submission{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (s *StorageSuite) TestSaveAndGetSessionRoundTrip() {
	session := s.makeSession("123456")
	s.Require().NoError(s.storage.SaveSession(s.ctx, session))

	got, err := s.storage.GetSession(s.ctx, "123456")
	s.Require().NoError(err)
	s.Equal(session.Code, got.Code)
	s.Equal(session.Name, got.Name)
	s.Equal(session.HostID, got.HostID)
	s.Require().Contains(got.Players, model.ConnectionID("host-conn"))
	s.Equal("Anders", got.Players["host-conn"].Name)
	s.True(got.Players["host-conn"].IsHost)
}

func (s *StorageSuite) TestGetMissingSession() {
	_, err := s.storage.GetSession(s.ctx, "999999")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *StorageSuite) TestDeleteSessionRemovesFromIndex() {
	s.Require().NoError(s.storage.SaveSession(s.ctx, s.makeSession("123456")))
	s.Require().NoError(s.storage.DeleteSession(s.ctx, "123456"))

	_, err := s.storage.GetSession(s.ctx, "123456")
	s.ErrorIs(err, model.ErrSessionNotFound)

	sessions, err := s.storage.ListSessions(s.ctx)
	s.Require().NoError(err)
	s.Empty(sessions)
}

func (s *StorageSuite) TestSessionExists() {
	exists, err := s.storage.SessionExists(s.ctx, "123456")
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(s.storage.SaveSession(s.ctx, s.makeSession("123456")))

	exists, err = s.storage.SessionExists(s.ctx, "123456")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *StorageSuite) TestListSessions() {
	s.Require().NoError(s.storage.SaveSession(s.ctx, s.makeSession("111111")))
	s.Require().NoError(s.storage.SaveSession(s.ctx, s.makeSession("222222")))

	sessions, err := s.storage.ListSessions(s.ctx)
	s.Require().NoError(err)
	s.Len(sessions, 2)
}

func (s *StorageSuite) TestListSessionsHealsExpiredEntries() {
	s.Require().NoError(s.storage.SaveSession(s.ctx, s.makeSession("111111")))
	s.Require().NoError(s.storage.SaveSession(s.ctx, s.makeSession("222222")))

	// Simulate the snapshot expiring while the index entry remains
	s.mini.Del(sessionKey("111111"))

	sessions, err := s.storage.ListSessions(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(sessions, 1)
	s.Equal(model.SessionCode("222222"), sessions[0].Code)
}
