package storage

import (
	"context"

	"github.com/andersCTO/monstrens-natt/internal/model"
)

// Storage defines the interface for session persistence. The default backend
// is in-memory; Redis is available for deployments that want sessions to
// survive a process restart.
type Storage interface {
	SaveSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, code model.SessionCode) (*model.Session, error)
	DeleteSession(ctx context.Context, code model.SessionCode) error
	SessionExists(ctx context.Context, code model.SessionCode) (bool, error)
	ListSessions(ctx context.Context) ([]*model.Session, error)
}
