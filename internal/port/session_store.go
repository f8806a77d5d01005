package port

import (
	"context"

	"github.com/rl1809/market-checkout/internal/core/domain"
)

type SessionStore interface {
	// LoadSession returns the persisted session, or the anonymous session if none
	LoadSession(ctx context.Context) (domain.Session, error)

	// SaveSession replaces the persisted session atomically
	SaveSession(ctx context.Context, session domain.Session) error

	// ClearSession removes the persisted session
	ClearSession(ctx context.Context) error
}
