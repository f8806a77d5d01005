package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/market-checkout/internal/core/domain"
	"github.com/rl1809/market-checkout/internal/port"
)

// SessionService owns the authenticated session. Mutations are serialized
// and each one is persisted before subscribers see the new snapshot.
type SessionService struct {
	api    port.MarketplaceAPI
	store  port.SessionStore
	logger *zap.Logger

	writeMu sync.Mutex

	mu      sync.RWMutex
	current domain.Session
	subs    map[int]chan domain.Session
	nextSub int
}

func NewSessionService(ctx context.Context, api port.MarketplaceAPI, store port.SessionStore, logger *zap.Logger) (*SessionService, error) {
	session, err := store.LoadSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	return &SessionService{
		api:     api,
		store:   store,
		logger:  logger,
		current: session,
		subs:    make(map[int]chan domain.Session),
	}, nil
}

func (s *SessionService) Current() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe returns a channel that always holds the latest snapshot. A slow
// reader skips intermediate snapshots but never misses the last one.
func (s *SessionService) Subscribe() (<-chan domain.Session, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++

	ch := make(chan domain.Session, 1)
	ch <- s.current
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (s *SessionService) Save(ctx context.Context, session domain.Session) error {
	return s.mutate(ctx, "save", func(_ domain.Session) domain.Session {
		return session
	})
}

// Login authenticates against the backend and stores the new session.
func (s *SessionService) Login(ctx context.Context, email, password string) (domain.Session, error) {
	if email == "" || password == "" {
		return domain.Session{}, &domain.ValidationError{Field: "credentials", Reason: "email and password are required"}
	}

	session, err := s.api.Login(ctx, email, password)
	if err != nil {
		return domain.Session{}, fmt.Errorf("login: %w", err)
	}
	session.IsLoggedIn = true
	if session.Role == "" {
		session.Role = domain.RoleCustomer
	}
	if session.Promo == "" {
		session.Promo = domain.PromoUnclaimed
	}

	if err := s.Save(ctx, session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

// ClaimPromo makes the user eligible for the promo discount. Claiming an
// already claimed promo is a no-op.
func (s *SessionService) ClaimPromo(ctx context.Context) error {
	return s.mutate(ctx, "claim promo", func(cur domain.Session) domain.Session {
		cur.Promo = domain.PromoClaimed
		return cur
	})
}

// MarkPromoUsed moves the promo to used from any state.
func (s *SessionService) MarkPromoUsed(ctx context.Context) error {
	return s.mutate(ctx, "mark promo used", func(cur domain.Session) domain.Session {
		cur.Promo = domain.PromoUsed
		return cur
	})
}

func (s *SessionService) UpdateProfile(ctx context.Context, name string) error {
	if name == "" {
		return &domain.ValidationError{Field: "name", Reason: "name must not be empty"}
	}
	return s.mutate(ctx, "update profile", func(cur domain.Session) domain.Session {
		cur.Name = name
		return cur
	})
}

// Clear logs out: the stored session is removed and every field is reset.
func (s *SessionService) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.ClearSession(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	s.publish(domain.AnonymousSession())
	s.logger.Info("session cleared")
	return nil
}

func (s *SessionService) mutate(ctx context.Context, op string, fn func(domain.Session) domain.Session) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := fn(s.Current())
	if err := s.store.SaveSession(ctx, next); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.publish(next)
	s.logger.Debug("session updated",
		zap.String("op", op),
		zap.String("user_id", next.UserID),
		zap.String("promo", string(next.Promo)))
	return nil
}

func (s *SessionService) publish(next domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = next
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
}
