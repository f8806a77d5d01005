package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/market-checkout/internal/core/domain"
	"github.com/rl1809/market-checkout/internal/port"
)

type HistoryService struct {
	api     port.MarketplaceAPI
	session *SessionService
	logger  *zap.Logger

	mu    sync.RWMutex
	state domain.ViewState[[]domain.TransactionRecord]
}

func NewHistoryService(api port.MarketplaceAPI, session *SessionService, logger *zap.Logger) *HistoryService {
	return &HistoryService{
		api:     api,
		session: session,
		logger:  logger,
		state:   domain.Idle[[]domain.TransactionRecord](),
	}
}

// Load fetches the transaction history of the current user.
func (s *HistoryService) Load(ctx context.Context) ([]domain.TransactionRecord, error) {
	sess := s.session.Current()
	if !sess.Authenticated() {
		return nil, domain.ErrNotLoggedIn
	}

	s.setState(domain.Loading[[]domain.TransactionRecord]())

	records, err := s.api.FetchTransactionHistory(ctx, sess.Token, sess.UserID)
	if err != nil {
		s.setState(domain.Failure[[]domain.TransactionRecord](domain.ErrorMessage(err)))
		s.logger.Warn("fetch transaction history failed",
			zap.String("user_id", sess.UserID),
			zap.Error(err))
		return nil, fmt.Errorf("load history: %w", err)
	}

	s.setState(domain.Success(records))
	return records, nil
}

func (s *HistoryService) State() domain.ViewState[[]domain.TransactionRecord] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *HistoryService) setState(state domain.ViewState[[]domain.TransactionRecord]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}
