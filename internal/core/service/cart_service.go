package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/market-checkout/internal/core/domain"
	"github.com/rl1809/market-checkout/internal/port"
)

// CartService holds the local view of the server cart. It never patches
// lines locally: every edit is followed by a full reload.
type CartService struct {
	api    port.MarketplaceAPI
	logger *zap.Logger

	mu    sync.RWMutex
	cart  domain.Cart
	state domain.ViewState[domain.Cart]
	stale bool
}

func NewCartService(api port.MarketplaceAPI, logger *zap.Logger) *CartService {
	return &CartService{
		api:    api,
		logger: logger,
		state:  domain.Idle[domain.Cart](),
	}
}

// Load replaces the cart with the server result. Concurrent loads are not
// coalesced; whichever resolves last wins. On failure the previous lines are
// kept and the state carries the error message.
func (s *CartService) Load(ctx context.Context, token string) (domain.Cart, error) {
	if token == "" {
		return domain.Cart{}, domain.ErrNotLoggedIn
	}

	s.setState(domain.Loading[domain.Cart]())

	lines, err := s.api.FetchCart(ctx, token)
	if err != nil {
		s.setState(domain.Failure[domain.Cart](domain.ErrorMessage(err)))
		s.logger.Warn("fetch cart failed", zap.Error(err))
		return domain.Cart{}, fmt.Errorf("load cart: %w", err)
	}

	cart := domain.Cart{Lines: lines}

	s.mu.Lock()
	s.cart = cart
	s.stale = false
	s.state = domain.Success(cart.Clone())
	s.mu.Unlock()

	s.logger.Debug("cart loaded",
		zap.Int("lines", len(lines)),
		zap.Int64("subtotal", cart.Subtotal()))
	return cart.Clone(), nil
}

// SetQuantity asks the server to change a line quantity and reloads the
// cart. Only non-positive quantities are rejected locally; the stock bound is
// checked by the server.
func (s *CartService) SetQuantity(ctx context.Context, token, lineID string, quantity int) (domain.Cart, error) {
	if token == "" {
		return domain.Cart{}, domain.ErrNotLoggedIn
	}
	if quantity <= 0 {
		return domain.Cart{}, domain.ErrInvalidQuantity
	}

	if err := s.api.UpdateCartQuantity(ctx, token, lineID, quantity); err != nil {
		s.setState(domain.Failure[domain.Cart](domain.ErrorMessage(err)))
		s.logger.Warn("update cart quantity failed",
			zap.String("line_id", lineID),
			zap.Int("quantity", quantity),
			zap.Error(err))
		return domain.Cart{}, fmt.Errorf("update quantity: %w", err)
	}

	return s.Load(ctx, token)
}

func (s *CartService) Snapshot() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

func (s *CartService) Subtotal() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Subtotal()
}

func (s *CartService) GroupByStore() []domain.StoreGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.GroupByStore()
}

func (s *CartService) State() domain.ViewState[domain.Cart] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// MarkStale flags the local cart as out of date after orders were placed.
// It stays stale until the next successful Load.
func (s *CartService) MarkStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale = true
}

func (s *CartService) IsStale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}

func (s *CartService) setState(state domain.ViewState[domain.Cart]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}
