package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rl1809/market-checkout/internal/core/domain"
)

// Store, guard, journal and event mocks fail on a done context like real
// network adapters do.

// mockAPI is an in-memory marketplace backend. The server clamps quantity
// updates to the available stock.
type mockAPI struct {
	mu sync.Mutex

	lines    []domain.CartLine
	history  []domain.TransactionRecord
	fetchErr error
	loginErr error

	// placeFn decides the result of every PlaceOrder call when set
	placeFn func(ctx context.Context, req domain.PlaceOrderRequest) error
	placed  []domain.PlaceOrderRequest

	updateCalls int
	fetchCalls  int
}

func (m *mockAPI) Login(ctx context.Context, email, password string) (domain.Session, error) {
	if m.loginErr != nil {
		return domain.Session{}, m.loginErr
	}
	return domain.Session{UserID: "u-1", Name: "Budi", Token: "tok-" + email, Role: domain.RoleSeller}, nil
}

func (m *mockAPI) FetchCart(ctx context.Context, token string) ([]domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	out := make([]domain.CartLine, len(m.lines))
	copy(out, m.lines)
	return out, nil
}

func (m *mockAPI) UpdateCartQuantity(ctx context.Context, token, lineID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	for i := range m.lines {
		if m.lines[i].LineID == lineID {
			m.lines[i].Quantity = min(quantity, m.lines[i].StockAvailable)
			return nil
		}
	}
	return &domain.ApplicationError{Op: "update cart quantity", Message: "Keranjang tidak ditemukan"}
}

func (m *mockAPI) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) error {
	var err error
	if m.placeFn != nil {
		err = m.placeFn(ctx, req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.placed = append(m.placed, req)
	return err
}

func (m *mockAPI) FetchTransactionHistory(ctx context.Context, token, userID string) ([]domain.TransactionRecord, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.history, nil
}

func (m *mockAPI) placedRequests() []domain.PlaceOrderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.PlaceOrderRequest, len(m.placed))
	copy(out, m.placed)
	return out
}

type mockSessionStore struct {
	mu      sync.Mutex
	session *domain.Session
	saves   int
	saveErr error
}

func (m *mockSessionStore) LoadSession(ctx context.Context) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return domain.AnonymousSession(), nil
	}
	return *m.session, nil
}

func (m *mockSessionStore) SaveSession(ctx context.Context, session domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.session = &session
	return nil
}

func (m *mockSessionStore) ClearSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	m.session = nil
	return nil
}

type mockGuard struct {
	mu   sync.Mutex
	held map[string]string
	err  error
}

func newMockGuard() *mockGuard {
	return &mockGuard{held: make(map[string]string)}
}

func (m *mockGuard) Acquire(ctx context.Context, key, owner string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.held[key]; ok {
		return false, nil
	}
	m.held[key] = owner
	return true, nil
}

func (m *mockGuard) Release(ctx context.Context, key, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.held[key] == owner {
		delete(m.held, key)
	}
	return nil
}

func (m *mockGuard) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.held)
}

type mockJournal struct {
	mu       sync.Mutex
	outcomes map[string]domain.CheckoutOutcome
	lines    map[string][]domain.LineOutcome
	beginErr error
	finished int
}

func newMockJournal() *mockJournal {
	return &mockJournal{
		outcomes: make(map[string]domain.CheckoutOutcome),
		lines:    make(map[string][]domain.LineOutcome),
	}
}

func (m *mockJournal) BeginCheckout(ctx context.Context, outcome domain.CheckoutOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.beginErr != nil {
		return m.beginErr
	}
	m.outcomes[outcome.ID] = outcome
	return nil
}

func (m *mockJournal) RecordLine(ctx context.Context, checkoutID string, line domain.LineOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	m.lines[checkoutID] = append(m.lines[checkoutID], line)
	return nil
}

func (m *mockJournal) FinishCheckout(ctx context.Context, outcome domain.CheckoutOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	m.finished++
	m.outcomes[outcome.ID] = outcome
	return nil
}

func (m *mockJournal) GetCheckout(ctx context.Context, checkoutID string) (*domain.CheckoutOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.outcomes[checkoutID]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

type mockEvents struct {
	mu        sync.Mutex
	published []domain.CheckoutOutcome
}

func (m *mockEvents) PublishCheckout(ctx context.Context, outcome domain.CheckoutOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	m.published = append(m.published, outcome)
	return nil
}

type mockLocation struct {
	loc *domain.Location
}

func (m mockLocation) CurrentLocation(ctx context.Context) (domain.Location, error) {
	if m.loc == nil {
		return domain.Location{}, domain.ErrLocationUnavailable
	}
	return *m.loc, nil
}

var errStoreDown = errors.New("store down")
