package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/market-checkout/internal/core/domain"
)

// MemoryJournal keeps checkout attempts in process memory. It is used when
// no MySQL DSN is configured; records are lost on restart.
type MemoryJournal struct {
	mu        sync.RWMutex
	checkouts map[string]*domain.CheckoutOutcome
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{checkouts: make(map[string]*domain.CheckoutOutcome)}
}

func (m *MemoryJournal) BeginCheckout(ctx context.Context, outcome domain.CheckoutOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o := cloneOutcome(outcome)
	m.checkouts[outcome.ID] = &o
	return nil
}

func (m *MemoryJournal) RecordLine(ctx context.Context, checkoutID string, line domain.LineOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.checkouts[checkoutID]
	if !ok {
		return ErrCheckoutNotFound
	}
	for i := range o.Lines {
		if o.Lines[i].LineID == line.LineID {
			o.Lines[i] = line
			o.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrCheckoutNotFound
}

func (m *MemoryJournal) FinishCheckout(ctx context.Context, outcome domain.CheckoutOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.checkouts[outcome.ID]; !ok {
		return ErrCheckoutNotFound
	}
	o := cloneOutcome(outcome)
	m.checkouts[outcome.ID] = &o
	return nil
}

func (m *MemoryJournal) GetCheckout(ctx context.Context, checkoutID string) (*domain.CheckoutOutcome, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.checkouts[checkoutID]
	if !ok {
		return nil, nil
	}
	c := cloneOutcome(*o)
	return &c, nil
}

func cloneOutcome(o domain.CheckoutOutcome) domain.CheckoutOutcome {
	o.Lines = append([]domain.LineOutcome(nil), o.Lines...)
	return o
}
