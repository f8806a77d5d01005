package port

import (
	"context"

	"github.com/rl1809/market-checkout/internal/core/domain"
)

type CheckoutJournal interface {
	// BeginCheckout records a new attempt with all lines pending
	BeginCheckout(ctx context.Context, outcome domain.CheckoutOutcome) error

	// RecordLine stores the result of one line
	RecordLine(ctx context.Context, checkoutID string, line domain.LineOutcome) error

	// FinishCheckout stores the aggregate status and placed count
	FinishCheckout(ctx context.Context, outcome domain.CheckoutOutcome) error

	// GetCheckout returns a recorded attempt, nil if unknown
	GetCheckout(ctx context.Context, checkoutID string) (*domain.CheckoutOutcome, error)
}
