package port

import (
	"context"

	"github.com/rl1809/market-checkout/internal/core/domain"
)

type EventPublisher interface {
	// PublishCheckout emits the terminal outcome of a checkout
	PublishCheckout(ctx context.Context, outcome domain.CheckoutOutcome) error
}
