package port

import (
	"context"

	"github.com/rl1809/market-checkout/internal/core/domain"
)

type LocationProvider interface {
	// CurrentLocation returns the device position or domain.ErrLocationUnavailable
	CurrentLocation(ctx context.Context) (domain.Location, error)
}
