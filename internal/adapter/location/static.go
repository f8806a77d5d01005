package location

import (
	"context"

	"github.com/rl1809/market-checkout/internal/core/domain"
)

// Static reports a fixed device position configured at startup. A nil
// position means the device has no location fix.
type Static struct {
	loc *domain.Location
}

func NewStatic(loc *domain.Location) *Static {
	return &Static{loc: loc}
}

func (s *Static) CurrentLocation(ctx context.Context) (domain.Location, error) {
	if err := ctx.Err(); err != nil {
		return domain.Location{}, err
	}
	if s.loc == nil {
		return domain.Location{}, domain.ErrLocationUnavailable
	}
	return *s.loc, nil
}
