package port

import (
	"context"

	"github.com/rl1809/market-checkout/internal/core/domain"
)

// MarketplaceAPI is the remote REST backend. Failures are reported as
// *domain.NetworkError or *domain.ApplicationError.
type MarketplaceAPI interface {
	// Login authenticates and returns a logged-in session
	Login(ctx context.Context, email, password string) (domain.Session, error)

	// FetchCart returns the cart lines in server order
	FetchCart(ctx context.Context, token string) ([]domain.CartLine, error)

	// UpdateCartQuantity sets the quantity of one line; bounds are enforced server side
	UpdateCartQuantity(ctx context.Context, token, lineID string, quantity int) error

	// PlaceOrder places the order for a single cart line
	PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) error

	// FetchTransactionHistory returns past orders of the user
	FetchTransactionHistory(ctx context.Context, token, userID string) ([]domain.TransactionRecord, error)
}
