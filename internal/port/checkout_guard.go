package port

import "context"

type CheckoutGuard interface {
	// Acquire claims key for owner, returns false if already held
	Acquire(ctx context.Context, key, owner string) (bool, error)

	// Release frees key only if it is still held by owner
	Release(ctx context.Context, key, owner string) error
}
