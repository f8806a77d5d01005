package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/market-checkout/internal/adapter/events"
	"github.com/rl1809/market-checkout/internal/adapter/location"
	"github.com/rl1809/market-checkout/internal/adapter/storage"
	"github.com/rl1809/market-checkout/internal/core/domain"
	"github.com/rl1809/market-checkout/internal/core/service"
)

const (
	deviceID      = "stress-device"
	cartLines     = 5
	totalRequests = 50
	orderLatency  = 20 * time.Millisecond
)

// countingAPI accepts every order after a fixed latency and counts them.
type countingAPI struct {
	lines  []domain.CartLine
	placed atomic.Int32
}

func (c *countingAPI) Login(ctx context.Context, email, password string) (domain.Session, error) {
	return domain.Session{UserID: "stress-user", Name: "Stress", Token: "stress-token"}, nil
}

func (c *countingAPI) FetchCart(ctx context.Context, token string) ([]domain.CartLine, error) {
	return append([]domain.CartLine(nil), c.lines...), nil
}

func (c *countingAPI) UpdateCartQuantity(ctx context.Context, token, lineID string, quantity int) error {
	return nil
}

func (c *countingAPI) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) error {
	select {
	case <-time.After(orderLatency):
	case <-ctx.Done():
		return &domain.NetworkError{Op: "place order", Err: ctx.Err()}
	}
	c.placed.Add(1)
	return nil
}

func (c *countingAPI) FetchTransactionHistory(ctx context.Context, token, userID string) ([]domain.TransactionRecord, error) {
	return nil, nil
}

func main() {
	ctx := context.Background()
	logger := zap.NewNop()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	// Clear previous test data
	keys, _ := rdb.Keys(ctx, "checkout:stress-user:*").Result()
	for _, k := range keys {
		rdb.Del(ctx, k)
	}
	rdb.Del(ctx, "session:"+deviceID)

	api := &countingAPI{}
	for i := 0; i < cartLines; i++ {
		api.lines = append(api.lines, domain.CartLine{
			LineID:         fmt.Sprintf("line-%d", i),
			ItemID:         fmt.Sprintf("item-%d", i),
			UnitPrice:      10000,
			Quantity:       1,
			StockAvailable: 10,
			StoreName:      fmt.Sprintf("store-%d", i%2),
		})
	}

	redisAdapter := storage.NewRedisAdapter(rdb, deviceID, time.Minute)
	session, err := service.NewSessionService(ctx, api, redisAdapter, logger)
	if err != nil {
		log.Fatalf("failed to load session: %v", err)
	}
	if _, err := session.Login(ctx, "stress@example.com", "stress"); err != nil {
		log.Fatalf("failed to login: %v", err)
	}

	cart := service.NewCartService(api, logger)
	if _, err := cart.Load(ctx, session.Current().Token); err != nil {
		log.Fatalf("failed to load cart: %v", err)
	}

	checkout := service.NewCheckoutService(api, session, cart, redisAdapter, storage.NewMemoryJournal(),
		events.NopPublisher{}, location.NewStatic(nil), service.CheckoutConfig{CallTimeout: time.Second}, logger)

	// Counters
	var successCount, duplicateCount, staleCount, otherCount atomic.Int32

	// Every request submits the same cart at the same time
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := checkout.Checkout(ctx, domain.CheckoutRequest{
				PaymentMethod: "cod",
				ShippingMode:  domain.ShippingPickupAtStore,
			})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrDuplicateCheckout):
				duplicateCount.Add(1)
			case errors.Is(err, domain.ErrStaleCart):
				staleCount.Add(1)
			default:
				otherCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	placed := api.placed.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Cart Lines:       %d\n", cartLines)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Duplicate:        %d\n", duplicateCount.Load())
	fmt.Printf("Stale Cart:       %d\n", staleCount.Load())
	fmt.Printf("Other Errors:     %d\n", otherCount.Load())
	fmt.Printf("Orders Placed:    %d\n", placed)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Assertions
	if success == 1 && otherCount.Load() == 0 {
		fmt.Println("PASS: Exactly 1 checkout went through")
	} else {
		fmt.Printf("FAIL: Expected 1 checkout, got %d (other errors %d)\n", success, otherCount.Load())
	}

	if placed == cartLines {
		fmt.Printf("PASS: Exactly %d orders placed\n", cartLines)
	} else {
		fmt.Printf("FAIL: Expected %d orders placed, got %d\n", cartLines, placed)
	}
}
