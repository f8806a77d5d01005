package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/market-checkout/internal/core/domain"
)

func newTestClient(t *testing.T, mux *http.ServeMux, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	return NewClient(cfg, zap.NewNop())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestFetchCart_MapsLines(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"error":   false,
			"message": "ok",
			"lines": []map[string]any{
				{"line_id": "c1", "item_id": "p1", "name": "Kopi", "unit_price": 10000, "photo": "kopi.jpg",
					"quantity": 2, "stock": 5, "store_name": "Toko A", "store_address": "Jl. A", "store_lat": -6.2, "store_lng": 106.8},
				{"line_id": "c2", "item_id": "p2", "name": "Teh", "unit_price": 5000, "quantity": 1, "stock": 1},
			},
		})
	})
	client := newTestClient(t, mux, Config{})

	lines, err := client.FetchCart(context.Background(), "tok-1")
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, domain.CartLine{
		LineID:         "c1",
		ItemID:         "p1",
		Name:           "Kopi",
		UnitPrice:      10000,
		PhotoRef:       "kopi.jpg",
		Quantity:       2,
		StockAvailable: 5,
		StoreName:      "Toko A",
		StoreAddress:   "Jl. A",
		StoreLocation:  &domain.Location{Lat: -6.2, Lng: 106.8},
	}, lines[0])
	assert.Nil(t, lines[1].StoreLocation)
}

func TestFetchCart_ApplicationError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"error": true, "message": "Token kadaluarsa"})
	})
	client := newTestClient(t, mux, Config{})

	_, err := client.FetchCart(context.Background(), "tok-1")

	var appErr *domain.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Token kadaluarsa", appErr.Message)
	assert.Equal(t, "fetch cart", appErr.Op)
}

func TestFetchCart_ClientErrorStatusWithEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": true, "message": "Unauthorized"})
	})
	client := newTestClient(t, mux, Config{})

	_, err := client.FetchCart(context.Background(), "bad")
	assert.True(t, domain.IsApplicationError(err))
	assert.Equal(t, "Unauthorized", domain.ErrorMessage(err))
}

func TestFetchCart_ServerErrorIsNetworkError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	client := newTestClient(t, mux, Config{})

	_, err := client.FetchCart(context.Background(), "tok")
	assert.True(t, domain.IsNetworkError(err))
}

func TestFetchCart_InvalidBodyIsNetworkError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	})
	client := newTestClient(t, mux, Config{})

	_, err := client.FetchCart(context.Background(), "tok")
	assert.True(t, domain.IsNetworkError(err))
}

func TestTimeoutIsNetworkError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	client := newTestClient(t, mux, Config{Timeout: 50 * time.Millisecond})

	err := client.PlaceOrder(context.Background(), domain.PlaceOrderRequest{Token: "t", ItemID: "p1", Quantity: 1})
	assert.True(t, domain.IsNetworkError(err))
}

func TestPlaceOrder_SendsAllFields(t *testing.T) {
	var got placeOrderRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusCreated, map[string]any{"error": false, "message": "Pesanan dibuat"})
	})
	client := newTestClient(t, mux, Config{})

	err := client.PlaceOrder(context.Background(), domain.PlaceOrderRequest{
		Token:         "tok-1",
		ItemID:        "p1",
		Quantity:      2,
		PaymentMethod: "transfer",
		Address:       "Jl. Sudirman 10",
		LineSubtotal:  20000,
		GrandTotal:    16000,
		ShippingMode:  domain.ShippingDelivered,
		Lat:           -6.2,
		Lng:           106.8,
	})
	require.NoError(t, err)

	assert.Equal(t, placeOrderRequest{
		ItemID:        "p1",
		Quantity:      2,
		PaymentMethod: "transfer",
		Address:       "Jl. Sudirman 10",
		Subtotal:      20000,
		Total:         16000,
		ShippingMode:  "delivered",
		Lat:           -6.2,
		Lng:           106.8,
	}, got)
}

func TestUpdateCartQuantity(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /cart/{lineID}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "c 1", r.PathValue("lineID"))
		var body updateQuantityRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Quantity > 3 {
			writeJSON(w, http.StatusOK, map[string]any{"error": true, "message": "Melebihi stok"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"error": false})
	})
	client := newTestClient(t, mux, Config{})

	require.NoError(t, client.UpdateCartQuantity(context.Background(), "tok", "c 1", 2))

	err := client.UpdateCartQuantity(context.Background(), "tok", "c 1", 9)
	assert.Equal(t, "Melebihi stok", domain.ErrorMessage(err))
}

func TestLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		var body loginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Password != "rahasia" {
			writeJSON(w, http.StatusOK, map[string]any{"error": true, "message": "Email atau password salah"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"error": false,
			"user":  map[string]any{"id": "u-7", "name": "Siti", "token": "jwt", "role": "seller", "promo_claimed": true},
		})
	})
	client := newTestClient(t, mux, Config{})

	sess, err := client.Login(context.Background(), "siti@example.com", "rahasia")
	require.NoError(t, err)
	assert.Equal(t, domain.Session{
		UserID: "u-7", Name: "Siti", Token: "jwt", IsLoggedIn: true, Role: domain.RoleSeller, Promo: domain.PromoClaimed,
	}, sess)

	_, err = client.Login(context.Background(), "siti@example.com", "salah")
	assert.Equal(t, "Email atau password salah", domain.ErrorMessage(err))
}

func TestFetchTransactionHistory(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /transactions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u-7", r.URL.Query().Get("user_id"))
		writeJSON(w, http.StatusOK, map[string]any{
			"error": false,
			"history": []map[string]any{
				{"id": "t1", "item_id": "p1", "item_name": "Kopi", "quantity": 2, "total": 16000,
					"payment_method": "cod", "shipping_mode": "pickup", "status": "completed", "created_at": created},
			},
		})
	})
	client := newTestClient(t, mux, Config{})

	records, err := client.FetchTransactionHistory(context.Background(), "tok", "u-7")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.OrderStatusCompleted, records[0].Status)
	assert.Equal(t, domain.ShippingPickupAtStore, records[0].ShippingMode)
	assert.True(t, created.Equal(records[0].CreatedAt))
}

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	client := newTestClient(t, mux, Config{MaxFailures: 2, OpenTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := client.FetchCart(context.Background(), "tok")
		require.True(t, domain.IsNetworkError(err))
	}
	assert.False(t, client.Healthy())

	_, err := client.FetchCart(context.Background(), "tok")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, domain.IsNetworkError(err))
	assert.Equal(t, int32(2), hits.Load())
}

func TestApplicationErrorsDoNotOpenCircuit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"error": true, "message": "Stok habis"})
	})
	client := newTestClient(t, mux, Config{MaxFailures: 1})

	for i := 0; i < 3; i++ {
		err := client.PlaceOrder(context.Background(), domain.PlaceOrderRequest{Token: "t", ItemID: "p"})
		assert.True(t, domain.IsApplicationError(err))
	}
	assert.True(t, client.Healthy())
}

func TestPlaceOrder_ServerErrorKeepsEnvelopeMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": true, "message": "Stok produk tidak mencukupi"})
	})
	client := newTestClient(t, mux, Config{MaxFailures: 2, OpenTimeout: time.Minute})

	err := client.PlaceOrder(context.Background(), domain.PlaceOrderRequest{Token: "t", ItemID: "p1", Quantity: 1})

	var appErr *domain.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.False(t, domain.IsNetworkError(err))
	assert.Equal(t, "Stok produk tidak mencukupi", appErr.Message)
	assert.Equal(t, "place order", appErr.Op)

	// still a server failure as far as the breaker is concerned
	_ = client.PlaceOrder(context.Background(), domain.PlaceOrderRequest{Token: "t", ItemID: "p1", Quantity: 1})
	assert.False(t, client.Healthy())
}
