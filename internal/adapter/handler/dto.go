package handler

import (
	"time"

	"github.com/rl1809/market-checkout/internal/core/domain"
)

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileRequest struct {
	Name string `json:"name"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type CourierRequest struct {
	Name string `json:"name"`
	Fee  int64  `json:"fee"`
}

type CheckoutRequest struct {
	PaymentMethod string          `json:"payment_method"`
	ShippingMode  string          `json:"shipping_mode"`
	Address       string          `json:"address"`
	Courier       *CourierRequest `json:"courier,omitempty"`
}

func (r CheckoutRequest) toDomain() domain.CheckoutRequest {
	req := domain.CheckoutRequest{
		PaymentMethod: r.PaymentMethod,
		ShippingMode:  domain.ShippingMode(r.ShippingMode),
		Address:       r.Address,
	}
	if r.Courier != nil {
		req.Courier = &domain.Courier{Name: r.Courier.Name, Fee: r.Courier.Fee}
	}
	return req
}

type SessionView struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	IsLoggedIn bool   `json:"logged_in"`
	Role       string `json:"role"`
	Promo      string `json:"promo"`
}

// newSessionView drops the token, it never leaves the agent.
func newSessionView(s domain.Session) SessionView {
	return SessionView{
		UserID:     s.UserID,
		Name:       s.Name,
		IsLoggedIn: s.IsLoggedIn,
		Role:       string(s.Role),
		Promo:      string(s.Promo),
	}
}

type CartLineView struct {
	LineID         string   `json:"line_id"`
	ItemID         string   `json:"item_id"`
	Name           string   `json:"name"`
	UnitPrice      int64    `json:"unit_price"`
	Photo          string   `json:"photo,omitempty"`
	Quantity       int      `json:"quantity"`
	StockAvailable int      `json:"stock"`
	Subtotal       int64    `json:"subtotal"`
	StoreName      string   `json:"store_name"`
	StoreAddress   string   `json:"store_address,omitempty"`
	StoreLat       *float64 `json:"store_lat,omitempty"`
	StoreLng       *float64 `json:"store_lng,omitempty"`
}

type StoreGroupView struct {
	StoreName string         `json:"store_name"`
	Lines     []CartLineView `json:"lines"`
}

type CartView struct {
	Stores   []StoreGroupView `json:"stores"`
	Subtotal int64            `json:"subtotal"`
	Stale    bool             `json:"stale"`
}

func newCartLineView(l domain.CartLine) CartLineView {
	v := CartLineView{
		LineID:         l.LineID,
		ItemID:         l.ItemID,
		Name:           l.Name,
		UnitPrice:      l.UnitPrice,
		Photo:          l.PhotoRef,
		Quantity:       l.Quantity,
		StockAvailable: l.StockAvailable,
		Subtotal:       l.Subtotal(),
		StoreName:      l.StoreName,
		StoreAddress:   l.StoreAddress,
	}
	if l.StoreLocation != nil {
		lat, lng := l.StoreLocation.Lat, l.StoreLocation.Lng
		v.StoreLat, v.StoreLng = &lat, &lng
	}
	return v
}

func newCartView(c domain.Cart, stale bool) CartView {
	groups := c.GroupByStore()
	stores := make([]StoreGroupView, len(groups))
	for i, g := range groups {
		lines := make([]CartLineView, len(g.Lines))
		for j, l := range g.Lines {
			lines[j] = newCartLineView(l)
		}
		stores[i] = StoreGroupView{StoreName: g.StoreName, Lines: lines}
	}
	return CartView{Stores: stores, Subtotal: c.Subtotal(), Stale: stale}
}

type TotalsView struct {
	Subtotal   int64 `json:"subtotal"`
	Ongkir     int64 `json:"ongkir"`
	ServiceFee int64 `json:"service_fee"`
	Discount   int64 `json:"discount"`
	GrandTotal int64 `json:"grand_total"`
}

type LineOutcomeView struct {
	LineID   string `json:"line_id"`
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
	Subtotal int64  `json:"subtotal"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
}

type CheckoutView struct {
	ID               string            `json:"id"`
	Status           string            `json:"status"`
	Summary          string            `json:"summary"`
	ShippingMode     string            `json:"shipping_mode"`
	Totals           TotalsView        `json:"totals"`
	Lines            []LineOutcomeView `json:"lines"`
	Placed           int               `json:"placed"`
	PromoApplied     bool              `json:"promo_applied"`
	LocationFallback bool              `json:"location_fallback"`
	CreatedAt        time.Time         `json:"created_at"`
}

func newCheckoutView(o domain.CheckoutOutcome) CheckoutView {
	lines := make([]LineOutcomeView, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = LineOutcomeView{
			LineID:   l.LineID,
			ItemID:   l.ItemID,
			Quantity: l.Quantity,
			Subtotal: l.Subtotal,
			Status:   string(l.Status),
			Reason:   l.Reason,
		}
	}
	return CheckoutView{
		ID:           o.ID,
		Status:       string(o.Status),
		Summary:      o.Summary(),
		ShippingMode: string(o.ShippingMode),
		Totals: TotalsView{
			Subtotal:   o.Totals.Subtotal,
			Ongkir:     o.Totals.Ongkir,
			ServiceFee: o.Totals.ServiceFee,
			Discount:   o.Totals.Discount,
			GrandTotal: o.Totals.GrandTotal,
		},
		Lines:            lines,
		Placed:           o.Placed,
		PromoApplied:     o.PromoApplied,
		LocationFallback: o.LocationFallback,
		CreatedAt:        o.CreatedAt,
	}
}

// CheckoutResponse carries the screen state next to the full outcome, since
// the error state of a partial checkout has no data.
type CheckoutResponse struct {
	View    domain.ViewState[CheckoutView] `json:"view"`
	Outcome CheckoutView                   `json:"outcome"`
}

type TransactionView struct {
	ID            string    `json:"id"`
	ItemID        string    `json:"item_id"`
	ItemName      string    `json:"item_name"`
	Photo         string    `json:"photo,omitempty"`
	Quantity      int       `json:"quantity"`
	Total         int64     `json:"total"`
	PaymentMethod string    `json:"payment_method"`
	ShippingMode  string    `json:"shipping_mode"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

func newHistoryView(records []domain.TransactionRecord) []TransactionView {
	out := make([]TransactionView, len(records))
	for i, r := range records {
		out[i] = TransactionView{
			ID:            r.ID,
			ItemID:        r.ItemID,
			ItemName:      r.ItemName,
			Photo:         r.PhotoRef,
			Quantity:      r.Quantity,
			Total:         r.Total,
			PaymentMethod: r.PaymentMethod,
			ShippingMode:  string(r.ShippingMode),
			Status:        string(r.Status),
			CreatedAt:     r.CreatedAt,
		}
	}
	return out
}
