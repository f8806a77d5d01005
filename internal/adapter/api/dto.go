package api

import (
	"time"

	"github.com/rl1809/market-checkout/internal/core/domain"
)

type envelope struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Token        string `json:"token"`
	Role         string `json:"role"`
	PromoClaimed bool   `json:"promo_claimed"`
	PromoUsed    bool   `json:"promo_used"`
}

type loginResponse struct {
	User userDTO `json:"user"`
}

type cartLineDTO struct {
	LineID       string   `json:"line_id"`
	ItemID       string   `json:"item_id"`
	Name         string   `json:"name"`
	UnitPrice    int64    `json:"unit_price"`
	Photo        string   `json:"photo"`
	Quantity     int      `json:"quantity"`
	Stock        int      `json:"stock"`
	StoreName    string   `json:"store_name,omitempty"`
	StoreAddress string   `json:"store_address,omitempty"`
	StoreLat     *float64 `json:"store_lat,omitempty"`
	StoreLng     *float64 `json:"store_lng,omitempty"`
}

type cartResponse struct {
	Lines []cartLineDTO `json:"lines"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type placeOrderRequest struct {
	ItemID        string  `json:"item_id"`
	Quantity      int     `json:"quantity"`
	PaymentMethod string  `json:"payment_method"`
	Address       string  `json:"address"`
	Subtotal      int64   `json:"subtotal"`
	Total         int64   `json:"total"`
	ShippingMode  string  `json:"shipping_mode"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
}

type transactionDTO struct {
	ID            string    `json:"id"`
	ItemID        string    `json:"item_id"`
	ItemName      string    `json:"item_name"`
	Photo         string    `json:"photo"`
	Quantity      int       `json:"quantity"`
	Total         int64     `json:"total"`
	PaymentMethod string    `json:"payment_method"`
	ShippingMode  string    `json:"shipping_mode"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type historyResponse struct {
	History []transactionDTO `json:"history"`
}

func (u userDTO) toDomain() domain.Session {
	s := domain.Session{
		UserID:     u.ID,
		Name:       u.Name,
		Token:      u.Token,
		IsLoggedIn: true,
		Role:       domain.Role(u.Role),
		Promo:      domain.PromoUnclaimed,
	}
	if s.Role == "" {
		s.Role = domain.RoleCustomer
	}

	switch {
	case u.PromoClaimed:
		s.Promo = domain.PromoClaimed
	case u.PromoUsed:
		s.Promo = domain.PromoUsed
	}
	return s
}

func (d cartLineDTO) toDomain() domain.CartLine {
	line := domain.CartLine{
		LineID:         d.LineID,
		ItemID:         d.ItemID,
		Name:           d.Name,
		UnitPrice:      d.UnitPrice,
		PhotoRef:       d.Photo,
		Quantity:       d.Quantity,
		StockAvailable: d.Stock,
		StoreName:      d.StoreName,
		StoreAddress:   d.StoreAddress,
	}
	if d.StoreLat != nil && d.StoreLng != nil {
		line.StoreLocation = &domain.Location{Lat: *d.StoreLat, Lng: *d.StoreLng}
	}
	return line
}

func (d transactionDTO) toDomain() domain.TransactionRecord {
	return domain.TransactionRecord{
		ID:            d.ID,
		ItemID:        d.ItemID,
		ItemName:      d.ItemName,
		PhotoRef:      d.Photo,
		Quantity:      d.Quantity,
		Total:         d.Total,
		PaymentMethod: d.PaymentMethod,
		ShippingMode:  domain.ShippingMode(d.ShippingMode),
		Status:        domain.OrderStatus(d.Status),
		CreatedAt:     d.CreatedAt,
	}
}
