package domain

import "time"

// PlaceOrderRequest is one remote order placement for a single cart line.
type PlaceOrderRequest struct {
	Token         string
	ItemID        string
	Quantity      int
	PaymentMethod string
	Address       string
	LineSubtotal  int64
	GrandTotal    int64
	ShippingMode  ShippingMode
	Lat           float64
	Lng           float64
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type TransactionRecord struct {
	ID            string
	ItemID        string
	ItemName      string
	PhotoRef      string
	Quantity      int
	Total         int64
	PaymentMethod string
	ShippingMode  ShippingMode
	Status        OrderStatus
	CreatedAt     time.Time
}
