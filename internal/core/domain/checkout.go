package domain

import (
	"fmt"
	"time"
)

type ShippingMode string

const (
	ShippingDelivered     ShippingMode = "delivered"
	ShippingPickupAtStore ShippingMode = "pickup"
)

const (
	ServiceFee    int64 = 1000
	PromoDiscount int64 = 20000
)

type Courier struct {
	Name string
	Fee  int64
}

type CheckoutRequest struct {
	PaymentMethod string
	ShippingMode  ShippingMode
	Address       string
	Courier       *Courier
}

func (r CheckoutRequest) Validate() error {
	if r.PaymentMethod == "" {
		return ErrMissingPayment
	}

	switch r.ShippingMode {
	case ShippingDelivered:
		if r.Address == "" {
			return ErrMissingAddress
		}
		if r.Courier == nil || r.Courier.Name == "" {
			return ErrMissingCourier
		}
	case ShippingPickupAtStore:
	default:
		return ErrInvalidShipping
	}

	return nil
}

func (r CheckoutRequest) CourierFee() int64 {
	if r.ShippingMode != ShippingDelivered || r.Courier == nil {
		return 0
	}
	return r.Courier.Fee
}

type Totals struct {
	Subtotal   int64
	Ongkir     int64
	ServiceFee int64
	Discount   int64
	GrandTotal int64
}

// ComputeTotals applies shipping, service fee and promo discount in that
// order. GrandTotal never goes below zero.
func ComputeTotals(subtotal int64, mode ShippingMode, courierFee int64, promoClaimed bool) Totals {
	t := Totals{Subtotal: subtotal}

	if mode == ShippingDelivered {
		t.Ongkir = courierFee
		t.ServiceFee = ServiceFee
	}
	if promoClaimed {
		t.Discount = PromoDiscount
	}

	t.GrandTotal = max(0, t.Subtotal+t.Ongkir+t.ServiceFee-t.Discount)
	return t
}

type LineStatus string

const (
	LineStatusPending   LineStatus = "pending"
	LineStatusSucceeded LineStatus = "succeeded"
	LineStatusFailed    LineStatus = "failed"
)

type LineOutcome struct {
	LineID   string
	ItemID   string
	Quantity int
	Subtotal int64
	Status   LineStatus
	Reason   string
}

type CheckoutStatus string

const (
	CheckoutStatusPending   CheckoutStatus = "pending"
	CheckoutStatusSucceeded CheckoutStatus = "succeeded"
	CheckoutStatusPartial   CheckoutStatus = "partial"
	CheckoutStatusFailed    CheckoutStatus = "failed"
)

type CheckoutOutcome struct {
	ID               string
	UserID           string
	ShippingMode     ShippingMode
	Status           CheckoutStatus
	Totals           Totals
	Lines            []LineOutcome
	Placed           int
	Location         Location
	LocationFallback bool // device location was unknown and (0,0) was sent
	PromoApplied     bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func NewCheckoutOutcome(id, userID string, mode ShippingMode, lines []CartLine, totals Totals) CheckoutOutcome {
	outcomes := make([]LineOutcome, len(lines))
	for i, l := range lines {
		outcomes[i] = LineOutcome{
			LineID:   l.LineID,
			ItemID:   l.ItemID,
			Quantity: l.Quantity,
			Subtotal: l.Subtotal(),
			Status:   LineStatusPending,
		}
	}

	now := time.Now()
	return CheckoutOutcome{
		ID:           id,
		UserID:       userID,
		ShippingMode: mode,
		Status:       CheckoutStatusPending,
		Totals:       totals,
		Lines:        outcomes,
		PromoApplied: totals.Discount > 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Finalize counts placed lines and derives the aggregate status. Lines still
// pending count as not placed.
func (o *CheckoutOutcome) Finalize() {
	o.Placed = 0
	for _, l := range o.Lines {
		if l.Status == LineStatusSucceeded {
			o.Placed++
		}
	}

	switch {
	case len(o.Lines) > 0 && o.Placed == len(o.Lines):
		o.Status = CheckoutStatusSucceeded
	case o.Placed > 0:
		o.Status = CheckoutStatusPartial
	default:
		o.Status = CheckoutStatusFailed
	}
	o.UpdatedAt = time.Now()
}

func (o CheckoutOutcome) Succeeded() bool {
	return o.Status == CheckoutStatusSucceeded
}

func (o CheckoutOutcome) Summary() string {
	return fmt.Sprintf("%d of %d orders placed", o.Placed, len(o.Lines))
}

// FirstFailure returns the reason of the first failed line, if any.
func (o CheckoutOutcome) FirstFailure() string {
	for _, l := range o.Lines {
		if l.Status == LineStatusFailed {
			return l.Reason
		}
	}
	return ""
}
