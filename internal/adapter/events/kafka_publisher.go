package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/rl1809/market-checkout/internal/core/domain"
)

const DefaultTopic = "checkout-events"

type Event struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    CheckoutPayload `json:"payload"`
}

type CheckoutPayload struct {
	CheckoutID       string        `json:"checkout_id"`
	UserID           string        `json:"user_id"`
	Status           string        `json:"status"`
	ShippingMode     string        `json:"shipping_mode"`
	Placed           int           `json:"placed"`
	Total            int           `json:"total"`
	GrandTotal       int64         `json:"grand_total"`
	PromoApplied     bool          `json:"promo_applied"`
	LocationFallback bool          `json:"location_fallback"`
	Lines            []LinePayload `json:"lines"`
}

type LinePayload struct {
	LineID   string `json:"line_id"`
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
	Subtotal int64  `json:"subtotal"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
}

// NewCheckoutEvent builds the event for a finished checkout. The type is
// checkout.completed, checkout.partial or checkout.failed.
func NewCheckoutEvent(o domain.CheckoutOutcome) Event {
	eventType := "checkout.failed"
	switch o.Status {
	case domain.CheckoutStatusSucceeded:
		eventType = "checkout.completed"
	case domain.CheckoutStatusPartial:
		eventType = "checkout.partial"
	}

	lines := make([]LinePayload, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = LinePayload{
			LineID:   l.LineID,
			ItemID:   l.ItemID,
			Quantity: l.Quantity,
			Subtotal: l.Subtotal,
			Status:   string(l.Status),
			Reason:   l.Reason,
		}
	}

	return Event{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: o.UpdatedAt,
		Payload: CheckoutPayload{
			CheckoutID:       o.ID,
			UserID:           o.UserID,
			Status:           string(o.Status),
			ShippingMode:     string(o.ShippingMode),
			Placed:           o.Placed,
			Total:            len(o.Lines),
			GrandTotal:       o.Totals.GrandTotal,
			PromoApplied:     o.PromoApplied,
			LocationFallback: o.LocationFallback,
			Lines:            lines,
		},
	}
}

// KafkaPublisher writes checkout events keyed by user id so that one user's
// events stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			WriteTimeout:           5 * time.Second,
		},
	}
}

func (p *KafkaPublisher) PublishCheckout(ctx context.Context, o domain.CheckoutOutcome) error {
	msg, err := newMessage(NewCheckoutEvent(o))
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func newMessage(e Event) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.Payload.UserID),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.EventType)},
		},
	}, nil
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishCheckout(ctx context.Context, o domain.CheckoutOutcome) error {
	return nil
}
