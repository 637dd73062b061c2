// Package events announces placed orders on Kafka.
package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/checkout"
	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/order"
)

// TypeOrderCreated is the event type of placed orders.
const TypeOrderCreated = "order.created"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error
	Close() error
}

var _ checkout.Publisher = (*KafkaPublisher)(nil)

// KafkaPublisher writes order events to a Kafka topic, keyed by order
// number so events of one order stay on one partition.
type KafkaPublisher struct {
	w       messageWriter
	brokers []string
}

// NewKafkaPublisher returns a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafkaGo.Writer{
			Addr:         kafkaGo.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkaGo.LeastBytes{},
			RequiredAcks: kafkaGo.RequireOne,
		},
		brokers: brokers,
	}
}

// OrderCreated implements checkout.Publisher.
func (p *KafkaPublisher) OrderCreated(ctx context.Context, o *order.Order) error {
	msg := kafkaGo.Message{
		Key:   []byte(o.Number),
		Value: EncodeOrderCreated(o),
		Headers: []kafkaGo.Header{
			{Key: "type", Value: []byte(TypeOrderCreated)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "write %s event", TypeOrderCreated)
	}
	return nil
}

// Ping succeeds when at least one broker accepts a connection.
func (p *KafkaPublisher) Ping(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	var lastErr error
	for _, addr := range p.brokers {
		conn, err := kafkaGo.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	return errors.Wrap(lastErr, "dial kafka")
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// EncodeOrderCreated renders the order.created payload. Money amounts are
// decimal strings.
func EncodeOrderCreated(o *order.Order) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("type")
	e.Str(TypeOrderCreated)
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("number")
	e.Str(o.Number)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("paymentMethod")
	e.Str(o.PaymentMethod)
	e.FieldStart("shippingMethod")
	e.Str(o.ShippingMethod)
	e.FieldStart("email")
	e.Str(o.Email)
	e.FieldStart("subtotal")
	e.Str(o.Subtotal.String())
	e.FieldStart("shippingCost")
	e.Str(o.ShippingCost.String())
	e.FieldStart("total")
	e.Str(o.Total.String())
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("sku")
		e.Str(it.SKU)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("unitPrice")
		e.Str(it.UnitPrice.String())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
	return e.Bytes()
}
