// Package events publishes booking lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventType = "event-type"
	HeaderEventID   = "event-id"

	defaultMaxAttempts  = 3
	defaultBatchTimeout = 50 * time.Millisecond
	timeLayout          = time.RFC3339Nano
)

var (
	ErrNoBrokers       = errors.New("events: at least one broker is required")
	ErrEmptyTopic      = errors.New("events: topic is required")
	ErrPublisherClosed = errors.New("events: publisher is closed")
)

// messageWriter is the slice of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, messages ...kafka.Message) error
	Close() error
}

// KafkaPublisher implements rental.EventPublisher. Messages are keyed by unit id so
// events for one unit stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	mutex  sync.RWMutex
	closed bool
}

// NewKafkaPublisher builds a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cleanBrokers := make([]string, 0, len(brokers))
	for _, broker := range brokers {
		if trimmed := strings.TrimSpace(broker); trimmed != "" {
			cleanBrokers = append(cleanBrokers, trimmed)
		}
	}
	if len(cleanBrokers) == 0 {
		return nil, ErrNoBrokers
	}
	if strings.TrimSpace(topic) == "" {
		return nil, ErrEmptyTopic
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cleanBrokers...),
		Topic:                  strings.TrimSpace(topic),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            defaultMaxAttempts,
		BatchTimeout:           defaultBatchTimeout,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(writer), nil
}

func newPublisher(writer messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// Publish writes one event synchronously.
func (publisher *KafkaPublisher) Publish(ctx context.Context, event rental.BookingEvent) error {
	publisher.mutex.RLock()
	defer publisher.mutex.RUnlock()
	if publisher.closed {
		return ErrPublisherClosed
	}
	message, err := encodeMessage(event)
	if err != nil {
		return err
	}
	if err := publisher.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("events: write %s: %w", event.Type, err)
	}
	return nil
}

// Close flushes pending writes. Later Publish calls fail with ErrPublisherClosed.
func (publisher *KafkaPublisher) Close() error {
	publisher.mutex.Lock()
	defer publisher.mutex.Unlock()
	if publisher.closed {
		return nil
	}
	publisher.closed = true
	return publisher.writer.Close()
}

type bookingPayload struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	OccurredAt   string          `json:"occurred_at"`
	BookingID    string          `json:"booking_id"`
	RenterID     string          `json:"renter_id"`
	UnitID       string          `json:"unit_id"`
	Start        string          `json:"start"`
	End          string          `json:"end"`
	Granularity  string          `json:"granularity"`
	Basis        string          `json:"basis"`
	Status       string          `json:"status"`
	TotalCents   int64           `json:"total_cents"`
	FineCents    int64           `json:"fine_cents"`
	ActualReturn string          `json:"actual_return,omitempty"`
	Metadata     json.RawMessage `json:"metadata"`
}

func encodeMessage(event rental.BookingEvent) (kafka.Message, error) {
	booking := event.Booking
	payload := bookingPayload{
		EventID:     event.ID,
		EventType:   string(event.Type),
		OccurredAt:  event.OccurredAt.UTC().Format(timeLayout),
		BookingID:   booking.ID.String(),
		RenterID:    booking.RenterID.String(),
		UnitID:      booking.UnitID.String(),
		Start:       booking.Start.UTC().Format(timeLayout),
		End:         booking.End.UTC().Format(timeLayout),
		Granularity: booking.Granularity.String(),
		Basis:       string(booking.Basis),
		Status:      booking.Status.String(),
		TotalCents:  booking.TotalAmount.Int64(),
		FineCents:   booking.Fine.Int64(),
		Metadata:    json.RawMessage(booking.Metadata.String()),
	}
	if booking.ActualReturn != nil {
		payload.ActualReturn = booking.ActualReturn.UTC().Format(timeLayout)
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("events: encode %s: %w", event.Type, err)
	}
	return kafka.Message{
		Key:   []byte(booking.UnitID.String()),
		Value: value,
		Time:  event.OccurredAt.UTC(),
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.Type)},
			{Key: HeaderEventID, Value: []byte(event.ID)},
		},
	}, nil
}
