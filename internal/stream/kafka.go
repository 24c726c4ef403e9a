package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/storage"
)

// KafkaPublisher writes one message per window keyed by truck id, so a
// truck's windows stay ordered within a partition
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a synchronous writer for topic
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    500,
		Async:        false,
	}}
}

// dayMessages encodes all windows of a truck-day
func dayMessages(rec storage.DayRecord) ([]kafka.Message, error) {
	key := []byte(strconv.Itoa(rec.TruckID))
	msgs := make([]kafka.Message, len(rec.Features))
	for w := range rec.Features {
		ev := NewWindowEvent(rec, w)
		payload, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal window %d: %w", w, err)
		}
		msgs[w] = kafka.Message{Key: key, Value: payload, Time: ev.Timestamp}
	}
	return msgs, nil
}

func (k *KafkaPublisher) PublishDay(ctx context.Context, rec storage.DayRecord) error {
	msgs, err := dayMessages(rec)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write truck %d day %d: %w", rec.TruckID, rec.DayIndex, err)
	}
	log.Debug().Int("truck_id", rec.TruckID).Int("day", rec.DayIndex).Int("messages", len(msgs)).Msg("Published to Kafka")
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}
