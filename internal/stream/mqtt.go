package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/storage"
)

const mqttTimeout = 10 * time.Second

// MQTTPublisher publishes day summaries to <prefix>/truck_NNN/summary
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
}

// NewMQTTPublisher connects to broker
func NewMQTTPublisher(broker, prefix string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(fmt.Sprintf("truck-telemetry-%d", time.Now().UnixNano())).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttTimeout)

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return &MQTTPublisher{client: c, prefix: prefix}, nil
}

// SummaryTopic is the topic a truck's summaries are published to
func SummaryTopic(prefix string, truckID int) string {
	return fmt.Sprintf("%s/truck_%03d/summary", prefix, truckID)
}

func (m *MQTTPublisher) PublishDay(ctx context.Context, rec storage.DayRecord) error {
	payload, err := json.Marshal(Summarize(rec))
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	token := m.client.Publish(SummaryTopic(m.prefix, rec.TruckID), 1, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish truck %d day %d: %w", rec.TruckID, rec.DayIndex, err)
	}
	return nil
}

func (m *MQTTPublisher) Close() error {
	m.client.Disconnect(250)
	return nil
}
