package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/johnnewto/seamap/pkg/models"
)

// KafkaPublisher forwards every new waypoint to the waypoint topic, keyed by vessel
// so one vessel's events stay on one partition in order.
type KafkaPublisher struct {
	writer KafkaWriter
	logger *zap.Logger
}

func NewKafkaPublisher(writer KafkaWriter, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, logger: logger}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Publish(ctx context.Context, ev models.WaypointEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal waypoint event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.ShipName),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}

	p.logger.Debug("Sent waypoint", zap.String("vessel", ev.ShipName), zap.Int64("seq", ev.Seq))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
