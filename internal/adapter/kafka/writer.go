package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/radar-accumulation-service/internal/config"
	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of kafkago.Writer used by Notifier.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Notifier announces new tile timestamps on a Kafka topic so tile caches can
// refresh. It implements pipeline.WatermarkStore and is usually fanned out
// alongside the SQL watermark store.
type Notifier struct {
	writer messageWriter
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the configured tiles topic.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTilesTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchFlushInterval,
	}
	return &Notifier{writer: w, logger: logger}
}

// RecordLast publishes a TileUpdate for paramKey. Messages are keyed by param
// key so updates of one channel stay ordered within a partition.
func (n *Notifier) RecordLast(ctx context.Context, paramKey string, ts time.Time) error {
	msg, err := serializeToMessage(domain.NewTileUpdate(paramKey, ts))
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish tile update for %s: %w", paramKey, err)
	}
	n.logger.Debug("tile update published", "param_key", paramKey, "timestamp", ts.UTC().Format(time.RFC3339))
	return nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals a TileUpdate into a Kafka message.
func serializeToMessage(u domain.TileUpdate) (kafkago.Message, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize tile update: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(u.ParamKey),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "param_key", Value: []byte(u.ParamKey)},
			{Key: "generated_at", Value: []byte(u.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
