package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/trip-enrichment-etl/internal/config"
	"github.com/couchcryptid/trip-enrichment-etl/internal/domain"
)

// Writer produces enrichment results to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured results topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish writes one result keyed by trip identifier, so every result for a
// trip lands on the same partition.
func (w *Writer) Publish(ctx context.Context, result domain.EnrichmentResult) error {
	msg, err := serializeToMessage(result, domain.Now())
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish result for trip %s: %w", result.TripID, err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an EnrichmentResult into a Kafka message.
func serializeToMessage(result domain.EnrichmentResult, enrichedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize enrichment result: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(result.TripID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "distance_km", Value: []byte(strconv.FormatFloat(result.DistanceKm, 'f', -1, 64))},
			{Key: "enriched_at", Value: []byte(enrichedAt.Format(time.RFC3339))},
		},
	}, nil
}
