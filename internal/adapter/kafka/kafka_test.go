package kafka

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/trip-enrichment-etl/internal/config"
	"github.com/couchcryptid/trip-enrichment-etl/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	result := domain.EnrichmentResult{
		TripID:       "2012-04-16 08:30:00.000000123",
		DistanceText: "1,500 m",
		DurationText: "6 mins",
		DistanceKm:   1.5,
		DurationMin:  6,
	}

	msg, err := serializeToMessage(result, now)
	require.NoError(t, err)

	assert.Equal(t, []byte(result.TripID), msg.Key)

	var decoded domain.EnrichmentResult
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	if diff := cmp.Diff(result, decoded); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	want := []kafkago.Header{
		{Key: "distance_km", Value: []byte("1.5")},
		{Key: "enriched_at", Value: []byte("2024-04-26T15:10:00Z")},
	}
	assert.Equal(t, want, msg.Headers)
}

func TestNewWriter(t *testing.T) {
	cfg := &config.Config{Kafka: config.KafkaConfig{Brokers: []string{"b1:9092", "b2:9092"}, Topic: "trip-distances"}}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer w.Close()

	assert.Equal(t, "trip-distances", w.writer.Topic)
	assert.Equal(t, "b1:9092,b2:9092", w.writer.Addr.String())
	assert.IsType(t, &kafkago.Hash{}, w.writer.Balancer)
}
