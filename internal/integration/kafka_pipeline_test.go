//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/accident-risk-etl/internal/adapter/kafka"
	"github.com/couchcryptid/accident-risk-etl/internal/config"
	"github.com/couchcryptid/accident-risk-etl/internal/domain"
	"github.com/couchcryptid/accident-risk-etl/internal/observability"
	"github.com/couchcryptid/accident-risk-etl/internal/pipeline"
)

const testTopic = "test-enriched-accidents"

const accidentsCSV = `idacidente;data;latitude;longitude;feridos;mortes
1;2023-01-02;-30.03;-51.22;2;1
2;2023-01-03;-30.05;-51.18;0;0
3;2023-01-04;;-51.20;1;0
4;2023-01-05;-30.10;-51.15;4;0
5;2023-01-06;-30.12;-51.13;abc;1
6;2023-01-07;-30.01;-51.25;1;2
`

type stringSource string

func (s stringSource) Open(_ context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(s))), nil
}

// publishedMessage holds a deserialized message read from the topic.
type publishedMessage struct {
	Record  domain.EnrichedRecord
	Key     string
	Headers map[string]string
}

// readPublished reads a single message from the consumer and deserializes it.
func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var rec domain.EnrichedRecord
	require.NoError(t, json.Unmarshal(msg.Value, &rec), "unmarshal message")

	return publishedMessage{Record: rec, Key: string(msg.Key), Headers: headers}
}

func newConsumer(t *testing.T, broker, group string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestKafkaWriter verifies that kafka.Writer publishes one keyed message per
// enriched record with intensity and processed_at headers.
func TestKafkaWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaTopic:         testTopic,
		BatchSize:          1,
		BatchFlushInterval: 10 * time.Millisecond,
	}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	processedAt := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	ds := domain.EnrichRecords([]domain.AccidentRecord{
		{ID: "acc-1", Latitude: -30.03, Longitude: -51.22, Injured: 2, Deaths: 1},
	})
	artifacts := domain.BuildArtifacts(ds, 1, 5, domain.DefaultHeatLayerOptions())
	artifacts.Summary.ProcessedAt = processedAt

	require.NoError(t, writer.Load(ctx, artifacts))

	pm := readPublished(ctx, t, newConsumer(t, broker, "test-writer"))
	assert.Equal(t, "acc-1", pm.Key)
	assert.Equal(t, "3", pm.Headers["intensity"])
	assert.Equal(t, processedAt.Format(time.RFC3339), pm.Headers["processed_at"])
	assert.Equal(t, ds[0], pm.Record)
}

// TestPipelineEndToEnd wires Source → Pipeline → kafka.Writer with a real
// broker and verifies that only valid rows are published, in file order.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaTopic:         testTopic,
		BatchSize:          2,
		BatchFlushInterval: 10 * time.Millisecond,
	}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(stringSource(accidentsCSV), []pipeline.Sink{writer}, nil, discardLogger(),
		observability.NewMetricsForTesting(), pipeline.Options{
			Schema:       domain.DefaultSchema(),
			TopN:         2,
			Heat:         domain.DefaultHeatLayerOptions(),
			SinkAttempts: 3,
		})

	artifacts, err := p.Run(ctx)
	require.NoError(t, err)
	require.Len(t, artifacts.Dataset, 4)
	assert.Equal(t, 2, artifacts.Summary.RowsDropped)

	consumer := newConsumer(t, broker, "test-pipeline")
	received := make([]publishedMessage, 0, len(artifacts.Dataset))
	for len(received) < len(artifacts.Dataset) {
		received = append(received, readPublished(ctx, t, consumer))
	}

	keys := make([]string, len(received))
	for i, pm := range received {
		keys[i] = pm.Key
		assert.Equal(t, artifacts.Dataset[i], pm.Record)
		_, err := time.Parse(time.RFC3339, pm.Headers["processed_at"])
		assert.NoError(t, err, "invalid processed_at format")
	}
	assert.Equal(t, []string{"1", "2", "4", "6"}, keys, "single partition preserves file order")

	// No message for the dropped rows.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no further messages")

	require.NoError(t, p.CheckReadiness(ctx))
}
