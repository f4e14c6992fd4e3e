package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/accident-risk-etl/internal/config"
	"github.com/couchcryptid/accident-risk-etl/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes every enriched accident of a run to a Kafka topic.
// It implements pipeline.Sink.
type Writer struct {
	writer    messageWriter
	logger    *slog.Logger
	batchSize int
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchFlushInterval,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger, batchSize: max(cfg.BatchSize, 1)}
}

func (w *Writer) Name() string { return "kafka" }

// Load serializes the dataset into one message per record and publishes them
// in chunks of the configured batch size.
func (w *Writer) Load(ctx context.Context, artifacts domain.Artifacts) error {
	if len(artifacts.Dataset) == 0 {
		return nil
	}
	processedAt := artifacts.Summary.ProcessedAt

	for start := 0; start < len(artifacts.Dataset); start += w.batchSize {
		end := min(start+w.batchSize, len(artifacts.Dataset))
		msgs := make([]kafkago.Message, 0, end-start)
		for _, rec := range artifacts.Dataset[start:end] {
			msg, err := serializeToMessage(rec, processedAt)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("write messages %d-%d: %w", start, end, err)
		}
	}

	w.logger.Debug("published enriched records", "count", len(artifacts.Dataset))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an EnrichedRecord into a Kafka message keyed by
// accident ID so re-runs land on the same partition.
func serializeToMessage(rec domain.EnrichedRecord, processedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize accident record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "intensity", Value: []byte(strconv.Itoa(rec.Intensity))},
			{Key: "processed_at", Value: []byte(processedAt.Format(time.RFC3339))},
		},
	}, nil
}
