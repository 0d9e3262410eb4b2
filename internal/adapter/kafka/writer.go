package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/satreflabs/tropo-correction-service/internal/config"
	"github.com/satreflabs/tropo-correction-service/internal/tropo"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces corrections to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes multiple corrections to the sink Kafka
// topic in a single WriteMessages call for efficiency.
func (w *Writer) LoadBatch(ctx context.Context, corrections []tropo.Correction) error {
	if len(corrections) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(corrections))
	for i := range corrections {
		msg, err := serializeToMessage(corrections[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Correction into a Kafka message.
func serializeToMessage(c tropo.Correction) (kafkago.Message, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize correction: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(c.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "rover_station", Value: []byte(c.RoverStation)},
			{Key: "processed_at", Value: []byte(c.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
