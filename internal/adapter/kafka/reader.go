package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/satreflabs/tropo-correction-service/internal/config"
	"github.com/satreflabs/tropo-correction-service/internal/tropo"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes correction requests from a Kafka topic.
// It implements pipeline.BatchExtractor.
type Reader struct {
	reader        *kafkago.Reader
	logger        *slog.Logger
	flushInterval time.Duration
}

// NewReader creates a consumer-group reader for the request topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaRequestTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return &Reader{reader: r, logger: logger, flushInterval: cfg.BatchFlushInterval}
}

// ExtractBatch fetches up to batchSize messages, returning whatever has
// arrived once the flush interval elapses. Offsets are not committed here;
// each request carries a Commit closure the pipeline invokes after the
// correction has been loaded.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]tropo.RawRequest, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()

	batch := make([]tropo.RawRequest, 0, batchSize)
	for len(batch) < batchSize {
		msg, err := r.reader.FetchMessage(fetchCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return batch, nil
			}
			return nil, fmt.Errorf("fetch message: %w", err)
		}

		raw := mapMessageToRawRequest(msg)
		raw.Commit = func(commitCtx context.Context) error {
			return r.reader.CommitMessages(commitCtx, msg)
		}
		batch = append(batch, raw)
	}
	return batch, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessageToRawRequest converts a Kafka message into the transport-neutral
// form the pipeline consumes.
func mapMessageToRawRequest(msg kafkago.Message) tropo.RawRequest {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return tropo.RawRequest{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
