//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satreflabs/tropo-correction-service/internal/adapter/kafka"
	"github.com/satreflabs/tropo-correction-service/internal/adapter/registry"
	"github.com/satreflabs/tropo-correction-service/internal/config"
	"github.com/satreflabs/tropo-correction-service/internal/observability"
	"github.com/satreflabs/tropo-correction-service/internal/pipeline"
	"github.com/satreflabs/tropo-correction-service/internal/tropo"
)

const (
	testRequestTopic = "test-correction-requests"
	testSinkTopic    = "test-corrections"
)

// publishedCorrection holds a deserialized message read from the sink topic.
type publishedCorrection struct {
	Correction tropo.Correction
	Key        string
	Headers    map[string]string
}

// readCorrection reads a single message from the sink consumer and deserializes it.
func readCorrection(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedCorrection {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var correction tropo.Correction
	require.NoError(t, json.Unmarshal(msg.Value, &correction), "unmarshal sink message")

	return publishedCorrection{
		Correction: correction,
		Key:        string(msg.Key),
		Headers:    headers,
	}
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (Extractor) and
// kafka.Writer (Loader) correctly round-trip a request through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testRequestTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaRequestTopic:  testRequestTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-reader-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	// Publish the canonical request: base at 50 m, rover at 200 m, day 150.
	rows := loadMockRequests(t)
	payload, err := json.Marshal(rows[0])
	require.NoError(t, err)

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testRequestTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte("test-key"),
		Value: payload,
	}))

	// Extract via kafka.Reader.
	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []tropo.RawRequest
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from request topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("test-key"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testRequestTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")

	// Commit the offset.
	require.NoError(t, raw.Commit(ctx))

	// Transform the raw request into a correction.
	metrics := observability.NewMetricsForTesting()
	transformer := pipeline.NewTransformer(nil, true, discardLogger(), metrics)
	correction, err := transformer.Transform(ctx, raw)
	require.NoError(t, err)

	// Load via kafka.Writer.
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.LoadBatch(ctx, []tropo.Correction{correction}))

	// Read from the sink topic and verify headers + value.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	pc := readCorrection(ctx, t, consumer)
	assert.Contains(t, pc.Headers, "processed_at")
	_, err = time.Parse(time.RFC3339, pc.Headers["processed_at"])
	assert.NoError(t, err, "processed_at should be valid RFC3339")

	assert.True(t, strings.HasPrefix(pc.Key, "cor-"))
	assert.Equal(t, pc.Correction.ID, pc.Key)
	assert.Equal(t, 150, pc.Correction.DayOfYear)
	assert.Equal(t, 150.0, pc.Correction.HeightDiff)
	assert.InDelta(t, 2239.4905839740, pc.Correction.Corrected.ZHD, 1e-6)
	assert.InDelta(t, 157.2826604760, pc.Correction.Corrected.ZWD, 1e-6)
	assert.InDelta(t, 2401.2022268816, pc.Correction.Corrected.ZTD, 1e-6)
}

// TestPipelineEndToEnd wires the full pipeline (Reader -> Transformer -> Writer)
// with real Kafka and verifies every fixture request is corrected.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testRequestTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaRequestTopic:  testRequestTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-pipeline-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	// Publish all fixture requests plus one station-referenced request.
	rows := loadMockRequests(t)

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testRequestTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	msgs := make([]kafkago.Message, 0, len(rows)+1)
	for i, row := range rows {
		payload, err := json.Marshal(row)
		require.NoError(t, err)
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(fmt.Sprintf("req-%d", i)),
			Value: payload,
		})
	}
	stationRequest := `{"base_station":"HKSL","rover_station":"HKNP",` +
		`"zhd_mm":2305.1,"zwd_mm":310.7,"ztd_mm":2615.8,"doy":200,"seasonal":true}`
	msgs = append(msgs, kafkago.Message{
		Key:   []byte("req-station"),
		Value: []byte(stationRequest),
	})
	require.NoError(t, producer.WriteMessages(ctx, msgs...))

	// Wire up the pipeline with the seed-file registry.
	resolver, err := registry.LoadStaticRegistry(filepath.Join("..", "..", "data", "seeds", "stations.json"))
	require.NoError(t, err)

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	metrics := observability.NewMetricsForTesting()
	transformer := pipeline.NewTransformer(resolver, true, discardLogger(), metrics)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(reader, transformer, writer, discardLogger(), metrics, 50)

	// Run the pipeline in a goroutine.
	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	// Read all corrections from the sink topic.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make([]publishedCorrection, 0, len(msgs))
	for len(received) < len(msgs) {
		pc := readCorrection(ctx, t, consumer)
		received = append(received, pc)
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	require.Len(t, received, len(msgs))
	for _, pc := range received {
		assert.Equal(t, pc.Correction.ID, pc.Key)
		assert.True(t, pc.Correction.Seasonal)

		// Every message must carry rover_station and processed_at headers.
		assert.Contains(t, pc.Headers, "rover_station")
		assert.Contains(t, pc.Headers, "processed_at")
		_, err := time.Parse(time.RFC3339, pc.Headers["processed_at"])
		assert.NoError(t, err, "invalid processed_at format")

		// The correction must scale in the direction of the height difference.
		switch {
		case pc.Correction.HeightDiff > 0:
			assert.Greater(t, pc.Correction.Corrected.ZTD, pc.Correction.Measured.ZTD)
		case pc.Correction.HeightDiff < 0:
			assert.Less(t, pc.Correction.Corrected.ZTD, pc.Correction.Measured.ZTD)
		default:
			assert.Equal(t, pc.Correction.Measured, pc.Correction.Corrected)
		}
	}

	// Spot-check the canonical request: 50 m -> 200 m on day 150.
	var foundCanonical bool
	for _, pc := range received {
		if pc.Correction.Rover.Height != 200.0 || pc.Correction.Base.Height != 50.0 {
			continue
		}
		foundCanonical = true
		assert.Equal(t, 150, pc.Correction.DayOfYear)
		assert.InDelta(t, 2239.4905839740, pc.Correction.Corrected.ZHD, 1e-6)
		assert.InDelta(t, 157.2826604760, pc.Correction.Corrected.ZWD, 1e-6)
		assert.InDelta(t, 2401.2022268816, pc.Correction.Corrected.ZTD, 1e-6)
		break
	}
	assert.True(t, foundCanonical, "expected to find the 50 m -> 200 m request")

	// Spot-check the station pair: Siu Lang Shui -> Ngong Ping on day 200.
	var foundStation bool
	for _, pc := range received {
		if pc.Correction.RoverStation != "HKNP" {
			continue
		}
		foundStation = true
		assert.Equal(t, "HKNP", pc.Headers["rover_station"])
		assert.Equal(t, "HKSL", pc.Correction.BaseStation)
		assert.True(t, strings.HasPrefix(pc.Correction.ID, "HKNP-"))
		assert.Equal(t, 200, pc.Correction.DayOfYear)
		assert.InDelta(t, 607.2-95.3, pc.Correction.HeightDiff, 1e-9)
		assert.InDelta(t, 2449.3900219472, pc.Correction.Corrected.ZHD, 1e-6)
		assert.InDelta(t, 363.8267056137, pc.Correction.Corrected.ZWD, 1e-6)
		assert.InDelta(t, 2817.5646485061, pc.Correction.Corrected.ZTD, 1e-6)
		break
	}
	assert.True(t, foundStation, "expected to find the HKSL -> HKNP request")
}

// TestPipelineTransformError verifies that an invalid message (poison pill) is
// skipped and the pipeline continues processing valid messages.
func TestPipelineTransformError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testRequestTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaRequestTopic:  testRequestTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("test-poison-%d", time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}

	// Publish: invalid JSON, an out-of-region rover, then a valid request.
	rows := loadMockRequests(t)
	validPayload, err := json.Marshal(rows[0])
	require.NoError(t, err)

	outOfRegion := []byte(`{"base":{"lat":22.3,"lon":114.2,"height_m":50},` +
		`"rover":{"lat":23.5,"lon":114.2,"height_m":200},` +
		`"zhd_mm":2200,"zwd_mm":150,"ztd_mm":2350,"doy":150,"seasonal":true}`)

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testRequestTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("north"), Value: outOfRegion},
		kafkago.Message{Key: []byte("good"), Value: validPayload},
	))

	// Wire up the pipeline.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	metrics := observability.NewMetricsForTesting()
	transformer := pipeline.NewTransformer(nil, true, discardLogger(), metrics)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(reader, transformer, writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	// Only the valid message should appear on the sink topic.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	pc := readCorrection(ctx, t, consumer)
	assert.Equal(t, 150, pc.Correction.DayOfYear)
	assert.InDelta(t, 2401.2022268816, pc.Correction.Corrected.ZTD, 1e-6)

	// Verify no second message arrives (both poison pills were skipped).
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}
