//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/satreflabs/tropo-correction-service/internal/tropo"
)

// startKafka launches a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic on the test broker.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "find controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}), "create topic %s", topic)
}

// requestRow mirrors the wire form of the committed request fixtures.
type requestRow struct {
	Base     tropo.Coordinate `json:"base"`
	Rover    tropo.Coordinate `json:"rover"`
	ZHD      float64          `json:"zhd_mm"`
	ZWD      float64          `json:"zwd_mm"`
	ZTD      float64          `json:"ztd_mm"`
	Epoch    string           `json:"epoch"`
	Seasonal bool             `json:"seasonal"`
}

// loadMockRequests reads the committed correction-request fixtures.
func loadMockRequests(t *testing.T) []requestRow {
	t.Helper()

	path := filepath.Join("..", "..", "data", "mock", "correction_requests_doy150.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rows []requestRow
	require.NoError(t, json.Unmarshal(data, &rows))
	return rows
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
