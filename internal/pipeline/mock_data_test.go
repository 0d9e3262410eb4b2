package pipeline_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/satreflabs/tropo-correction-service/internal/pipeline"
	"github.com/satreflabs/tropo-correction-service/internal/tropo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRequestRow struct {
	Base     tropo.Coordinate `json:"base"`
	Rover    tropo.Coordinate `json:"rover"`
	ZHD      float64          `json:"zhd_mm"`
	ZWD      float64          `json:"zwd_mm"`
	ZTD      float64          `json:"ztd_mm"`
	Epoch    string           `json:"epoch"`
	Seasonal bool             `json:"seasonal"`
}

func TestCorrectionTransformer_WithMockJSONData(t *testing.T) {
	transformer := pipeline.NewTransformer(nil, true, slog.Default(), newTestMetrics())

	rows := readRequestRows(t)
	require.Len(t, rows, 10)

	for i, row := range rows {
		raw := rawRequestFromRow(t, row, i)

		out, err := transformer.Transform(context.Background(), raw)
		require.NoError(t, err, "row %d", i)

		assert.True(t, strings.HasPrefix(out.ID, "cor-"))
		assert.Equal(t, 150, out.DayOfYear)
		assert.True(t, out.Seasonal)

		dh := row.Rover.Height - row.Base.Height
		assert.Equal(t, dh, out.HeightDiff)

		// Each component scales by exp(dh/beta) relative to the measurement.
		assert.InEpsilon(t, row.ZHD/math.Exp(-dh/out.BetaZHD), out.Corrected.ZHD, 1e-12)
		assert.InEpsilon(t, row.ZWD/math.Exp(-dh/out.BetaZWD), out.Corrected.ZWD, 1e-12)
		assert.InEpsilon(t, row.ZTD/math.Exp(-dh/out.BetaZTD), out.Corrected.ZTD, 1e-12)

		assert.Equal(t, 8431.2, out.BetaZHD)
		assert.InDelta(t, 6959.1967679791, out.BetaZTD, 1e-6)
		assert.InDelta(t, 3163.9376780312, out.BetaZWD, 1e-6)

		switch {
		case dh > 0:
			assert.Greater(t, out.Corrected.ZTD, row.ZTD, "row %d: scaled delay must grow with rover height", i)
		case dh < 0:
			assert.Less(t, out.Corrected.ZTD, row.ZTD, "row %d: scaled delay must shrink with rover height", i)
		default:
			assert.Equal(t, row.ZTD, out.Corrected.ZTD, "row %d: equal heights must pass through", i)
		}
	}
}

func readRequestRows(t *testing.T) []mockRequestRow {
	t.Helper()

	path := filepath.Join("..", "..", "data", "mock", "correction_requests_doy150.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rows []mockRequestRow
	require.NoError(t, json.Unmarshal(data, &rows))
	return rows
}

func rawRequestFromRow(t *testing.T, row mockRequestRow, index int) tropo.RawRequest {
	t.Helper()
	payload, err := json.Marshal(row)
	require.NoError(t, err)

	return tropo.RawRequest{
		Key:   []byte(fmt.Sprintf("req-%d", index+1)),
		Value: payload,
		Topic: "tropo-correction-requests",
	}
}
