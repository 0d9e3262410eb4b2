package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/satreflabs/tropo-correction-service/internal/observability"
	"github.com/satreflabs/tropo-correction-service/internal/tropo"
)

// CorrectionTransformer implements Transformer using the model package with
// registry-backed station resolution.
type CorrectionTransformer struct {
	resolver tropo.StationResolver
	seasonal bool
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewTransformer creates a CorrectionTransformer. seasonal is the default
// mode for requests that carry no flag of their own. A nil resolver restricts
// the service to inline-coordinate requests.
func NewTransformer(resolver tropo.StationResolver, seasonal bool, logger *slog.Logger, metrics *observability.Metrics) *CorrectionTransformer {
	return &CorrectionTransformer{
		resolver: resolver,
		seasonal: seasonal,
		logger:   logger,
		metrics:  metrics,
	}
}

// Transform parses a raw request, resolves its stations, and runs the height
// correction. Every failure is terminal for the request: the same input can
// only fail the same way again.
func (t *CorrectionTransformer) Transform(ctx context.Context, raw tropo.RawRequest) (tropo.Correction, error) {
	start := time.Now()

	req, err := tropo.ParseRequest(raw)
	if err != nil {
		return tropo.Correction{}, err
	}

	base, rover, err := tropo.ResolveEndpoints(ctx, req, t.resolver)
	if err != nil {
		return tropo.Correction{}, err
	}

	correction, err := tropo.BuildCorrection(req, base, rover, t.seasonal)
	if err != nil {
		return tropo.Correction{}, err
	}

	t.metrics.CorrectionDuration.Observe(time.Since(start).Seconds())
	t.metrics.HeightDiff.Observe(correction.HeightDiff)
	t.metrics.ScaleHeight.WithLabelValues("zhd").Set(correction.BetaZHD)
	t.metrics.ScaleHeight.WithLabelValues("ztd").Set(correction.BetaZTD)
	t.metrics.ScaleHeight.WithLabelValues("zwd").Set(correction.BetaZWD)

	t.logger.Debug("correction computed",
		"id", correction.ID,
		"rover", correction.RoverStation,
		"doy", correction.DayOfYear,
		"seasonal", correction.Seasonal,
		"height_diff_m", correction.HeightDiff,
	)

	return correction, nil
}

// errorReason buckets a transform error for the error counter's reason label.
func errorReason(err error) string {
	switch {
	case errors.Is(err, tropo.ErrDayOfYear):
		return "day_of_year"
	case errors.Is(err, tropo.ErrOutOfRegion):
		return "out_of_region"
	case errors.Is(err, tropo.ErrUnknownStation):
		return "resolve"
	default:
		return "parse"
	}
}
