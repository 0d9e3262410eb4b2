package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/satreflabs/tropo-correction-service/internal/tropo"
)

// API serves synchronous corrections over HTTP next to the Kafka pipeline.
// Both paths run the same parse, resolve, and correction steps, so a request
// answered here matches what the pipeline would have published.
type API struct {
	resolver tropo.StationResolver
	seasonal bool
	logger   *slog.Logger
}

// NewAPI creates the correction API. seasonal is the default mode for
// requests that carry no flag of their own.
func NewAPI(resolver tropo.StationResolver, seasonal bool, logger *slog.Logger) *API {
	return &API{resolver: resolver, seasonal: seasonal, logger: logger}
}

func (a *API) handleCorrection(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read request body")
		return
	}

	raw := tropo.RawRequest{Value: body, Topic: "http", Timestamp: time.Now()}

	req, err := tropo.ParseRequest(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	base, rover, err := tropo.ResolveEndpoints(r.Context(), req, a.resolver)
	if err != nil {
		if errors.Is(err, tropo.ErrUnknownStation) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		a.logger.Error("station resolution failed", "error", err)
		writeError(w, http.StatusInternalServerError, "station resolution failed")
		return
	}

	correction, err := tropo.BuildCorrection(req, base, rover, a.seasonal)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, correction)
}

func (a *API) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := a.listStations(r.Context())
	if err != nil {
		a.logger.Error("station listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "station listing failed")
		return
	}
	writeJSON(w, http.StatusOK, stations)
}

// handleCoverage returns the model's region of validity and the registered
// stations as a GeoJSON feature collection, ready for map overlays.
func (a *API) handleCoverage(w http.ResponseWriter, r *http.Request) {
	stations, err := a.listStations(r.Context())
	if err != nil {
		a.logger.Error("station listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "station listing failed")
		return
	}

	fc := geojson.NewFeatureCollection()

	// GeoJSON positions are [lon, lat]; the ring closes on its first point.
	ring := [][]float64{
		{tropo.RegionLonMin, tropo.RegionLatMin},
		{tropo.RegionLonMax, tropo.RegionLatMin},
		{tropo.RegionLonMax, tropo.RegionLatMax},
		{tropo.RegionLonMin, tropo.RegionLatMax},
		{tropo.RegionLonMin, tropo.RegionLatMin},
	}
	region := geojson.NewPolygonFeature([][][]float64{ring})
	region.Properties["name"] = "region of validity"
	fc.AddFeature(region)

	for _, st := range stations {
		f := geojson.NewPointFeature([]float64{st.Lon, st.Lat})
		f.Properties["id"] = st.ID
		f.Properties["name"] = st.Name
		f.Properties["height_m"] = st.Height
		fc.AddFeature(f)
	}

	writeJSON(w, http.StatusOK, fc)
}

func (a *API) listStations(ctx context.Context) ([]tropo.Station, error) {
	if a.resolver == nil {
		return []tropo.Station{}, nil
	}
	stations, err := a.resolver.List(ctx)
	if err != nil {
		return nil, err
	}
	if stations == nil {
		stations = []tropo.Station{}
	}
	return stations, nil
}
