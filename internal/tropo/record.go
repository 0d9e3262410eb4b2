package tropo

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Correction is the completed height-correction record published downstream.
// It carries the full input context next to the corrected delays so consumers
// never need the request topic to interpret a result.
type Correction struct {
	ID           string     `json:"id"`
	BaseStation  string     `json:"base_station,omitempty"`
	RoverStation string     `json:"rover_station,omitempty"`
	Base         Coordinate `json:"base"`
	Rover        Coordinate `json:"rover"`
	Epoch        time.Time  `json:"epoch"`
	DayOfYear    int        `json:"doy"`
	Seasonal     bool       `json:"seasonal"`
	HeightDiff   float64    `json:"height_diff_m"`
	BetaZHD      float64    `json:"beta_zhd_m"`
	BetaZTD      float64    `json:"beta_ztd_m"`
	BetaZWD      float64    `json:"beta_zwd_m"`
	Measured     Delay      `json:"measured"`
	Corrected    Delay      `json:"corrected"`

	RawPayload  []byte    `json:"-"`
	ProcessedAt time.Time `json:"processed_at"`
}

// BuildCorrection runs the height correction for a resolved request and
// assembles the output record. base and rover supply the coordinates to use;
// for inline requests they are anonymous stations with empty IDs. A seasonal
// flag on the request wins over the service default.
func BuildCorrection(req CorrectionRequest, base, rover Station, defaultSeasonal bool) (Correction, error) {
	seasonal := defaultSeasonal
	if req.Seasonal != nil {
		seasonal = *req.Seasonal
	}

	bZHD, bZTD, bZWD, err := ScaleHeights(req.DayOfYear, seasonal)
	if err != nil {
		return Correction{}, err
	}
	corrected, err := Correct(req.Measured, base.Coordinate, rover.Coordinate, req.DayOfYear, seasonal)
	if err != nil {
		return Correction{}, err
	}

	return Correction{
		ID:           generateID(base.ID, rover.ID, rover.Coordinate, req.DayOfYear, seasonal, req.Measured),
		BaseStation:  base.ID,
		RoverStation: rover.ID,
		Base:         base.Coordinate,
		Rover:        rover.Coordinate,
		Epoch:        req.Epoch,
		DayOfYear:    req.DayOfYear,
		Seasonal:     seasonal,
		HeightDiff:   rover.Height - base.Height,
		BetaZHD:      bZHD,
		BetaZTD:      bZTD,
		BetaZWD:      bZWD,
		Measured:     req.Measured,
		Corrected:    corrected,

		RawPayload:  req.RawPayload,
		ProcessedAt: clock.Now(),
	}, nil
}

// generateID produces a deterministic ID from the request's key fields.
// Reprocessing the same request yields the same ID, which lets downstream
// sinks upsert idempotently (ON CONFLICT DO NOTHING).
func generateID(baseID, roverID string, rover Coordinate, doy int, seasonal bool, measured Delay) string {
	input := fmt.Sprintf("%s|%s|%.4f|%.4f|%.1f|%d|%t|%g|%g|%g",
		baseID, roverID, rover.Lat, rover.Lon, rover.Height, doy, seasonal,
		measured.ZHD, measured.ZWD, measured.ZTD)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if roverID == "" {
		return "cor-" + short
	}
	return roverID + "-" + short
}
