package tropo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RawRequest represents an unprocessed message from the request topic.
type RawRequest struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// requestJSON is the flat wire form of a correction request. Each side names
// a registered station or carries inline coordinates; delays are pointers so
// absent fields are distinguishable from measured zeros.
type requestJSON struct {
	BaseStation  string      `json:"base_station,omitempty"`
	RoverStation string      `json:"rover_station,omitempty"`
	Base         *Coordinate `json:"base,omitempty"`
	Rover        *Coordinate `json:"rover,omitempty"`
	ZHD          *float64    `json:"zhd_mm"`
	ZWD          *float64    `json:"zwd_mm"`
	ZTD          *float64    `json:"ztd_mm"`
	Epoch        string      `json:"epoch,omitempty"` // RFC 3339
	DayOfYear    *int        `json:"doy,omitempty"`   // overrides the epoch-derived day
	Seasonal     *bool       `json:"seasonal,omitempty"`
}

// CorrectionRequest is the parsed representation. Station IDs and inline
// coordinates are carried as given; resolution happens downstream so parse
// failures stay distinguishable from registry misses.
type CorrectionRequest struct {
	BaseStationID  string
	RoverStationID string
	Base           *Coordinate
	Rover          *Coordinate
	Measured       Delay
	Epoch          time.Time
	DayOfYear      int
	Seasonal       *bool // nil means the service default applies

	RawPayload []byte
}

// ParseRequest deserializes a RawRequest's value into a CorrectionRequest.
// The day of year comes from the explicit field when present, otherwise from
// the epoch's UTC calendar day. Range checking is left to Correct.
func ParseRequest(raw RawRequest) (CorrectionRequest, error) {
	var req requestJSON
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return CorrectionRequest{}, fmt.Errorf("parse correction request: %w", err)
	}

	if req.ZHD == nil || req.ZWD == nil || req.ZTD == nil {
		return CorrectionRequest{}, errors.New("parse correction request: measured zhd_mm, zwd_mm, and ztd_mm are all required")
	}
	if req.BaseStation == "" && req.Base == nil {
		return CorrectionRequest{}, errors.New("parse correction request: base_station or inline base coordinates required")
	}
	if req.RoverStation == "" && req.Rover == nil {
		return CorrectionRequest{}, errors.New("parse correction request: rover_station or inline rover coordinates required")
	}

	var epoch time.Time
	if req.Epoch != "" {
		var err error
		epoch, err = time.Parse(time.RFC3339, req.Epoch)
		if err != nil {
			return CorrectionRequest{}, fmt.Errorf("parse correction request epoch: %w", err)
		}
	}

	var doy int
	switch {
	case req.DayOfYear != nil:
		doy = *req.DayOfYear
	case !epoch.IsZero():
		doy = epoch.UTC().YearDay()
	default:
		return CorrectionRequest{}, errors.New("parse correction request: doy or epoch required")
	}

	return CorrectionRequest{
		BaseStationID:  req.BaseStation,
		RoverStationID: req.RoverStation,
		Base:           req.Base,
		Rover:          req.Rover,
		Measured:       Delay{ZHD: *req.ZHD, ZWD: *req.ZWD, ZTD: *req.ZTD},
		Epoch:          epoch,
		DayOfYear:      doy,
		Seasonal:       req.Seasonal,

		RawPayload: raw.Value,
	}, nil
}
