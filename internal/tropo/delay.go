package tropo

// Delay holds the three zenith delay components in millimetres. ZTD is
// carried as its own value rather than derived, so measured totals survive
// the round trip even when the inputs are not perfectly consistent.
type Delay struct {
	ZHD float64 `json:"zhd_mm"`
	ZWD float64 `json:"zwd_mm"`
	ZTD float64 `json:"ztd_mm"`
}

// Coordinate is a WGS-84 position with height in metres.
type Coordinate struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Height float64 `json:"height_m"`
}

// Station is a registered GNSS reference station.
type Station struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Coordinate
}
