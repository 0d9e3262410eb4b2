package tropo

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors for the two refusal cases. Both are terminal for the
// request that triggered them; callers match with errors.Is.
var (
	ErrDayOfYear   = errors.New("day of year out of range")
	ErrOutOfRegion = errors.New("coordinate outside model region")
)

// Correct projects zenith delays measured at a reference station to a user
// station, scaling each component by its own scale height. The inputs are
// checked in a fixed order: day of year, then the reference coordinate, then
// the user coordinate. A failure reports the first offender and nothing is
// computed.
//
// Extreme height differences can push the exponential to zero or infinity in
// float64; such inputs are physically meaningless here and are not trapped.
func Correct(base Delay, baseCoord, userCoord Coordinate, doy int, seasonal bool) (Delay, error) {
	bZHD, bZTD, bZWD, err := ScaleHeights(doy, seasonal)
	if err != nil {
		return Delay{}, err
	}
	if !InRegion(baseCoord.Lat, baseCoord.Lon) {
		return Delay{}, fmt.Errorf("reference station at (%.4f, %.4f): %w", baseCoord.Lat, baseCoord.Lon, ErrOutOfRegion)
	}
	if !InRegion(userCoord.Lat, userCoord.Lon) {
		return Delay{}, fmt.Errorf("user station at (%.4f, %.4f): %w", userCoord.Lat, userCoord.Lon, ErrOutOfRegion)
	}

	hgtDiff := userCoord.Height - baseCoord.Height
	return Delay{
		ZHD: base.ZHD / math.Exp(-hgtDiff/bZHD),
		ZWD: base.ZWD / math.Exp(-hgtDiff/bZWD),
		ZTD: base.ZTD / math.Exp(-hgtDiff/bZTD),
	}, nil
}
