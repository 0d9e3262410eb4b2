package tropo

import (
	"fmt"
	"math"
)

// Exponential scale heights in metres. The hydrostatic component is constant
// year-round; the total and wet components carry annual means for callers
// that disable the seasonal terms.
const (
	betaZHD       = 8431.2
	annualBetaZTD = 7228.8
	annualBetaZWD = 3254.1
)

// Harmonic coefficients of the seasonal scale-height fits, in evaluation
// order. zwdCoeff[1] and zwdCoeff[3] both multiply cos(4πt): the published
// set lists them as separate terms and they are summed separately here so
// evaluation reproduces the reference values digit for digit.
var (
	ztdCoeff = [3]float64{336.744129380450, 40.0468935232165, 7222.97084384999}
	zwdCoeff = [5]float64{-16.7865051683731, 36218.6610049341, -130.895834349628, -36297.5776200211, 3253.60038161059}
)

// ztdScaleHeight evaluates the total-delay scale height at t = doy/365.25.
func ztdScaleHeight(t float64) float64 {
	return ztdCoeff[0]*math.Cos(2*math.Pi*t) + ztdCoeff[1]*math.Sin(2*math.Pi*t) + ztdCoeff[2]
}

// zwdScaleHeight evaluates the wet-delay scale height at t = doy/365.25.
func zwdScaleHeight(t float64) float64 {
	return zwdCoeff[0]*math.Cos(2*math.Pi*t) +
		zwdCoeff[1]*math.Cos(4*math.Pi*t) +
		zwdCoeff[2]*math.Sin(2*math.Pi*t) +
		zwdCoeff[3]*math.Cos(4*math.Pi*t) +
		zwdCoeff[4]
}

// ScaleHeights returns the scale heights (metres) for the hydrostatic, total,
// and wet components on the given day of year. With seasonal false the total
// and wet components use their annual means. Fails with ErrDayOfYear when doy
// is outside 1-366.
func ScaleHeights(doy int, seasonal bool) (zhd, ztd, zwd float64, err error) {
	if doy < 1 || doy > 366 {
		return 0, 0, 0, fmt.Errorf("day of year %d outside 1-366: %w", doy, ErrDayOfYear)
	}
	if !seasonal {
		return betaZHD, annualBetaZTD, annualBetaZWD, nil
	}
	t := float64(doy) / 365.25
	return betaZHD, ztdScaleHeight(t), zwdScaleHeight(t), nil
}
