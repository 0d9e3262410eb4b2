package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"

	"github.com/satreflabs/tropo-correction-service/internal/tropo"
)

func main() {
	parser := argparse.NewParser("gthc", "Scales zenith tropospheric delays between station heights over Hong Kong")

	baseLat := parser.Float("", "base-lat", &argparse.Options{
		Default: 22.3,
		Help:    "Reference station latitude (decimal degrees)"})

	baseLon := parser.Float("", "base-lon", &argparse.Options{
		Default: 114.2,
		Help:    "Reference station longitude (decimal degrees)"})

	baseHeight := parser.Float("", "base-height", &argparse.Options{
		Default: 50.0,
		Help:    "Reference station ellipsoidal height (m)"})

	roverLat := parser.Float("", "rover-lat", &argparse.Options{
		Default: 22.35,
		Help:    "User station latitude (decimal degrees)"})

	roverLon := parser.Float("", "rover-lon", &argparse.Options{
		Default: 114.15,
		Help:    "User station longitude (decimal degrees)"})

	roverHeight := parser.Float("", "rover-height", &argparse.Options{
		Default: 200.0,
		Help:    "User station ellipsoidal height (m)"})

	zhd := parser.Float("", "zhd", &argparse.Options{
		Default: 2200.0,
		Help:    "Measured zenith hydrostatic delay at the reference station (mm)"})

	zwd := parser.Float("", "zwd", &argparse.Options{
		Default: 150.0,
		Help:    "Measured zenith wet delay at the reference station (mm)"})

	ztd := parser.Float("", "ztd", &argparse.Options{
		Default: 2350.0,
		Help:    "Measured zenith total delay at the reference station (mm)"})

	doy := parser.Int("d", "doy", &argparse.Options{
		Default: 150,
		Help:    "Day of year (1-366)"})

	annual := parser.Flag("a", "annual", &argparse.Options{
		Help: "Use annual mean scale heights instead of the seasonal fit"})

	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	measured := tropo.Delay{ZHD: *zhd, ZWD: *zwd, ZTD: *ztd}
	baseCoord := tropo.Coordinate{Lat: *baseLat, Lon: *baseLon, Height: *baseHeight}
	roverCoord := tropo.Coordinate{Lat: *roverLat, Lon: *roverLon, Height: *roverHeight}

	corrected, err := tropo.Correct(measured, baseCoord, roverCoord, *doy, !*annual)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	fmt.Printf("ZHD=%.2f, ZWD=%.2f, ZTD=%.2f mm\n", corrected.ZHD, corrected.ZWD, corrected.ZTD)
}
