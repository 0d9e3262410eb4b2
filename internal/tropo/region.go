package tropo

// Validity window of the coefficient fits. All bounds are inclusive; the
// coverage endpoint publishes the same box as GeoJSON.
const (
	RegionLatMin = 22.1
	RegionLatMax = 22.6
	RegionLonMin = 113.8
	RegionLonMax = 114.5
)

// InRegion reports whether a coordinate falls inside the Hong Kong validity
// window. Points exactly on an edge are inside.
func InRegion(lat, lon float64) bool {
	return lat >= RegionLatMin && lat <= RegionLatMax &&
		lon >= RegionLonMin && lon <= RegionLonMax
}
