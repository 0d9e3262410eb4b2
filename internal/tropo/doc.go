// Package tropo implements the GTHC-HK empirical height correction for GNSS
// zenith tropospheric delays over Hong Kong.
//
// # Model
//
// Zenith delays estimated at a reference station are projected to a user
// (rover) station at a different elevation by exponential height scaling:
//
//	V_user = V_base / exp(-Δh / β_c)
//
// where Δh is the user height minus the reference height in metres and β_c is
// the scale height of component c. The hydrostatic scale height is constant;
// the wet and total components vary through the year and are evaluated from
// harmonic fits in the normalized day of year t = doy/365.25:
//
//	β_ZHD = 8431.2 m
//	β_ZTD(t) = a0·cos(2πt) + a1·sin(2πt) + a2
//	β_ZWD(t) = b0·cos(2πt) + b1·cos(4πt) + b2·sin(2πt) + b3·cos(4πt) + b4
//
// The coefficients were fitted to multi-year SatRef network data and are kept
// verbatim from the published set, including the split cos(4πt) term in the
// wet fit. Callers may disable the seasonal terms, in which case the annual
// means β_ZTD = 7228.8 m and β_ZWD = 3254.1 m apply. β_ZHD is shared by both
// modes, so hydrostatic output never depends on the seasonal flag.
//
// # Units and Conventions
//
//	Delays:      millimetres (ZHD hydrostatic, ZWD wet, ZTD total).
//	Coordinates: WGS-84 decimal degrees; heights in metres.
//	Day of year: integer 1-366, from an explicit value or a request epoch.
//
// ZTD ≈ ZHD + ZWD holds for physically consistent inputs but is not enforced:
// each component is scaled independently and the inputs pass through as given.
//
// # Region of Validity
//
// The fits are valid over the Hong Kong SatRef coverage window, latitude
// 22.1-22.6 and longitude 113.8-114.5, bounds inclusive. Corrections are
// refused, not extrapolated, when either station falls outside the window.
//
// # Correction Requests
//
// Requests arrive as flat JSON on the request topic or the HTTP API. Stations
// may be referenced by SatRef ID (resolved through a [StationResolver]) or
// carried inline as coordinates. The epoch is RFC 3339; an explicit "doy"
// field overrides the epoch-derived day of year.
//
// # ID Generation
//
// Correction IDs are deterministic SHA-256 hashes of the station pair, rover
// position, day of year, mode, and measured delays. Reprocessing the same
// request yields the same ID, so downstream sinks can upsert idempotently.
// See [generateID].
package tropo
