package tropo

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownStation marks a registry miss. Wrapped errors carry the station ID.
var ErrUnknownStation = errors.New("unknown station")

// StationResolver looks up registered stations for requests that reference
// them by ID.
type StationResolver interface {
	// Resolve returns the station registered under the given ID, or an error
	// wrapping ErrUnknownStation when no such station exists.
	Resolve(ctx context.Context, id string) (Station, error)

	// List returns all registered stations ordered by ID.
	List(ctx context.Context) ([]Station, error)
}

// ResolveEndpoints fills in the two stations a request refers to. Inline
// coordinates are wrapped in anonymous stations; IDs go through the resolver.
// A nil resolver fails any request that references a station by ID.
func ResolveEndpoints(ctx context.Context, req CorrectionRequest, resolver StationResolver) (base, rover Station, err error) {
	base, err = resolveEndpoint(ctx, req.BaseStationID, req.Base, resolver)
	if err != nil {
		return Station{}, Station{}, fmt.Errorf("resolve base: %w", err)
	}
	rover, err = resolveEndpoint(ctx, req.RoverStationID, req.Rover, resolver)
	if err != nil {
		return Station{}, Station{}, fmt.Errorf("resolve rover: %w", err)
	}
	return base, rover, nil
}

func resolveEndpoint(ctx context.Context, id string, inline *Coordinate, resolver StationResolver) (Station, error) {
	if id == "" {
		if inline == nil {
			return Station{}, errors.New("no station ID or inline coordinates")
		}
		return Station{Coordinate: *inline}, nil
	}
	if resolver == nil {
		return Station{}, fmt.Errorf("station %q: no registry configured: %w", id, ErrUnknownStation)
	}
	return resolver.Resolve(ctx, id)
}
