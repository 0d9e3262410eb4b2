package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/satreflabs/tropo-correction-service/internal/tropo"
)

// StaticRegistry serves stations from an in-memory map, loaded once from a
// seed file. It backs deployments without a database and most tests.
type StaticRegistry struct {
	stations map[string]tropo.Station
}

// NewStaticRegistry builds a registry from the given stations.
func NewStaticRegistry(stations []tropo.Station) *StaticRegistry {
	byID := make(map[string]tropo.Station, len(stations))
	for _, st := range stations {
		byID[st.ID] = st
	}
	return &StaticRegistry{stations: byID}
}

// LoadStaticRegistry reads a station seed file into a StaticRegistry.
// The file is validated the same way the database seeder validates it.
func LoadStaticRegistry(jsonPath string) (*StaticRegistry, error) {
	stations, err := readSeedFile(jsonPath)
	if err != nil {
		return nil, err
	}
	return NewStaticRegistry(stations), nil
}

func (r *StaticRegistry) Resolve(_ context.Context, id string) (tropo.Station, error) {
	st, ok := r.stations[id]
	if !ok {
		return tropo.Station{}, fmt.Errorf("station %q: %w", id, tropo.ErrUnknownStation)
	}
	return st, nil
}

func (r *StaticRegistry) List(_ context.Context) ([]tropo.Station, error) {
	out := make([]tropo.Station, 0, len(r.stations))
	for _, st := range r.stations {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
