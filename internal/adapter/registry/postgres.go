package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/satreflabs/tropo-correction-service/internal/observability"
	"github.com/satreflabs/tropo-correction-service/internal/tropo"
)

// Open connects to Postgres with pool settings suited to the service's
// small, steady query load.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("verify postgres connection: %w", err)
	}

	return db, nil
}

// PostgresRegistry resolves station IDs against the stations table.
// It implements tropo.StationResolver.
type PostgresRegistry struct {
	db      *sql.DB
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewPostgresRegistry(db *sql.DB, logger *slog.Logger, metrics *observability.Metrics) *PostgresRegistry {
	return &PostgresRegistry{db: db, logger: logger, metrics: metrics}
}

// Resolve looks up a single station by its reference ID.
func (r *PostgresRegistry) Resolve(ctx context.Context, id string) (tropo.Station, error) {
	const q = `
	SELECT id, name, lat, lon, height_m
	FROM stations
	WHERE id = $1;
	`

	var st tropo.Station
	err := r.db.QueryRowContext(ctx, q, id).Scan(&st.ID, &st.Name, &st.Lat, &st.Lon, &st.Height)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		r.metrics.StationResolves.WithLabelValues("postgres", "miss").Inc()
		return tropo.Station{}, fmt.Errorf("station %q: %w", id, tropo.ErrUnknownStation)
	case err != nil:
		r.metrics.StationResolves.WithLabelValues("postgres", "error").Inc()
		return tropo.Station{}, fmt.Errorf("resolve station %q: query stations table: %w", id, err)
	}

	r.metrics.StationResolves.WithLabelValues("postgres", "hit").Inc()
	return st, nil
}

// List returns all registered stations ordered by ID.
func (r *PostgresRegistry) List(ctx context.Context) ([]tropo.Station, error) {
	const q = `
	SELECT id, name, lat, lon, height_m
	FROM stations
	ORDER BY id;
	`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list stations: query stations table: %w", err)
	}
	defer rows.Close()

	var out []tropo.Station
	for rows.Next() {
		var st tropo.Station
		if err := rows.Scan(&st.ID, &st.Name, &st.Lat, &st.Lon, &st.Height); err != nil {
			return nil, fmt.Errorf("list stations: scan rows: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stations: row iteration: %w", err)
	}

	return out, nil
}

// InitSchema creates the stations table if it does not exist.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createStationsQuery := `
	CREATE TABLE IF NOT EXISTS stations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		height_m DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	if _, err := tx.Exec(createStationsQuery); err != nil {
		return fmt.Errorf("init schema: create stations table: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// SeedFromJSON upserts stations from a JSON seed file. Seeds outside the
// model region are rejected outright so a bad file never poisons lookups.
func SeedFromJSON(db *sql.DB, jsonPath string) error {
	stations, err := readSeedFile(jsonPath)
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed stations: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO stations (id, name, lat, lon, height_m, updated_at)
	VALUES ($1, $2, $3, $4, $5, now())
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		lat = EXCLUDED.lat,
		lon = EXCLUDED.lon,
		height_m = EXCLUDED.height_m,
		updated_at = now();
	`
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("seed stations: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, st := range stations {
		if _, err := stmt.Exec(st.ID, st.Name, st.Lat, st.Lon, st.Height); err != nil {
			return fmt.Errorf("seed stations: insert id=%q: %w", st.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed stations: commit tx: %w", err)
	}

	return nil
}

// readSeedFile loads and validates a station seed file.
func readSeedFile(jsonPath string) ([]tropo.Station, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("seed stations: read %q: %w", jsonPath, err)
	}

	var data []tropo.Station
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("seed stations: parse json: %w", err)
	}

	for i, st := range data {
		if strings.TrimSpace(st.ID) == "" {
			return nil, fmt.Errorf("seed stations: empty id at index %d", i+1)
		}
		if !tropo.InRegion(st.Lat, st.Lon) {
			return nil, fmt.Errorf("seed stations: station %q at (%.4f, %.4f) outside the model region", st.ID, st.Lat, st.Lon)
		}
	}

	return data, nil
}
