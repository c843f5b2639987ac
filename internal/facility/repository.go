package facility

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the persistence operations for the facility's
// durable state: the slot table, per-lift counters, and aggregate
// statistics. The abstraction allows SQLite in production and mocks in
// unit tests.
type Repository interface {
	// SeedSlots inserts any missing slot rows for an L×P grid. Existing
	// rows keep their state, so a warm restart preserves occupancy.
	SeedSlots(ctx context.Context, levels, positions int) error

	// LoadSlots returns every persisted slot row.
	LoadSlots(ctx context.Context) ([]Slot, error)

	// SaveSlot writes one slot's occupancy state.
	SaveSlot(ctx context.Context, s Slot) error

	// LoadStats returns the aggregate facility statistics.
	LoadStats(ctx context.Context) (Stats, error)

	// SaveStats overwrites the aggregate facility statistics.
	SaveStats(ctx context.Context, stats Stats) error

	// LoadLiftCounters returns counters for every known lift.
	LoadLiftCounters(ctx context.Context) ([]LiftCounters, error)

	// SaveLiftCounters upserts one lift's counters.
	SaveLiftCounters(ctx context.Context, c LiftCounters) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed repository. The db
// parameter must be an open connection with the schema migrated.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SeedSlots inserts any missing slot rows for an L×P grid.
func (r *SQLiteRepository) SeedSlots(ctx context.Context, levels, positions int) error {
	if levels < 1 || positions < 1 {
		return ErrInvalidGrid
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seeding slots: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO slots (level, position) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("preparing seed statement: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // statement closed with tx

	for level := 1; level <= levels; level++ {
		for position := 1; position <= positions; position++ {
			if _, err := stmt.ExecContext(ctx, level, position); err != nil {
				return fmt.Errorf("seeding slot L%d/P%d: %w", level, position, err)
			}
		}
	}
	return tx.Commit()
}

// LoadSlots returns every persisted slot row in scan order.
func (r *SQLiteRepository) LoadSlots(ctx context.Context) ([]Slot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT level, position, occupied, vehicle_id, vehicle_class,
			parked_at, maintenance_locked
		FROM slots
		ORDER BY level, position`)
	if err != nil {
		return nil, fmt.Errorf("querying slots: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var slots []Slot
	for rows.Next() {
		var (
			s        Slot
			class    string
			parkedAt sql.NullTime
		)
		if err := rows.Scan(&s.ID.Level, &s.ID.Position, &s.Occupied,
			&s.VehicleID, &class, &parkedAt, &s.MaintenanceLocked); err != nil {
			return nil, fmt.Errorf("scanning slot: %w", err)
		}
		s.VehicleClass = VehicleClass(class)
		if parkedAt.Valid {
			s.ParkedAt = parkedAt.Time
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// SaveSlot writes one slot's occupancy state.
func (r *SQLiteRepository) SaveSlot(ctx context.Context, s Slot) error {
	var parkedAt any
	if !s.ParkedAt.IsZero() {
		parkedAt = s.ParkedAt
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE slots
		SET occupied = ?, vehicle_id = ?, vehicle_class = ?, parked_at = ?,
			maintenance_locked = ?
		WHERE level = ? AND position = ?`,
		s.Occupied, s.VehicleID, string(s.VehicleClass), parkedAt,
		s.MaintenanceLocked, s.ID.Level, s.ID.Position)
	if err != nil {
		return fmt.Errorf("saving slot %s: %w", s.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("saving slot %s: %w", s.ID, err)
	}
	if n == 0 {
		return ErrInvalidSlot
	}
	return nil
}

// LoadStats returns the aggregate facility statistics.
func (r *SQLiteRepository) LoadStats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := r.db.QueryRowContext(ctx, `
		SELECT total_parked, total_retrieved, total_failed,
			park_cycle_seconds_sum, retrieve_cycle_seconds_sum
		FROM facility_stats WHERE id = 1`).
		Scan(&stats.TotalParked, &stats.TotalRetrieved, &stats.TotalFailed,
			&stats.ParkCycleSum, &stats.RetrieveSum)
	if errors.Is(err, sql.ErrNoRows) {
		return Stats{}, nil
	}
	if err != nil {
		return Stats{}, fmt.Errorf("querying stats: %w", err)
	}
	return stats, nil
}

// SaveStats overwrites the aggregate facility statistics.
func (r *SQLiteRepository) SaveStats(ctx context.Context, stats Stats) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO facility_stats (
			id, total_parked, total_retrieved, total_failed,
			park_cycle_seconds_sum, retrieve_cycle_seconds_sum, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			total_parked = excluded.total_parked,
			total_retrieved = excluded.total_retrieved,
			total_failed = excluded.total_failed,
			park_cycle_seconds_sum = excluded.park_cycle_seconds_sum,
			retrieve_cycle_seconds_sum = excluded.retrieve_cycle_seconds_sum,
			updated_at = excluded.updated_at`,
		stats.TotalParked, stats.TotalRetrieved, stats.TotalFailed,
		stats.ParkCycleSum, stats.RetrieveSum, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving stats: %w", err)
	}
	return nil
}

// LoadLiftCounters returns counters for every known lift.
func (r *SQLiteRepository) LoadLiftCounters(ctx context.Context) ([]LiftCounters, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT lift_id, operating_seconds, fault_count
		FROM lift_counters ORDER BY lift_id`)
	if err != nil {
		return nil, fmt.Errorf("querying lift counters: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var counters []LiftCounters
	for rows.Next() {
		var c LiftCounters
		if err := rows.Scan(&c.LiftID, &c.OperatingSeconds, &c.FaultCount); err != nil {
			return nil, fmt.Errorf("scanning lift counters: %w", err)
		}
		counters = append(counters, c)
	}
	return counters, rows.Err()
}

// SaveLiftCounters upserts one lift's counters.
func (r *SQLiteRepository) SaveLiftCounters(ctx context.Context, c LiftCounters) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lift_counters (lift_id, operating_seconds, fault_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (lift_id) DO UPDATE SET
			operating_seconds = excluded.operating_seconds,
			fault_count = excluded.fault_count,
			updated_at = excluded.updated_at`,
		c.LiftID, c.OperatingSeconds, c.FaultCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving lift counters: %w", err)
	}
	return nil
}

// LoadGrid builds the in-memory grid from persisted state, seeding any
// missing rows first. The grid dimensions come from configuration; rows
// outside them (after a shrink) are ignored.
func LoadGrid(ctx context.Context, repo Repository, levels, positions int) (*Grid, error) {
	if err := repo.SeedSlots(ctx, levels, positions); err != nil {
		return nil, err
	}

	grid, err := NewGrid(levels, positions)
	if err != nil {
		return nil, err
	}

	slots, err := repo.LoadSlots(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range slots {
		if err := grid.Restore(s); err != nil {
			if errors.Is(err, ErrInvalidSlot) {
				continue
			}
			return nil, err
		}
	}
	return grid, nil
}
