package facility

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stackpark/stackpark-core/internal/infrastructure/database"
	_ "github.com/stackpark/stackpark-core/migrations"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestSeedAndLoadSlots(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	if err := repo.SeedSlots(ctx, 3, 4); err != nil {
		t.Fatalf("SeedSlots: %v", err)
	}
	slots, err := repo.LoadSlots(ctx)
	if err != nil {
		t.Fatalf("LoadSlots: %v", err)
	}
	if len(slots) != 12 {
		t.Fatalf("loaded %d slots, want 12", len(slots))
	}

	// Re-seeding must not disturb existing rows.
	parked := time.Date(2026, 8, 10, 9, 30, 0, 0, time.UTC)
	s := Slot{
		ID:           SlotID{Level: 2, Position: 3},
		Occupied:     true,
		VehicleID:    "veh-1",
		VehicleClass: ClassStandard,
		ParkedAt:     parked,
	}
	if err := repo.SaveSlot(ctx, s); err != nil {
		t.Fatalf("SaveSlot: %v", err)
	}
	if err := repo.SeedSlots(ctx, 3, 4); err != nil {
		t.Fatalf("re-seed: %v", err)
	}

	slots, err = repo.LoadSlots(ctx)
	if err != nil {
		t.Fatalf("LoadSlots: %v", err)
	}
	var found bool
	for _, got := range slots {
		if got.ID == s.ID {
			found = true
			if !got.Occupied || got.VehicleID != "veh-1" || got.VehicleClass != ClassStandard {
				t.Fatalf("slot after re-seed = %+v", got)
			}
			if !got.ParkedAt.Equal(parked) {
				t.Fatalf("parked_at = %v, want %v", got.ParkedAt, parked)
			}
		}
	}
	if !found {
		t.Fatalf("slot %s missing after re-seed", s.ID)
	}
}

func TestSaveSlotUnknownRow(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	if err := repo.SeedSlots(ctx, 2, 2); err != nil {
		t.Fatalf("SeedSlots: %v", err)
	}

	err := repo.SaveSlot(ctx, Slot{ID: SlotID{Level: 9, Position: 9}})
	if !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("SaveSlot unknown row = %v, want ErrInvalidSlot", err)
	}
}

func TestStatsRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	stats, err := repo.LoadStats(ctx)
	if err != nil {
		t.Fatalf("LoadStats: %v", err)
	}
	if stats.TotalParked != 0 {
		t.Fatalf("fresh stats = %+v", stats)
	}

	want := Stats{
		TotalParked:    7,
		TotalRetrieved: 5,
		TotalFailed:    1,
		ParkCycleSum:   812.5,
		RetrieveSum:    430,
	}
	if err := repo.SaveStats(ctx, want); err != nil {
		t.Fatalf("SaveStats: %v", err)
	}
	got, err := repo.LoadStats(ctx)
	if err != nil {
		t.Fatalf("LoadStats: %v", err)
	}
	if got != want {
		t.Fatalf("stats = %+v, want %+v", got, want)
	}
}

func TestLiftCountersRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	for _, c := range []LiftCounters{
		{LiftID: 1, OperatingSeconds: 3600, FaultCount: 2},
		{LiftID: 2, OperatingSeconds: 1800, FaultCount: 0},
	} {
		if err := repo.SaveLiftCounters(ctx, c); err != nil {
			t.Fatalf("SaveLiftCounters: %v", err)
		}
	}
	// Upsert path.
	if err := repo.SaveLiftCounters(ctx, LiftCounters{LiftID: 1, OperatingSeconds: 4000, FaultCount: 3}); err != nil {
		t.Fatalf("SaveLiftCounters upsert: %v", err)
	}

	counters, err := repo.LoadLiftCounters(ctx)
	if err != nil {
		t.Fatalf("LoadLiftCounters: %v", err)
	}
	if len(counters) != 2 {
		t.Fatalf("loaded %d counter rows, want 2", len(counters))
	}
	if counters[0].LiftID != 1 || counters[0].OperatingSeconds != 4000 || counters[0].FaultCount != 3 {
		t.Fatalf("lift 1 counters = %+v", counters[0])
	}
}

func TestLoadGridRestoresOccupancy(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	grid, err := LoadGrid(ctx, repo, 4, 5)
	if err != nil {
		t.Fatalf("LoadGrid: %v", err)
	}
	if grid.OccupiedCount() != 0 {
		t.Fatalf("fresh grid occupancy = %d", grid.OccupiedCount())
	}

	id := SlotID{Level: 3, Position: 2}
	if err := repo.SaveSlot(ctx, Slot{
		ID: id, Occupied: true, VehicleID: "veh-2", VehicleClass: ClassCompact,
		ParkedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("SaveSlot: %v", err)
	}

	// Warm restart: the grid comes back with the same occupancy.
	grid, err = LoadGrid(ctx, repo, 4, 5)
	if err != nil {
		t.Fatalf("LoadGrid: %v", err)
	}
	if grid.OccupiedCount() != 1 {
		t.Fatalf("occupancy after restart = %d, want 1", grid.OccupiedCount())
	}
	got, err := grid.FindVehicle("veh-2")
	if err != nil {
		t.Fatalf("FindVehicle: %v", err)
	}
	if got != id {
		t.Fatalf("FindVehicle = %s, want %s", got, id)
	}
}

func TestMockRepositoryMatchesInterface(t *testing.T) {
	var _ Repository = NewMockRepository()

	mock := NewMockRepository()
	ctx := context.Background()
	if err := mock.SeedSlots(ctx, 2, 2); err != nil {
		t.Fatalf("SeedSlots: %v", err)
	}
	grid, err := LoadGrid(ctx, mock, 2, 2)
	if err != nil {
		t.Fatalf("LoadGrid over mock: %v", err)
	}
	if len(grid.Snapshot()) != 4 {
		t.Fatalf("mock-backed grid has %d slots, want 4", len(grid.Snapshot()))
	}
}
