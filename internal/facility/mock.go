package facility

import (
	"context"
	"sync"
)

// MockRepository is an in-memory Repository for tests and for running
// the core without a database.
type MockRepository struct {
	mu       sync.Mutex
	slots    map[SlotID]Slot
	stats    Stats
	counters map[int]LiftCounters

	// SaveSlotCalls counts SaveSlot invocations, for asserting
	// persistence behaviour.
	SaveSlotCalls int

	// FailSaves makes every write return ErrInvalidSlot, for error-path
	// tests.
	FailSaves bool
}

// NewMockRepository creates an empty in-memory repository.
func NewMockRepository() *MockRepository {
	return &MockRepository{
		slots:    make(map[SlotID]Slot),
		counters: make(map[int]LiftCounters),
	}
}

// SeedSlots inserts any missing slot rows.
func (m *MockRepository) SeedSlots(_ context.Context, levels, positions int) error {
	if levels < 1 || positions < 1 {
		return ErrInvalidGrid
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for level := 1; level <= levels; level++ {
		for position := 1; position <= positions; position++ {
			id := SlotID{Level: level, Position: position}
			if _, ok := m.slots[id]; !ok {
				m.slots[id] = Slot{ID: id}
			}
		}
	}
	return nil
}

// LoadSlots returns every stored slot.
func (m *MockRepository) LoadSlots(_ context.Context) ([]Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Slot, 0, len(m.slots))
	for _, s := range m.slots {
		out = append(out, s)
	}
	return out, nil
}

// SaveSlot stores one slot.
func (m *MockRepository) SaveSlot(_ context.Context, s Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveSlotCalls++
	if m.FailSaves {
		return ErrInvalidSlot
	}
	m.slots[s.ID] = s
	return nil
}

// LoadStats returns the stored statistics.
func (m *MockRepository) LoadStats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats, nil
}

// SaveStats overwrites the stored statistics.
func (m *MockRepository) SaveStats(_ context.Context, stats Stats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSaves {
		return ErrInvalidSlot
	}
	m.stats = stats
	return nil
}

// LoadLiftCounters returns counters for every known lift.
func (m *MockRepository) LoadLiftCounters(_ context.Context) ([]LiftCounters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LiftCounters, 0, len(m.counters))
	for _, c := range m.counters {
		out = append(out, c)
	}
	return out, nil
}

// SaveLiftCounters upserts one lift's counters.
func (m *MockRepository) SaveLiftCounters(_ context.Context, c LiftCounters) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSaves {
		return ErrInvalidSlot
	}
	m.counters[c.LiftID] = c
	return nil
}
