package facility

import (
	"time"
)

// Slot selection cost weights. Lower levels are strongly preferred, and
// within a level the positions nearest the lift corridor centre win.
const (
	costPerLevel          = 100
	costPerCentreDistance = 10
)

// Grid is the bounds-checked L×P slot arena.
//
// Out-of-range indices are rejected at the access boundary, so interior
// code never carries index validity checks. The grid is mutated only by
// the transfer sequencer while it holds the single active operation, so
// no internal locking is required (see the concurrency model in the core
// package).
type Grid struct {
	levels    int
	positions int
	slots     []Slot // row-major: (level-1)*positions + (position-1)
}

// NewGrid creates an empty grid with the given dimensions.
func NewGrid(levels, positions int) (*Grid, error) {
	if levels < 1 || positions < 1 {
		return nil, ErrInvalidGrid
	}

	g := &Grid{
		levels:    levels,
		positions: positions,
		slots:     make([]Slot, levels*positions),
	}
	for level := 1; level <= levels; level++ {
		for position := 1; position <= positions; position++ {
			g.slots[g.index(SlotID{level, position})] = Slot{
				ID: SlotID{Level: level, Position: position},
			}
		}
	}
	return g, nil
}

// Levels returns the number of storage levels.
func (g *Grid) Levels() int { return g.levels }

// Positions returns the number of positions per level.
func (g *Grid) Positions() int { return g.positions }

// index maps a validated SlotID to its backing array offset.
func (g *Grid) index(id SlotID) int {
	return (id.Level-1)*g.positions + (id.Position - 1)
}

// valid reports whether the SlotID lies inside the grid.
func (g *Grid) valid(id SlotID) bool {
	return id.Level >= 1 && id.Level <= g.levels &&
		id.Position >= 1 && id.Position <= g.positions
}

// Slot returns a copy of the slot at id.
func (g *Grid) Slot(id SlotID) (Slot, error) {
	if !g.valid(id) {
		return Slot{}, ErrInvalidSlot
	}
	return g.slots[g.index(id)], nil
}

// Restore overwrites one slot from persisted state. Used only while
// loading the grid at startup.
func (g *Grid) Restore(s Slot) error {
	if !g.valid(s.ID) {
		return ErrInvalidSlot
	}
	g.slots[g.index(s.ID)] = s
	return nil
}

// SetMaintenanceLock marks a slot unavailable for selection and
// retrieval without touching its occupancy.
func (g *Grid) SetMaintenanceLock(id SlotID, locked bool) error {
	if !g.valid(id) {
		return ErrInvalidSlot
	}
	g.slots[g.index(id)].MaintenanceLocked = locked
	return nil
}

// SelectSlot picks the free, unlocked slot with minimal cost
// level·100 + |position − centre|·10. Ties resolve in scan order
// (lowest level, then lowest position), which makes selection fully
// deterministic. Returns ErrNoSpace when nothing qualifies.
func (g *Grid) SelectSlot() (SlotID, error) {
	centre := (g.positions + 1) / 2

	best := SlotID{}
	bestCost := -1
	for level := 1; level <= g.levels; level++ {
		for position := 1; position <= g.positions; position++ {
			s := g.slots[g.index(SlotID{level, position})]
			if s.Occupied || s.MaintenanceLocked {
				continue
			}
			dist := position - centre
			if dist < 0 {
				dist = -dist
			}
			cost := level*costPerLevel + dist*costPerCentreDistance
			if bestCost < 0 || cost < bestCost {
				best = s.ID
				bestCost = cost
			}
		}
	}
	if bestCost < 0 {
		return SlotID{}, ErrNoSpace
	}
	return best, nil
}

// FindVehicle returns the slot holding the vehicle, if it is retrievable.
// Maintenance-locked slots are not valid retrieval targets even when
// occupied.
func (g *Grid) FindVehicle(vehicleID string) (SlotID, error) {
	if vehicleID == "" {
		return SlotID{}, ErrVehicleNotFound
	}
	for i := range g.slots {
		if g.slots[i].Occupied && g.slots[i].VehicleID == vehicleID {
			if !g.slots[i].Retrievable() {
				return SlotID{}, ErrVehicleNotFound
			}
			return g.slots[i].ID, nil
		}
	}
	return SlotID{}, ErrVehicleNotFound
}

// Occupy marks a slot as holding a vehicle. The slot must be free and
// inside the grid; double assignment is structurally impossible because
// selection and occupation both read the live table and only one
// operation is ever active.
func (g *Grid) Occupy(id SlotID, vehicleID string, class VehicleClass, at time.Time) error {
	if !g.valid(id) {
		return ErrInvalidSlot
	}
	s := &g.slots[g.index(id)]
	if s.Occupied {
		return ErrSlotOccupied
	}
	s.Occupied = true
	s.VehicleID = vehicleID
	s.VehicleClass = class
	s.ParkedAt = at
	return nil
}

// Vacate clears a slot after a successful pickup.
func (g *Grid) Vacate(id SlotID) error {
	if !g.valid(id) {
		return ErrInvalidSlot
	}
	s := &g.slots[g.index(id)]
	if !s.Occupied {
		return ErrSlotEmpty
	}
	s.Occupied = false
	s.VehicleID = ""
	s.VehicleClass = ""
	s.ParkedAt = time.Time{}
	return nil
}

// OccupiedCount returns the number of occupied slots.
func (g *Grid) OccupiedCount() int {
	n := 0
	for i := range g.slots {
		if g.slots[i].Occupied {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of every slot in scan order, for the read-only
// state snapshot and for persistence.
func (g *Grid) Snapshot() []Slot {
	out := make([]Slot, len(g.slots))
	copy(out, g.slots)
	return out
}
