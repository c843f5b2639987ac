package signals

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Store is a latest-value store for field inputs.
//
// Field bridges push partial updates (typically via MQTT) as they arrive;
// the control loop samples the complete set exactly once per cycle with
// Snapshot. All methods are safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	in Inputs
}

// NewStore creates a Store with all interlocks intact and all subsystems
// healthy, so a facility with no field traffic yet boots into Normal
// rather than Emergency.
func NewStore() *Store {
	return &Store{
		in: Inputs{
			StopChainIntact:    true,
			MotorHealthy:       true,
			HydraulicHealthy:   true,
			VentilationHealthy: true,
			COHealthy:          true,
			TemperatureHealthy: true,
			HeartbeatOK:        true,
		},
	}
}

// Snapshot returns the current input values as an immutable copy.
func (s *Store) Snapshot() Inputs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.in
}

// ApplyJSON merges a partial JSON update into the store. Only fields
// present in the payload are changed, so bridges can publish narrow
// updates (e.g. just the load cell) without clobbering other inputs.
func (s *Store) ApplyJSON(payload []byte) error {
	var patch map[string]json.RawMessage
	if err := json.Unmarshal(payload, &patch); err != nil {
		return fmt.Errorf("signals: parsing input update: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Round-trip through the current value so absent fields keep their
	// previous state.
	current, err := json.Marshal(s.in)
	if err != nil {
		return fmt.Errorf("signals: encoding current inputs: %w", err)
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(current, &merged); err != nil {
		return fmt.Errorf("signals: decoding current inputs: %w", err)
	}
	for k, v := range patch {
		merged[k] = v
	}
	remarshalled, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("signals: encoding merged inputs: %w", err)
	}

	var next Inputs
	if err := json.Unmarshal(remarshalled, &next); err != nil {
		return fmt.Errorf("signals: decoding merged inputs: %w", err)
	}
	s.in = next
	return nil
}

// Update applies a mutation to the stored inputs under the lock.
// Used by simulators and tests to drive scenarios.
func (s *Store) Update(fn func(in *Inputs)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.in)
}
