package transfer

import (
	"math"

	"github.com/stackpark/stackpark-core/internal/infrastructure/config"
)

// depositLowerMm is the Z travel used to lower a vehicle onto a slot
// (and to lift one off during pickup).
const depositLowerMm = 300

// axisToleranceMm is the per-axis arrival window for platform motion.
const axisToleranceMm = 5

// Platform models the single shared transfer platform as three
// independent constant-speed axes. It is written only by the Sequencer;
// every other component sees it through the State copy.
type Platform struct {
	cfg config.PlatformConfig

	x, y, z                   float64
	targetX, targetY, targetZ float64
	moving                    bool
	held                      bool

	loadKg  float64
	secured bool
}

// NewPlatform creates a platform parked at the entry bay origin.
func NewPlatform(cfg config.PlatformConfig) *Platform {
	return &Platform{
		cfg: cfg,
		x:   float64(cfg.EntryBayXMm),
	}
}

// MoveTo sets a new axis target. Motion starts on the next Step.
func (p *Platform) MoveTo(x, y, z float64) {
	p.targetX, p.targetY, p.targetZ = x, y, z
	p.moving = true
}

// Halt freezes all axis motion for the current period without dropping
// the target. Used when the safety verdict is false.
func (p *Platform) Halt() {
	p.held = true
}

// Stop abandons the current target and stops.
func (p *Platform) Stop() {
	p.targetX, p.targetY, p.targetZ = p.x, p.y, p.z
	p.moving = false
	p.held = false
}

// Step advances each axis toward its target at the configured speed.
func (p *Platform) Step(dtSeconds float64) {
	if p.held {
		p.held = false
		return
	}
	if !p.moving {
		return
	}
	step := p.cfg.SpeedMms * dtSeconds
	p.x = approach(p.x, p.targetX, step)
	p.y = approach(p.y, p.targetY, step)
	p.z = approach(p.z, p.targetZ, step)
	if p.AtTarget() {
		p.moving = false
	}
}

// approach moves cur toward target by at most step.
func approach(cur, target, step float64) float64 {
	d := target - cur
	if math.Abs(d) <= step {
		return target
	}
	if d > 0 {
		return cur + step
	}
	return cur - step
}

// AtTarget reports whether every axis is within the arrival window.
func (p *Platform) AtTarget() bool {
	return math.Abs(p.targetX-p.x) <= axisToleranceMm &&
		math.Abs(p.targetY-p.y) <= axisToleranceMm &&
		math.Abs(p.targetZ-p.z) <= axisToleranceMm
}

// SetLoad records the load cell reading for the snapshot.
func (p *Platform) SetLoad(kg float64) { p.loadKg = kg }

// SetSecured records whether the vehicle restraints are engaged.
func (p *Platform) SetSecured(secured bool) { p.secured = secured }

// Secured reports whether a vehicle is restrained on the platform.
func (p *Platform) Secured() bool { return p.secured }

// Moving reports whether any axis has an unreached target.
func (p *Platform) Moving() bool { return p.moving }

// State returns the snapshot view of the platform.
func (p *Platform) State() PlatformState {
	mode := PlatformIdle
	switch {
	case p.held:
		mode = PlatformHeld
	case p.moving:
		mode = PlatformMoving
	}
	return PlatformState{
		XMm:            p.x,
		YMm:            p.y,
		ZMm:            p.z,
		TargetXMm:      p.targetX,
		TargetYMm:      p.targetY,
		TargetZMm:      p.targetZ,
		Mode:           mode,
		LoadKg:         p.loadKg,
		VehicleSecured: p.secured,
	}
}
