package transfer

import (
	"math"

	"github.com/stackpark/stackpark-core/internal/lift"
)

// SelectLift picks the available lift whose car is nearest the target
// level's shaft position, ties broken by ascending lift id. Returns nil
// when no lift is available.
func SelectLift(lifts []*lift.Controller, targetMm float64) *lift.Controller {
	var best *lift.Controller
	bestDist := math.Inf(1)
	for _, l := range lifts {
		if !l.Available() {
			continue
		}
		dist := math.Abs(l.PositionMm() - targetMm)
		if dist < bestDist {
			best = l
			bestDist = dist
		}
	}
	return best
}
