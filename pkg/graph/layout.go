package graph

import (
	"math"

	"github.com/orgloom/livemap/backend/pkg/common"
)

const (
	ringCapacity = 12
	ringSpacing  = 220.0
)

// applyRadialLayout assigns default positions from final insertion order:
// the focal node at the origin, every later node on concentric rings.
// Positions are first-render hints; clients may reposition freely.
func applyRadialLayout(nodes []common.Node) {
	if len(nodes) == 0 {
		return
	}
	nodes[0].Position = &common.Position{}
	for i := 1; i < len(nodes); i++ {
		ring := (i-1)/ringCapacity + 1
		slot := (i - 1) % ringCapacity
		angle := 2 * math.Pi * float64(slot) / float64(ringCapacity)
		radius := float64(ring) * ringSpacing
		nodes[i].Position = &common.Position{
			X: roundCoord(radius * math.Cos(angle)),
			Y: roundCoord(radius * math.Sin(angle)),
		}
	}
}

// roundCoord trims coordinates to two decimals so serialized maps stay
// stable across platforms.
func roundCoord(v float64) float64 {
	return math.Round(v*100) / 100
}
