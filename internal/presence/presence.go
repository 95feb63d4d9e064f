// Package presence decides where a player is relative to their home and to world targets.
package presence

import (
	"math"

	"github.com/sumire/homestead/internal/domain"
)

// Presence is a player's evaluated position.
type Presence struct {
	Current      domain.Point `json:"current"`
	Home         domain.Point `json:"home"`
	DistanceHome float64      `json:"distance_home"`
	AtHome       bool         `json:"at_home"`
}

// Oracle evaluates player positions against fixed radii.
type Oracle struct {
	HomeRadius        float64
	InteractionRadius float64
}

// New returns an Oracle with the given home and interaction radii.
func New(homeRadius, interactionRadius float64) Oracle {
	return Oracle{HomeRadius: homeRadius, InteractionRadius: interactionRadius}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b domain.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Locate evaluates the player's presence.
func (o Oracle) Locate(p domain.Player) Presence {
	d := Distance(p.Position, p.Home)
	return Presence{
		Current:      p.Position,
		Home:         p.Home,
		DistanceHome: d,
		AtHome:       d <= o.HomeRadius,
	}
}

// AtHome reports whether the player is within the home radius.
func (o Oracle) AtHome(p domain.Player) bool {
	return o.Locate(p).AtHome
}

// InReach reports whether target is within the interaction radius of the player.
func (o Oracle) InReach(p domain.Player, target domain.Point) bool {
	return Distance(p.Position, target) <= o.InteractionRadius
}
