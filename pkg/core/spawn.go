// pkg/core/spawn.go
package core

import "time"

// DefaultBetweenDelay separates units spawned from a point that does not
// configure its own delay.
const DefaultBetweenDelay = 200 * time.Millisecond

// Position is an opaque world coordinate handed to the Spawner.
type Position struct {
	X float64 `json:"x" mapstructure:"x"`
	Y float64 `json:"y" mapstructure:"y"`
	Z float64 `json:"z" mapstructure:"z"`
}

// SpawnPoint is a named location units appear at.
type SpawnPoint struct {
	Key          string
	Position     Position
	InitialDelay time.Duration
	BetweenDelay time.Duration
	// Radius jitters the spawn position within a disc on the XY plane.
	Radius float64
}

// Offset returns the point's position moved by dx, dy. Z stays on the point.
func (p *SpawnPoint) Offset(dx, dy float64) Position {
	return Position{X: p.Position.X + dx, Y: p.Position.Y + dy, Z: p.Position.Z}
}

// Unit is a spawned, killable instance.
type Unit interface {
	UnitID() string
	UnitType() UnitType
	// OnDeath registers fn to be called when the unit dies. Hosts may call
	// fn more than once; the tracker deduplicates.
	OnDeath(fn func())
}
