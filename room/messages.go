package room

import "artillery/game"

// Intent replaces the held input of a locally controlled tank. Fire is consumed by the
// next tick.
type Intent struct {
	Tank  game.EntityID
	Input game.Input
}

// AddTank spawns a locally controlled tank.
type AddTank struct {
	Name     string
	X        float64
	Friendly bool
	Reply    chan<- AddTankResult
}

type AddTankResult struct {
	Tank game.EntityID
}

// Snapshot asks for the scene as of the last tick.
type Snapshot struct {
	Reply chan<- game.Scene
}
