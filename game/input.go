package game

// Input is the set of already-resolved intents for one tank during one tick.
type Input struct {
	Left, Right         bool
	RotateCW, RotateCCW bool
	PowerUp, PowerDown  bool
	Fire                bool // edge: one shot per tick it is set
}

func (in Input) IsZero() bool {
	return in == Input{}
}
