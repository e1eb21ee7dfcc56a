package entity

// Turn is one round of the session. Slots are played in ordinal order, starting with the host.
type Turn struct {
	Seq       int  `json:"seq"`
	Active    int  `json:"active"`
	Elapsed   bool `json:"elapsed"`
	Completed bool `json:"completed"`
}

// Move is consumed by the game state as soon as it is decoded.
type Move struct {
	From  Participant `json:"from"`
	Cell  string      `json:"cell"`
	Mark  string      `json:"mark"`
	Final bool        `json:"final"`
}

type OutcomeState string

const (
	OutcomeOngoing OutcomeState = "ongoing"
	OutcomeWin     OutcomeState = "win"
	OutcomeDraw    OutcomeState = "draw"
)

type Outcome struct {
	State  OutcomeState `json:"state"`
	Winner string       `json:"winner,omitempty"`
}

func Ongoing() Outcome {
	return Outcome{State: OutcomeOngoing}
}

func Win(mark string) Outcome {
	return Outcome{State: OutcomeWin, Winner: mark}
}

func Draw() Outcome {
	return Outcome{State: OutcomeDraw}
}

func (that Outcome) IsTerminal() bool {
	return that.State == OutcomeWin || that.State == OutcomeDraw
}
