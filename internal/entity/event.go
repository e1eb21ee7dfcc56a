package entity

type EventKind string

const (
	EventTurnBegins     EventKind = "turn:begins"
	EventPlayerMove     EventKind = "player:move"
	EventPlayerFinished EventKind = "player:finished"
	EventTurnCompleted  EventKind = "turn:completed"
	EventTurnTimeEnds   EventKind = "turn:time-ends"
	EventObjectSpawned  EventKind = "object:spawned"
)

// Event is everything a participant can observe about the session.
// Slot is only meaningful for EventTurnTimeEnds.
type Event struct {
	Kind    EventKind    `json:"kind"`
	Seq     int          `json:"seq"`
	Slot    int          `json:"slot,omitempty"`
	From    *Participant `json:"from,omitempty"`
	Payload string       `json:"payload,omitempty"`
}
