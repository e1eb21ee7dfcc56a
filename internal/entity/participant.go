package entity

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/turnarbiter/internal/apperror"
)

type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

const (
	MarkO = "O"
	MarkX = "X"
)

// Marks are handed out by ordinal: the host plays O and the first guest X.
var Marks = []string{MarkO, MarkX, "T", "Z"}

// Participant is immutable once the session has started.
type Participant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Role    Role   `json:"role"`
	Ordinal int    `json:"ordinal"`
	Mark    string `json:"mark"`
}

func (that Participant) IsHost() bool {
	return that.Role == RoleHost
}

// NewParticipants seats the named players in order. The first one is the host.
func NewParticipants(names []string) ([]Participant, error) {
	if len(names) < 2 {
		return nil, apperror.ErrTooFewParticipants
	}

	if len(names) > len(Marks) {
		return nil, fmt.Errorf("%d participants requested, at most %d supported", len(names), len(Marks))
	}

	participants := make([]Participant, 0, len(names))
	for i, name := range names {
		participantRole := RoleGuest
		if i == 0 {
			participantRole = RoleHost
		}

		participants = append(participants, Participant{
			ID:      uuid.NewString(),
			Name:    name,
			Role:    participantRole,
			Ordinal: i,
			Mark:    Marks[i],
		})
	}

	return participants, nil
}

// FindByMark returns the participant playing the given mark.
func FindByMark(participants []Participant, mark string) (Participant, bool) {
	for _, participant := range participants {
		if participant.Mark == mark {
			return participant, true
		}
	}

	return Participant{}, false
}
