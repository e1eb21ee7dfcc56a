// Package role answers "is it my turn" for one participant without a central authority.
// Every participant runs the same rule over the same ordered finish events, so they agree.
package role

import (
	"fmt"

	"github.com/rocketscienceinc/turnarbiter/internal/apperror"
	"github.com/rocketscienceinc/turnarbiter/internal/entity"
)

type Resolver struct {
	local entity.Participant
	count int
}

func New(local entity.Participant, count int) (*Resolver, error) {
	if count < 2 {
		return nil, apperror.ErrTooFewParticipants
	}

	if local.Ordinal < 0 || local.Ordinal >= count {
		return nil, fmt.Errorf("ordinal %d is outside a session of %d", local.Ordinal, count)
	}

	return &Resolver{
		local: local,
		count: count,
	}, nil
}

// IsHost is fixed at join time by the session layer.
func (that *Resolver) IsHost() bool {
	return that.local.IsHost()
}

func (that *Resolver) Local() entity.Participant {
	return that.local
}

func (that *Resolver) Count() int {
	return that.count
}

// Next returns the ordinal that follows, wrapping back to the host.
func (that *Resolver) Next(ordinal int) int {
	return (ordinal + 1) % that.count
}

func (that *Resolver) IsMyTurnAfter(finished entity.Participant) bool {
	return that.local.Ordinal == that.Next(finished.Ordinal)
}
