package apperror

import "errors"

var (
	ErrSessionFinished     = errors.New("session is already finished")
	ErrNotYourTurn         = errors.New("it's not your turn")
	ErrNotHost             = errors.New("only the host can begin a turn")
	ErrTurnInProgress      = errors.New("turn is still in progress")
	ErrCellCommitted       = errors.New("cell is already committed")
	ErrUnknownCell         = errors.New("unknown cell")
	ErrMalformedMove       = errors.New("malformed move payload")
	ErrMissingCollaborator = errors.New("missing collaborator")
	ErrTransportClosed     = errors.New("transport is closed")
	ErrTooFewParticipants  = errors.New("session needs at least two participants")
)
