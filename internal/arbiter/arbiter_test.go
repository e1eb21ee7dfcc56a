package arbiter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/turnarbiter/internal/apperror"
	"github.com/rocketscienceinc/turnarbiter/internal/board"
	"github.com/rocketscienceinc/turnarbiter/internal/codec"
	"github.com/rocketscienceinc/turnarbiter/internal/entity"
	"github.com/rocketscienceinc/turnarbiter/internal/role"
	"github.com/rocketscienceinc/turnarbiter/internal/tictactoe"
)

var errLinkDown = errors.New("link down")

type sentMove struct {
	payload string
	final   bool
}

// fakeTransport records what the arbiter broadcasts; tests feed events through Handle.
type fakeTransport struct {
	begins int
	moves  []sentMove
	err    error
	events chan entity.Event
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan entity.Event, 16)}
}

func (that *fakeTransport) BeginTurn(_ context.Context) error {
	if that.err != nil {
		return that.err
	}

	that.begins++

	return nil
}

func (that *fakeTransport) SendMove(_ context.Context, payload string, final bool) error {
	if that.err != nil {
		return that.err
	}

	that.moves = append(that.moves, sentMove{payload: payload, final: final})

	return nil
}

func (that *fakeTransport) Events() <-chan entity.Event {
	return that.events
}

type fixture struct {
	participants []entity.Participant
	arbiters     []*Arbiter
	transports   []*fakeTransport
	games        []*tictactoe.Game
	notices      [][]Notice
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	participants, err := entity.NewParticipants([]string{"host", "guest"})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{
		participants: participants,
		notices:      make([][]Notice, len(participants)),
	}

	for i, participant := range participants {
		resolver, err := role.New(participant, len(participants))
		require.NoError(t, err)

		transport := newFakeTransport()
		game := tictactoe.New(nil)

		observer := func(_ context.Context, _ *Arbiter, notice Notice) {
			f.notices[i] = append(f.notices[i], notice)
		}

		a, err := New(logger, transport, game, resolver, append([]Option{WithObserver(observer)}, opts...)...)
		require.NoError(t, err)

		f.arbiters = append(f.arbiters, a)
		f.transports = append(f.transports, transport)
		f.games = append(f.games, game)
	}

	return f
}

// broadcast delivers one event to every participant, as the transport would.
func (f *fixture) broadcast(ctx context.Context, event entity.Event) {
	for _, a := range f.arbiters {
		a.Handle(ctx, event)
	}
}

func (f *fixture) activeCount() int {
	active := 0
	for _, a := range f.arbiters {
		if a.IsMyTurn() {
			active++
		}
	}

	return active
}

func (f *fixture) from(ordinal int) *entity.Participant {
	participant := f.participants[ordinal]
	return &participant
}

func (f *fixture) count(ordinal int, kind NoticeKind) int {
	n := 0
	for _, notice := range f.notices[ordinal] {
		if notice.Kind == kind {
			n++
		}
	}

	return n
}

func TestNew(t *testing.T) {
	participants, err := entity.NewParticipants([]string{"host", "guest"})
	require.NoError(t, err)

	resolver, err := role.New(participants[0], 2)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("Missing transport is a configuration error", func(t *testing.T) {
		_, err := New(logger, nil, tictactoe.New(nil), resolver)

		assert.ErrorIs(t, err, apperror.ErrMissingCollaborator)
	})

	t.Run("Missing game is a configuration error", func(t *testing.T) {
		_, err := New(logger, newFakeTransport(), nil, resolver)

		assert.ErrorIs(t, err, apperror.ErrMissingCollaborator)
	})

	t.Run("Missing resolver is a configuration error", func(t *testing.T) {
		_, err := New(logger, newFakeTransport(), tictactoe.New(nil), nil)

		assert.ErrorIs(t, err, apperror.ErrMissingCollaborator)
	})
}

func TestArbiter_BeginTurn(t *testing.T) {
	ctx := context.Background()

	t.Run("Only the host begins the first turn", func(t *testing.T) {
		f := newFixture(t)

		// When: the guest tries to begin a turn
		err := f.arbiters[1].BeginTurn(ctx)

		// Then: ErrNotHost is returned and nothing is broadcast
		require.ErrorIs(t, err, apperror.ErrNotHost)
		assert.Zero(t, f.transports[1].begins)

		// When: the host begins
		require.NoError(t, f.arbiters[0].BeginTurn(ctx))

		// Then: the transport is asked once
		assert.Equal(t, 1, f.transports[0].begins)
	})

	t.Run("Begin twice before the turn arrives is refused", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.arbiters[0].BeginTurn(ctx))

		err := f.arbiters[0].BeginTurn(ctx)

		require.ErrorIs(t, err, apperror.ErrTurnInProgress)
		assert.Equal(t, 1, f.transports[0].begins)
	})

	t.Run("Begin while a turn runs is refused", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.arbiters[0].BeginTurn(ctx))
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})

		err := f.arbiters[0].BeginTurn(ctx)

		assert.ErrorIs(t, err, apperror.ErrTurnInProgress)
	})

	t.Run("Transport failure is returned", func(t *testing.T) {
		f := newFixture(t)
		f.transports[0].err = errLinkDown

		err := f.arbiters[0].BeginTurn(ctx)

		require.ErrorIs(t, err, errLinkDown)

		// And: a retry is allowed once the link is back
		f.transports[0].err = nil
		assert.NoError(t, f.arbiters[0].BeginTurn(ctx))
	})
}

func TestArbiter_TurnBegins(t *testing.T) {
	ctx := context.Background()

	t.Run("Host plays the first slot", func(t *testing.T) {
		f := newFixture(t)

		// When: turn 1 begins
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})

		// Then: only the host is active
		assert.True(t, f.arbiters[0].IsMyTurn())
		assert.False(t, f.arbiters[1].IsMyTurn())
		assert.Equal(t, entity.Turn{Seq: 1, Active: 0}, f.arbiters[1].Turn())
		assert.Equal(t, 1, f.count(0, NoticeActivated))
	})

	t.Run("Duplicate turn begins is dropped", func(t *testing.T) {
		f := newFixture(t)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})

		// When: the same turn begins again
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})

		// Then: the host is not activated twice
		assert.Equal(t, 1, f.count(0, NoticeActivated))
		assert.Equal(t, 1, f.count(1, NoticeTurnBegins))
	})
}

func TestArbiter_SendMove(t *testing.T) {
	ctx := context.Background()

	t.Run("Move is refused outside my turn", func(t *testing.T) {
		f := newFixture(t)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})

		err := f.arbiters[1].SendMove(ctx, "A1")

		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		assert.Empty(t, f.transports[1].moves)
	})

	t.Run("Move is broadcast with my mark", func(t *testing.T) {
		f := newFixture(t)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})

		require.NoError(t, f.arbiters[0].SendMove(ctx, "A1"))

		assert.Equal(t, []sentMove{{payload: "A1, O"}}, f.transports[0].moves)
	})

	t.Run("Pending moves are overwritten within the slot", func(t *testing.T) {
		f := newFixture(t)
		host := f.from(0)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})

		// When: the host moves twice before finishing
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerMove, Seq: 1, From: host, Payload: "A1, O"})
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerMove, Seq: 1, From: host, Payload: "B2, O"})
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: host})

		// Then: only the last move is committed on every participant
		for _, game := range f.games {
			assert.NotContains(t, game.Open(), "B2")
			assert.Contains(t, game.Open(), "A1")
		}
	})
}

func TestArbiter_PlayerFinished(t *testing.T) {
	ctx := context.Background()

	t.Run("Guest becomes active after the host finishes", func(t *testing.T) {
		// Given: turn 1 with the host active
		f := newFixture(t)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})

		// When: the host sends A1 with finalize
		require.NoError(t, f.arbiters[0].EndTurnWith(ctx, "A1"))
		require.Equal(t, []sentMove{{payload: "A1, O", final: true}}, f.transports[0].moves)

		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: f.from(0), Payload: "A1, O"})

		// Then: the guest is active and A1 is committed everywhere
		assert.False(t, f.arbiters[0].IsMyTurn())
		assert.True(t, f.arbiters[1].IsMyTurn())
		assert.Equal(t, 1, f.arbiters[1].Turn().Active)

		for _, game := range f.games {
			assert.Contains(t, game.Cells(), board.Cell{Name: "A1", Content: entity.MarkO, Committed: true})
		}
	})

	t.Run("Duplicate finish does not activate twice", func(t *testing.T) {
		f := newFixture(t)
		finished := entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: f.from(0), Payload: "A1, O"}
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})
		f.broadcast(ctx, finished)

		// When: the same finish is delivered again
		f.broadcast(ctx, finished)

		// Then: the guest was activated once and is still the only active participant
		assert.Equal(t, 1, f.count(1, NoticeActivated))
		assert.Equal(t, 1, f.activeCount())
	})

	t.Run("Finish from a participant that is not active is dropped", func(t *testing.T) {
		f := newFixture(t)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})

		// When: the guest's finish arrives before the host finished
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: f.from(1), Payload: "B2, X"})

		// Then: nothing changes
		assert.True(t, f.arbiters[0].IsMyTurn())
		assert.False(t, f.arbiters[1].IsMyTurn())
		assert.Len(t, f.games[0].Open(), 9)
	})

	t.Run("Stale finish for an older turn is dropped", func(t *testing.T) {
		f := newFixture(t)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 2})

		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: f.from(0), Payload: "A1, O"})

		assert.True(t, f.arbiters[0].IsMyTurn())
		assert.Len(t, f.games[1].Open(), 9)
	})

	t.Run("Malformed payload is rejected and the session continues", func(t *testing.T) {
		f := newFixture(t)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})

		// When: the host finishes with an unparsable move
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: f.from(0), Payload: "garbage"})

		// Then: the board is unchanged and the guest plays next
		assert.Len(t, f.games[1].Open(), 9)
		assert.True(t, f.arbiters[1].IsMyTurn())
		assert.False(t, f.arbiters[1].Finished())
	})

	t.Run("Move carrying another participant's mark is rejected", func(t *testing.T) {
		f := newFixture(t)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})

		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerMove, Seq: 1, From: f.from(0), Payload: "A1, X"})
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: f.from(0)})

		assert.Len(t, f.games[1].Open(), 9)
	})

	t.Run("Move on a committed cell is rejected", func(t *testing.T) {
		f := newFixture(t)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: f.from(0), Payload: "A1, O"})

		// When: the guest plays on A1
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: f.from(1), Payload: "A1, X"})

		// Then: A1 keeps O
		assert.Contains(t, f.games[0].Cells(), board.Cell{Name: "A1", Content: entity.MarkO, Committed: true})
	})

	t.Run("Last slot leaves nobody active until the turn completes", func(t *testing.T) {
		f := newFixture(t)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: f.from(0), Payload: "A1, O"})

		// When: the guest finishes the last slot
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: f.from(1), Payload: "B1, X"})

		// Then: no participant is active
		assert.Zero(t, f.activeCount())
		assert.Equal(t, 1, f.count(0, NoticeActivated))
	})
}

func TestArbiter_PlayerMove(t *testing.T) {
	ctx := context.Background()

	t.Run("Move for an inactive turn is dropped", func(t *testing.T) {
		f := newFixture(t)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})

		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerMove, Seq: 7, From: f.from(0), Payload: "A1, O"})
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: f.from(0)})

		assert.Len(t, f.games[0].Open(), 9)
	})

	t.Run("Move without a sender is dropped", func(t *testing.T) {
		f := newFixture(t)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})

		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerMove, Seq: 1, Payload: "A1, O"})
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: f.from(0)})

		assert.Len(t, f.games[0].Open(), 9)
	})
}

func TestArbiter_EndTurn(t *testing.T) {
	ctx := context.Background()

	t.Run("Marks the turn elapsed and broadcasts completion intent", func(t *testing.T) {
		f := newFixture(t)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})

		require.NoError(t, f.arbiters[0].EndTurn(ctx))

		assert.True(t, f.arbiters[0].Turn().Elapsed)
		assert.False(t, f.arbiters[0].IsMyTurn())
		assert.Equal(t, []sentMove{{payload: "", final: true}}, f.transports[0].moves)
	})

	t.Run("Ending twice is refused", func(t *testing.T) {
		f := newFixture(t)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})
		require.NoError(t, f.arbiters[0].EndTurn(ctx))

		err := f.arbiters[0].EndTurn(ctx)

		assert.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})

	t.Run("Failed broadcast keeps the slot", func(t *testing.T) {
		f := newFixture(t)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})
		f.transports[0].err = errLinkDown

		err := f.arbiters[0].EndTurn(ctx)

		require.ErrorIs(t, err, errLinkDown)
		assert.True(t, f.arbiters[0].IsMyTurn())
		assert.False(t, f.arbiters[0].Turn().Elapsed)
	})
}

func TestArbiter_TurnCompleted(t *testing.T) {
	ctx := context.Background()

	t.Run("Host begins the next turn once", func(t *testing.T) {
		// Given: both slots of turn 1 finished
		f := newFixture(t)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: f.from(0), Payload: "A1, O"})
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: f.from(1), Payload: "B1, X"})

		// When: the completion is delivered twice
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnCompleted, Seq: 1})
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnCompleted, Seq: 1})

		// Then: only the host asked for the next turn, and only once
		assert.Equal(t, 1, f.transports[0].begins)
		assert.Zero(t, f.transports[1].begins)
		assert.True(t, f.arbiters[1].Turn().Completed)
	})

	t.Run("Next turn starts with the host again", func(t *testing.T) {
		f := newFixture(t)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: f.from(0), Payload: "A1, O"})
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: f.from(1), Payload: "B1, X"})
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnCompleted, Seq: 1})

		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 2})

		assert.True(t, f.arbiters[0].IsMyTurn())
		assert.Equal(t, 1, f.activeCount())
		assert.Equal(t, entity.Turn{Seq: 2}, f.arbiters[0].Turn())
	})

	t.Run("Turn limit ends the session in a draw", func(t *testing.T) {
		f := newFixture(t, WithMaxTurns(1))
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: f.from(0)})
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: f.from(1)})

		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnCompleted, Seq: 1})

		for _, a := range f.arbiters {
			assert.Equal(t, entity.Draw(), a.Outcome())
		}
		assert.Zero(t, f.transports[0].begins)
	})
}

func TestArbiter_Timeout(t *testing.T) {
	ctx := context.Background()

	t.Run("Timeout before any move skips to the next participant", func(t *testing.T) {
		// Given: turn 1 with the host active and a pending move
		f := newFixture(t)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerMove, Seq: 1, From: f.from(0), Payload: "A1, O"})

		// When: every participant's countdown for the host slot expires
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnTimeEnds, Seq: 1, Slot: 0})

		// Then: the host broadcast a forced skip and nobody else did
		require.Equal(t, []sentMove{{payload: codec.SkipPayload, final: true}}, f.transports[0].moves)
		assert.Empty(t, f.transports[1].moves)
		assert.Equal(t, 1, f.count(1, NoticeTimedOut))

		// When: the forced skip is delivered
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: f.from(0), Payload: codec.SkipPayload})

		// Then: the board is unchanged and the guest is active
		for _, game := range f.games {
			assert.Len(t, game.Open(), 9)
		}
		assert.True(t, f.arbiters[1].IsMyTurn())
		assert.Equal(t, 1, f.activeCount())
	})

	t.Run("Duplicate timeout is ignored", func(t *testing.T) {
		f := newFixture(t)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})

		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnTimeEnds, Seq: 1, Slot: 0})
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnTimeEnds, Seq: 1, Slot: 0})

		assert.Len(t, f.transports[0].moves, 1)
	})

	t.Run("Timeout after the slot finished is stale", func(t *testing.T) {
		f := newFixture(t)
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: 1, From: f.from(0), Payload: "A1, O"})

		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnTimeEnds, Seq: 1, Slot: 0})

		assert.Zero(t, f.count(1, NoticeTimedOut))
		assert.True(t, f.arbiters[1].IsMyTurn())
	})

	t.Run("Local countdown fires through Run", func(t *testing.T) {
		// Given: a host with a short countdown running its loop
		f := newFixture(t, WithTimeout(10*time.Millisecond))
		runCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()

		host := f.arbiters[0]
		errCh := make(chan error, 1)
		go func() { errCh <- host.Run(runCtx) }()

		// When: turn 1 begins and the host never moves
		f.transports[0].events <- entity.Event{Kind: entity.EventTurnBegins, Seq: 1}

		// Then: the host eventually sends a forced skip
		require.Eventually(t, func() bool {
			var moves int
			err := host.Do(runCtx, func(_ context.Context, that *Arbiter) error {
				moves = len(f.transports[0].moves)
				return nil
			})
			return err == nil && moves == 1
		}, time.Second, 5*time.Millisecond)

		cancel()
		assert.ErrorIs(t, <-errCh, context.Canceled)
	})
}

func TestArbiter_Outcome(t *testing.T) {
	ctx := context.Background()

	// playSlot finishes the active slot of turn seq with a move on cell.
	playSlot := func(f *fixture, seq, ordinal int, cell string) {
		from := f.from(ordinal)
		f.broadcast(ctx, entity.Event{Kind: entity.EventPlayerFinished, Seq: seq, From: from, Payload: codec.EncodeMove(cell, from.Mark)})
	}

	t.Run("Winning line ends the session for everyone", func(t *testing.T) {
		f := newFixture(t)

		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 1})
		playSlot(f, 1, 0, "A1")
		playSlot(f, 1, 1, "B1")
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnCompleted, Seq: 1})

		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 2})
		playSlot(f, 2, 0, "A2")
		playSlot(f, 2, 1, "B2")
		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnCompleted, Seq: 2})

		f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: 3})
		playSlot(f, 3, 0, "A3")

		for i, a := range f.arbiters {
			assert.Equal(t, entity.Win(entity.MarkO), a.Outcome())
			assert.True(t, a.Finished())
			assert.Equal(t, 1, f.count(i, NoticeFinished))
		}
		assert.Zero(t, f.activeCount())

		// And: the guest can no longer move
		assert.ErrorIs(t, f.arbiters[1].SendMove(ctx, "C1"), apperror.ErrSessionFinished)
		assert.ErrorIs(t, f.arbiters[0].BeginTurn(ctx), apperror.ErrSessionFinished)
	})

	t.Run("At most one participant is active at every step", func(t *testing.T) {
		f := newFixture(t)
		cells := []string{"A1", "B1", "A2", "B2", "C1", "C2", "B3", "A3", "C3"}

		seq := 0
		for i, cell := range cells {
			ordinal := i % 2
			if ordinal == 0 {
				seq++
				f.broadcast(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: seq})
				require.LessOrEqual(t, f.activeCount(), 1)
			}

			playSlot(f, seq, ordinal, cell)
			require.LessOrEqual(t, f.activeCount(), 1)

			if ordinal == 1 {
				f.broadcast(ctx, entity.Event{Kind: entity.EventTurnCompleted, Seq: seq})
				require.Zero(t, f.activeCount())
			}
		}

		assert.Equal(t, entity.Draw(), f.arbiters[0].Outcome())
	})
}

func TestArbiter_Run(t *testing.T) {
	t.Run("Closed transport stops the loop", func(t *testing.T) {
		f := newFixture(t)
		close(f.transports[0].events)

		err := f.arbiters[0].Run(context.Background())

		assert.ErrorIs(t, err, apperror.ErrTransportClosed)
	})

	t.Run("Do after the loop ended reports a finished session", func(t *testing.T) {
		f := newFixture(t)
		close(f.transports[0].events)
		_ = f.arbiters[0].Run(context.Background())

		err := f.arbiters[0].Do(context.Background(), func(context.Context, *Arbiter) error { return nil })

		assert.ErrorIs(t, err, apperror.ErrSessionFinished)
	})
}
