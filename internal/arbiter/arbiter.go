// Package arbiter sequences turns for one participant of a session.
//
// Every state change happens on the goroutine running Run: transport events, local
// timeouts and actions submitted through Do are handled one at a time. Whose slot is
// active is derived locally from the ordered finish events, so duplicate and stale
// events are dropped rather than reported.
package arbiter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/turnarbiter/internal/apperror"
	"github.com/rocketscienceinc/turnarbiter/internal/codec"
	"github.com/rocketscienceinc/turnarbiter/internal/entity"
	"github.com/rocketscienceinc/turnarbiter/internal/role"
)

const timeoutBuffer = 8

// Transport is the session collaborator: ordered broadcast to every participant,
// this one included.
type Transport interface {
	BeginTurn(ctx context.Context) error
	SendMove(ctx context.Context, payload string, final bool) error
	Events() <-chan entity.Event
}

// Game is the board or scene state a session plays on.
type Game interface {
	Apply(move entity.Move) error
	CommitPending()
	DiscardPending()
	Evaluate() entity.Outcome
}

// Spawner is implemented by games that receive synchronized object instantiation.
type Spawner interface {
	Spawn(payload string) error
}

type NoticeKind string

const (
	NoticeTurnBegins NoticeKind = "turn-begins"
	NoticeActivated  NoticeKind = "activated"
	NoticeTimedOut   NoticeKind = "timed-out"
	NoticeFinished   NoticeKind = "finished"
)

type Notice struct {
	Kind    NoticeKind
	Turn    entity.Turn
	Outcome entity.Outcome
}

// Observer runs on the arbiter goroutine and may call SendMove, EndTurn, EndTurnWith
// and BeginTurn directly.
type Observer func(ctx context.Context, that *Arbiter, notice Notice)

type Option func(*Arbiter)

// WithTimeout sets the countdown for an active slot. Zero disables local timeouts.
func WithTimeout(timeout time.Duration) Option {
	return func(that *Arbiter) {
		that.timeout = timeout
	}
}

// WithMaxTurns ends the session in a draw once the given turn completes.
func WithMaxTurns(maxTurns int) Option {
	return func(that *Arbiter) {
		that.maxTurns = maxTurns
	}
}

func WithObserver(observer Observer) Option {
	return func(that *Arbiter) {
		that.observer = observer
	}
}

type action struct {
	fn    func(ctx context.Context, that *Arbiter) error
	reply chan error
}

type Arbiter struct {
	logger    *slog.Logger
	transport Transport
	game      Game
	resolver  *role.Resolver

	timeout  time.Duration
	maxTurns int
	observer Observer

	turn         entity.Turn
	finished     map[int]bool
	myTurn       bool
	beginPending bool
	outcome      entity.Outcome

	timer    *time.Timer
	timeouts chan entity.Event
	actions  chan action
	done     chan struct{}
}

func New(logger *slog.Logger, transport Transport, game Game, resolver *role.Resolver, opts ...Option) (*Arbiter, error) {
	switch {
	case logger == nil:
		return nil, fmt.Errorf("%w: logger", apperror.ErrMissingCollaborator)
	case transport == nil:
		return nil, fmt.Errorf("%w: transport", apperror.ErrMissingCollaborator)
	case game == nil:
		return nil, fmt.Errorf("%w: game", apperror.ErrMissingCollaborator)
	case resolver == nil:
		return nil, fmt.Errorf("%w: role resolver", apperror.ErrMissingCollaborator)
	}

	local := resolver.Local()

	that := &Arbiter{
		logger:    logger.With("component", "arbiter", "participant", local.Name, "ordinal", local.Ordinal),
		transport: transport,
		game:      game,
		resolver:  resolver,

		finished: make(map[int]bool),
		outcome:  entity.Ongoing(),

		timeouts: make(chan entity.Event, timeoutBuffer),
		actions:  make(chan action),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(that)
	}

	return that, nil
}

// Run - handles events until the session is decided, the context ends or the transport closes.
func (that *Arbiter) Run(ctx context.Context) error {
	defer close(that.done)
	defer that.stopCountdown()

	events := that.transport.Events()

	for !that.Finished() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return apperror.ErrTransportClosed
			}
			that.Handle(ctx, event)
		case event := <-that.timeouts:
			that.Handle(ctx, event)
		case act := <-that.actions:
			act.reply <- act.fn(ctx, that)
		}
	}

	return nil
}

// Do - runs fn on the arbiter goroutine. Must not be called from an Observer.
func (that *Arbiter) Do(ctx context.Context, fn func(ctx context.Context, that *Arbiter) error) error {
	act := action{fn: fn, reply: make(chan error, 1)}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-that.done:
		return apperror.ErrSessionFinished
	case that.actions <- act:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-act.reply:
		return err
	}
}

// Handle - dispatches a single event. Not safe for concurrent use; Run calls it.
func (that *Arbiter) Handle(ctx context.Context, event entity.Event) {
	if that.Finished() {
		that.drop(event, "session finished")
		return
	}

	switch event.Kind {
	case entity.EventTurnBegins:
		that.onTurnBegins(ctx, event)
	case entity.EventPlayerMove:
		that.onPlayerMove(event)
	case entity.EventPlayerFinished:
		that.onPlayerFinished(ctx, event)
	case entity.EventTurnCompleted:
		that.onTurnCompleted(ctx, event)
	case entity.EventTurnTimeEnds:
		that.onTurnTimeout(ctx, event)
	case entity.EventObjectSpawned:
		that.onObjectSpawned(event)
	default:
		that.drop(event, "unknown event kind")
	}
}

// BeginTurn - starts the next turn. Only the host begins turns.
func (that *Arbiter) BeginTurn(ctx context.Context) error {
	if that.Finished() {
		return apperror.ErrSessionFinished
	}

	if !that.resolver.IsHost() {
		return apperror.ErrNotHost
	}

	if that.beginPending || (that.turn.Seq > 0 && !that.turn.Completed) {
		return apperror.ErrTurnInProgress
	}

	if err := that.transport.BeginTurn(ctx); err != nil {
		return fmt.Errorf("failed to begin turn: %w", err)
	}

	that.beginPending = true

	return nil
}

// SendMove - broadcasts a pending move on cell with the local mark.
func (that *Arbiter) SendMove(ctx context.Context, cell string) error {
	if err := that.confirmMyTurn(); err != nil {
		return err
	}

	payload := codec.EncodeMove(cell, that.resolver.Local().Mark)
	if err := that.transport.SendMove(ctx, payload, false); err != nil {
		return fmt.Errorf("failed to send move: %w", err)
	}

	return nil
}

// EndTurn - broadcasts that the local slot is done. The next participant is derived by
// every participant from the finish event, not chosen here.
func (that *Arbiter) EndTurn(ctx context.Context) error {
	return that.finish(ctx, "")
}

// EndTurnWith - broadcasts a move on cell and ends the local slot in one message.
func (that *Arbiter) EndTurnWith(ctx context.Context, cell string) error {
	return that.finish(ctx, codec.EncodeMove(cell, that.resolver.Local().Mark))
}

func (that *Arbiter) Turn() entity.Turn {
	return that.turn
}

func (that *Arbiter) IsMyTurn() bool {
	return that.myTurn
}

func (that *Arbiter) Outcome() entity.Outcome {
	return that.outcome
}

func (that *Arbiter) Finished() bool {
	return that.outcome.IsTerminal()
}

func (that *Arbiter) Local() entity.Participant {
	return that.resolver.Local()
}

func (that *Arbiter) finish(ctx context.Context, payload string) error {
	if err := that.confirmMyTurn(); err != nil {
		return err
	}

	that.myTurn = false
	that.turn.Elapsed = true

	if err := that.transport.SendMove(ctx, payload, true); err != nil {
		that.myTurn = true
		that.turn.Elapsed = false

		return fmt.Errorf("failed to end turn: %w", err)
	}

	return nil
}

func (that *Arbiter) confirmMyTurn() error {
	if that.Finished() {
		return apperror.ErrSessionFinished
	}

	if !that.myTurn {
		return apperror.ErrNotYourTurn
	}

	return nil
}

func (that *Arbiter) onTurnBegins(ctx context.Context, event entity.Event) {
	if event.Seq <= that.turn.Seq {
		that.drop(event, "stale turn")
		return
	}

	that.beginPending = false
	that.turn = entity.Turn{Seq: event.Seq, Active: 0}
	that.finished = make(map[int]bool)
	that.myTurn = false
	that.game.DiscardPending()

	that.logger.Debug("turn begins", "seq", event.Seq)
	that.notify(ctx, NoticeTurnBegins)

	that.startCountdown(event.Seq, 0)

	// the host always plays the first slot of a turn
	if that.resolver.IsHost() {
		that.activate(ctx)
	}
}

func (that *Arbiter) onPlayerMove(event entity.Event) {
	if !that.isActiveSlot(event) {
		that.drop(event, "move outside the sender's slot")
		return
	}

	that.apply(event)
}

func (that *Arbiter) onPlayerFinished(ctx context.Context, event entity.Event) {
	if !that.isActiveSlot(event) {
		that.drop(event, "finish outside the sender's slot")
		return
	}

	from := *event.From
	that.finished[from.Ordinal] = true
	that.stopCountdown()

	if from.Ordinal == that.resolver.Local().Ordinal {
		that.myTurn = false
	}

	switch {
	case codec.IsSkip(event.Payload):
		that.game.DiscardPending()
	case event.Payload != "":
		that.apply(event)
	}

	that.game.CommitPending()

	if outcome := that.game.Evaluate(); outcome.IsTerminal() {
		that.end(ctx, outcome)
		return
	}

	next := from.Ordinal + 1
	that.turn.Active = next
	that.turn.Elapsed = false

	// the last slot finished; the turn completes through the transport
	if next >= that.resolver.Count() {
		return
	}

	that.startCountdown(that.turn.Seq, next)

	if that.resolver.IsMyTurnAfter(from) {
		that.activate(ctx)
	}
}

func (that *Arbiter) onTurnCompleted(ctx context.Context, event entity.Event) {
	if event.Seq != that.turn.Seq || that.turn.Completed {
		that.drop(event, "stale or duplicate completion")
		return
	}

	that.turn.Completed = true
	that.myTurn = false
	that.stopCountdown()
	that.game.DiscardPending()

	if that.maxTurns > 0 && that.turn.Seq >= that.maxTurns {
		that.logger.Info("turn limit reached", "seq", that.turn.Seq)
		that.end(ctx, entity.Draw())

		return
	}

	if !that.resolver.IsHost() {
		return
	}

	if err := that.BeginTurn(ctx); err != nil {
		that.logger.Error("failed to begin next turn", "error", err)
	}
}

func (that *Arbiter) onTurnTimeout(ctx context.Context, event entity.Event) {
	if event.Seq != that.turn.Seq || that.turn.Completed || event.Slot != that.turn.Active ||
		that.finished[event.Slot] || that.turn.Elapsed {
		that.drop(event, "stale or duplicate timeout")
		return
	}

	that.turn.Elapsed = true
	that.logger.Info("turn timed out", "seq", event.Seq, "slot", event.Slot)
	that.notify(ctx, NoticeTimedOut)

	if event.Slot != that.resolver.Local().Ordinal {
		return
	}

	// forced skip: the slot ends without applying anything
	that.myTurn = false
	if err := that.transport.SendMove(ctx, codec.SkipPayload, true); err != nil {
		that.logger.Error("failed to send forced skip", "error", err)
	}
}

func (that *Arbiter) onObjectSpawned(event entity.Event) {
	spawner, ok := that.game.(Spawner)
	if !ok {
		that.drop(event, "game does not spawn objects")
		return
	}

	if err := spawner.Spawn(event.Payload); err != nil {
		that.logger.Warn("rejected spawn", "payload", event.Payload, "error", err)
	}
}

func (that *Arbiter) isActiveSlot(event entity.Event) bool {
	return event.From != nil &&
		event.Seq == that.turn.Seq &&
		!that.turn.Completed &&
		event.From.Ordinal == that.turn.Active &&
		!that.finished[event.From.Ordinal]
}

func (that *Arbiter) apply(event entity.Event) {
	log := that.logger.With("method", "apply")

	cell, mark, err := codec.DecodeMove(event.Payload)
	if err != nil {
		log.Warn("rejected move", "payload", event.Payload, "error", err)
		return
	}

	if mark != event.From.Mark {
		log.Warn("rejected move", "payload", event.Payload,
			"error", fmt.Errorf("%w: mark %s does not belong to %s", apperror.ErrMalformedMove, mark, event.From.Name))
		return
	}

	move := entity.Move{From: *event.From, Cell: cell, Mark: mark, Final: event.Kind == entity.EventPlayerFinished}
	if err = that.game.Apply(move); err != nil {
		log.Warn("rejected move", "payload", event.Payload, "error", err)
	}
}

func (that *Arbiter) activate(ctx context.Context) {
	if that.myTurn {
		return
	}

	that.myTurn = true
	that.logger.Debug("my turn", "seq", that.turn.Seq)
	that.notify(ctx, NoticeActivated)
}

func (that *Arbiter) end(ctx context.Context, outcome entity.Outcome) {
	that.outcome = outcome
	that.myTurn = false
	that.stopCountdown()

	that.logger.Info("session finished", "state", outcome.State, "winner", outcome.Winner, "seq", that.turn.Seq)
	that.notify(ctx, NoticeFinished)
}

func (that *Arbiter) notify(ctx context.Context, kind NoticeKind) {
	if that.observer == nil {
		return
	}

	that.observer(ctx, that, Notice{Kind: kind, Turn: that.turn, Outcome: that.outcome})
}

func (that *Arbiter) startCountdown(seq, slot int) {
	that.stopCountdown()

	if that.timeout <= 0 {
		return
	}

	event := entity.Event{Kind: entity.EventTurnTimeEnds, Seq: seq, Slot: slot}
	that.timer = time.AfterFunc(that.timeout, func() {
		select {
		case that.timeouts <- event:
		default:
			// a full buffer only holds timeouts that are already stale
		}
	})
}

func (that *Arbiter) stopCountdown() {
	if that.timer != nil {
		that.timer.Stop()
		that.timer = nil
	}
}

func (that *Arbiter) drop(event entity.Event, reason string) {
	that.logger.Debug("dropped event", "kind", event.Kind, "seq", event.Seq, "reason", reason)
}
