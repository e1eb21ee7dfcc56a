// Package redis is a session transport over Redis pub/sub. Each participant holds its
// own subscription to the session channel; the turn counter and the per-turn finished
// sets live in plain keys so every participant agrees on them.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/turnarbiter/internal/apperror"
	"github.com/rocketscienceinc/turnarbiter/internal/codec"
	"github.com/rocketscienceinc/turnarbiter/internal/entity"
)

const (
	eventBuffer = 64
	finishedTTL = time.Hour
)

type Transport struct {
	logger      *slog.Logger
	client      *redis.Client
	session     string
	participant entity.Participant
	count       int

	pubsub *redis.PubSub
	events chan entity.Event
	stop   chan struct{}
	once   sync.Once
}

// New - subscribes participant to the session channel. It returns once the subscription
// is confirmed, so nothing published afterwards is missed.
func New(
	ctx context.Context,
	logger *slog.Logger,
	client *redis.Client,
	session string,
	participant entity.Participant,
	count int,
) (*Transport, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client", apperror.ErrMissingCollaborator)
	}

	pubsub := client.Subscribe(ctx, eventsChannel(session))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to session %s: %w", session, err)
	}

	that := &Transport{
		logger:      logger.With("component", "redis-transport", "session", session, "participant", participant.Name),
		client:      client,
		session:     session,
		participant: participant,
		count:       count,
		pubsub:      pubsub,
		events:      make(chan entity.Event, eventBuffer),
		stop:        make(chan struct{}),
	}

	go that.listen()

	return that, nil
}

func (that *Transport) BeginTurn(ctx context.Context) error {
	seq, err := that.client.Incr(ctx, turnKey(that.session)).Result()
	if err != nil {
		return fmt.Errorf("failed to increment turn: %w", err)
	}

	return that.publish(ctx, entity.Event{Kind: entity.EventTurnBegins, Seq: int(seq)})
}

func (that *Transport) SendMove(ctx context.Context, payload string, final bool) error {
	seq, err := that.currentTurn(ctx)
	if err != nil {
		return err
	}

	kind := entity.EventPlayerMove
	if final {
		kind = entity.EventPlayerFinished
	}

	from := that.participant
	if err = that.publish(ctx, entity.Event{Kind: kind, Seq: seq, From: &from, Payload: payload}); err != nil {
		return err
	}

	if !final {
		return nil
	}

	return that.markFinished(ctx, seq)
}

func (that *Transport) Instantiate(ctx context.Context, payload string) error {
	seq, err := that.currentTurn(ctx)
	if err != nil {
		return err
	}

	from := that.participant

	return that.publish(ctx, entity.Event{Kind: entity.EventObjectSpawned, Seq: seq, From: &from, Payload: payload})
}

// Events is closed once the transport is closed.
func (that *Transport) Events() <-chan entity.Event {
	return that.events
}

func (that *Transport) Close() error {
	var err error

	that.once.Do(func() {
		close(that.stop)
		err = that.pubsub.Close()
	})

	if err != nil {
		return fmt.Errorf("failed to close subscription: %w", err)
	}

	return nil
}

// markFinished - records the local finish for seq. The participant completing the set
// announces the end of the turn.
func (that *Transport) markFinished(ctx context.Context, seq int) error {
	key := finishedKey(that.session, seq)

	var added, card *redis.IntCmd
	if _, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		added = pipe.SAdd(ctx, key, that.participant.ID)
		pipe.Expire(ctx, key, finishedTTL)
		card = pipe.SCard(ctx, key)

		return nil
	}); err != nil {
		return fmt.Errorf("failed to mark turn %d finished: %w", seq, err)
	}

	if added.Val() == 0 || card.Val() != int64(that.count) {
		return nil
	}

	return that.publish(ctx, entity.Event{Kind: entity.EventTurnCompleted, Seq: seq})
}

func (that *Transport) currentTurn(ctx context.Context) (int, error) {
	seq, err := that.client.Get(ctx, turnKey(that.session)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("failed to get current turn: %w", err)
	}

	return seq, nil
}

func (that *Transport) publish(ctx context.Context, event entity.Event) error {
	select {
	case <-that.stop:
		return apperror.ErrTransportClosed
	default:
	}

	data, err := codec.EncodeEvent(event)
	if err != nil {
		return err
	}

	if err = that.client.Publish(ctx, eventsChannel(that.session), data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Kind, err)
	}

	return nil
}

func (that *Transport) listen() {
	defer close(that.events)

	for msg := range that.pubsub.Channel() {
		event, err := codec.DecodeEvent([]byte(msg.Payload))
		if err != nil {
			that.logger.Warn("dropped message", "error", err)
			continue
		}

		select {
		case that.events <- event:
		case <-that.stop:
			return
		}
	}
}

func eventsChannel(session string) string {
	return "session:" + session + ":events"
}

func turnKey(session string) string {
	return "session:" + session + ":turn"
}

func finishedKey(session string, seq int) string {
	return fmt.Sprintf("session:%s:turn:%d:finished", session, seq)
}
