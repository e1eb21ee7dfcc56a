// Package memory is an in-process session transport. Every event is fanned out to all
// endpoints under one lock, so all participants observe the same order.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/rocketscienceinc/turnarbiter/internal/apperror"
	"github.com/rocketscienceinc/turnarbiter/internal/entity"
)

type Hub struct {
	lock      sync.Mutex
	count     int
	seq       int
	finished  map[int]map[string]bool
	endpoints map[string]*Endpoint
	order     []*Endpoint
	closed    bool

	// onEmpty runs once the last endpoint has left.
	onEmpty func()
}

// NewHub - a hub for a session of count participants. A turn completes once count
// participants finished it.
func NewHub(count int) *Hub {
	return &Hub{
		count:     count,
		finished:  make(map[int]map[string]bool),
		endpoints: make(map[string]*Endpoint),
	}
}

// Join - connects a participant. Joining twice returns the same endpoint.
func (that *Hub) Join(participant entity.Participant) (*Endpoint, error) {
	that.lock.Lock()
	defer that.lock.Unlock()

	if that.closed {
		return nil, apperror.ErrTransportClosed
	}

	if endpoint, ok := that.endpoints[participant.ID]; ok {
		return endpoint, nil
	}

	endpoint := newEndpoint(that, participant)
	that.endpoints[participant.ID] = endpoint
	that.order = append(that.order, endpoint)

	go endpoint.pump()

	return endpoint, nil
}

// Close - disconnects every endpoint.
func (that *Hub) Close() {
	that.lock.Lock()
	endpoints := that.order
	that.closed = true
	that.lock.Unlock()

	for _, endpoint := range endpoints {
		endpoint.Close()
	}
}

func (that *Hub) beginTurn() error {
	that.lock.Lock()
	defer that.lock.Unlock()

	if that.closed {
		return apperror.ErrTransportClosed
	}

	that.seq++
	that.finished[that.seq] = make(map[string]bool)
	that.broadcast(entity.Event{Kind: entity.EventTurnBegins, Seq: that.seq})

	return nil
}

func (that *Hub) sendMove(from entity.Participant, payload string, final bool) error {
	that.lock.Lock()
	defer that.lock.Unlock()

	if that.closed {
		return apperror.ErrTransportClosed
	}

	kind := entity.EventPlayerMove
	if final {
		kind = entity.EventPlayerFinished
	}

	that.broadcast(entity.Event{Kind: kind, Seq: that.seq, From: &from, Payload: payload})

	if !final {
		return nil
	}

	finished, ok := that.finished[that.seq]
	if !ok || finished[from.ID] {
		return nil
	}

	finished[from.ID] = true
	if len(finished) == that.count {
		delete(that.finished, that.seq)
		that.broadcast(entity.Event{Kind: entity.EventTurnCompleted, Seq: that.seq})
	}

	return nil
}

func (that *Hub) instantiate(from entity.Participant, payload string) error {
	that.lock.Lock()
	defer that.lock.Unlock()

	if that.closed {
		return apperror.ErrTransportClosed
	}

	that.broadcast(entity.Event{Kind: entity.EventObjectSpawned, Seq: that.seq, From: &from, Payload: payload})

	return nil
}

func (that *Hub) leave(id string) {
	that.lock.Lock()
	delete(that.endpoints, id)
	empty := len(that.endpoints) == 0
	onEmpty := that.onEmpty
	that.lock.Unlock()

	if empty && onEmpty != nil {
		onEmpty()
	}
}

// broadcast must be called with the lock held.
func (that *Hub) broadcast(event entity.Event) {
	for _, endpoint := range that.order {
		if _, ok := that.endpoints[endpoint.participant.ID]; ok {
			endpoint.box.push(event)
		}
	}
}

// Endpoint is one participant's connection to the hub.
type Endpoint struct {
	hub         *Hub
	participant entity.Participant

	box    *mailbox
	events chan entity.Event
	stop   chan struct{}
	once   sync.Once
}

func newEndpoint(hub *Hub, participant entity.Participant) *Endpoint {
	return &Endpoint{
		hub:         hub,
		participant: participant,
		box:         newMailbox(),
		events:      make(chan entity.Event),
		stop:        make(chan struct{}),
	}
}

func (that *Endpoint) BeginTurn(ctx context.Context) error {
	if err := that.ready(ctx); err != nil {
		return err
	}

	if err := that.hub.beginTurn(); err != nil {
		return fmt.Errorf("failed to begin turn: %w", err)
	}

	return nil
}

func (that *Endpoint) SendMove(ctx context.Context, payload string, final bool) error {
	if err := that.ready(ctx); err != nil {
		return err
	}

	if err := that.hub.sendMove(that.participant, payload, final); err != nil {
		return fmt.Errorf("failed to send move: %w", err)
	}

	return nil
}

func (that *Endpoint) Instantiate(ctx context.Context, payload string) error {
	if err := that.ready(ctx); err != nil {
		return err
	}

	if err := that.hub.instantiate(that.participant, payload); err != nil {
		return fmt.Errorf("failed to instantiate: %w", err)
	}

	return nil
}

// Events is closed once the endpoint is closed.
func (that *Endpoint) Events() <-chan entity.Event {
	return that.events
}

func (that *Endpoint) Close() error {
	that.once.Do(func() {
		that.hub.leave(that.participant.ID)
		close(that.stop)
	})

	return nil
}

func (that *Endpoint) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case <-that.stop:
		return apperror.ErrTransportClosed
	default:
		return nil
	}
}

// pump delivers queued events in order until the endpoint is closed.
func (that *Endpoint) pump() {
	defer close(that.events)

	for {
		select {
		case <-that.stop:
			return
		case <-that.box.notify:
		}

		for _, event := range that.box.drain() {
			select {
			case that.events <- event:
			case <-that.stop:
				return
			}
		}
	}
}
