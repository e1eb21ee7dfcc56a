package memory

import (
	"context"
	"sync"

	"github.com/rocketscienceinc/turnarbiter/internal/entity"
)

// Sessions hands out one hub per session id and forgets it once everyone left.
type Sessions struct {
	lock sync.Mutex
	hubs map[string]*Hub
}

func NewSessions() *Sessions {
	return &Sessions{hubs: make(map[string]*Hub)}
}

// Connect - joins participant to the session's hub, creating the hub for count
// participants on first use.
func (that *Sessions) Connect(ctx context.Context, session string, participant entity.Participant, count int) (*Endpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	that.lock.Lock()
	hub, ok := that.hubs[session]
	if !ok {
		hub = NewHub(count)
		hub.onEmpty = func() { that.forget(session, hub) }
		that.hubs[session] = hub
	}
	that.lock.Unlock()

	return hub.Join(participant)
}

func (that *Sessions) forget(session string, hub *Hub) {
	that.lock.Lock()
	defer that.lock.Unlock()

	if that.hubs[session] == hub {
		delete(that.hubs, session)
	}
}

func (that *Sessions) Len() int {
	that.lock.Lock()
	defer that.lock.Unlock()

	return len(that.hubs)
}

// End - closes the session's hub and forgets it.
func (that *Sessions) End(session string) {
	that.lock.Lock()
	hub, ok := that.hubs[session]
	delete(that.hubs, session)
	that.lock.Unlock()

	if ok {
		hub.Close()
	}
}
