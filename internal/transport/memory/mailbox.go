package memory

import (
	"sync"

	"github.com/rocketscienceinc/turnarbiter/internal/entity"
)

// mailbox is an unbounded FIFO so the hub never blocks on a slow reader.
type mailbox struct {
	lock    sync.Mutex
	pending []entity.Event
	notify  chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (that *mailbox) push(event entity.Event) {
	that.lock.Lock()
	that.pending = append(that.pending, event)
	that.lock.Unlock()

	select {
	case that.notify <- struct{}{}:
	default:
	}
}

// drain removes and returns everything queued so far.
func (that *mailbox) drain() []entity.Event {
	that.lock.Lock()
	defer that.lock.Unlock()

	events := that.pending
	that.pending = nil

	return events
}

func (that *mailbox) size() int {
	that.lock.Lock()
	defer that.lock.Unlock()

	return len(that.pending)
}
