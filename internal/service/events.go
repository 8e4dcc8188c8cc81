package service

import (
	"sync"
	"time"
)

type EventType string

const EventTasksChanged EventType = "tasks_changed"
const EventAlert EventType = "alert"

// Event is delivered to subscribers after the store state has changed or when
// something should be shown to the user as a transient alert.
type Event struct {
	Type    EventType
	Message string
	Err     error
	At      time.Time
}

type eventBus struct {
	mtx  sync.RWMutex
	subs map[int]func(Event)
	next int
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[int]func(Event))}
}

func (b *eventBus) subscribe(fn func(Event)) func() {
	b.mtx.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mtx.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mtx.Lock()
			delete(b.subs, id)
			b.mtx.Unlock()
		})
	}
}

// publish is never called with the store mutex held, so subscribers may call back into the store.
func (b *eventBus) publish(ev Event) {
	b.mtx.RLock()
	subs := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mtx.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}
