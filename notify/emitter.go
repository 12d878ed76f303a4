// Package notify fans progress events out to UI subscribers (toast /
// ARIA live-region layers). Publishing never blocks a mutation; slow
// subscribers drop events.
package notify

import (
	"sync"
	"time"

	"github.com/pqtu-edu/progresskit/model"
)

// EventType categorizes an emitted event.
type EventType string

const (
	EventXPGained            EventType = "xp_gained"
	EventLevelUp             EventType = "level_up"
	EventAchievementUnlocked EventType = "achievement_unlocked"
	EventSyncStatus          EventType = "sync_status"
)

// Event is one UI-facing notification. Exactly one payload field is set,
// matching Type.
type Event struct {
	Type        EventType           `json:"type"`
	Persona     model.Persona       `json:"persona,omitempty"`
	XPGain      *model.XPGainEvent  `json:"xp_gain,omitempty"`
	LevelUp     *model.LevelUpEvent `json:"level_up,omitempty"`
	Achievement *model.Achievement  `json:"achievement,omitempty"`
	SyncStatus  string              `json:"sync_status,omitempty"`
	At          time.Time           `json:"at"`
}

type subscriber struct {
	ch chan Event
}

// Emitter is an in-process fan-out for progress events.
type Emitter struct {
	mu      sync.RWMutex
	subs    []*subscriber
	bufSize int
	closed  bool
}

// NewEmitter creates an Emitter with the given per-subscriber buffer size.
func NewEmitter(bufSize int) *Emitter {
	if bufSize <= 0 {
		bufSize = 16
	}
	return &Emitter{bufSize: bufSize}
}

// Subscribe returns a channel of events and a cancel function. Cancel is
// idempotent and closes the channel.
func (e *Emitter) Subscribe() (<-chan Event, func()) {
	s := &subscriber{ch: make(chan Event, e.bufSize)}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}
	}
	e.subs = append(e.subs, s)
	e.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.mu.Lock()
			for i, sub := range e.subs {
				if sub == s {
					e.subs = append(e.subs[:i], e.subs[i+1:]...)
					break
				}
			}
			e.mu.Unlock()
			close(s.ch)
		})
	}
	return s.ch, cancel
}

// Publish delivers the event to every subscriber without blocking. Events
// for a full subscriber buffer are dropped.
func (e *Emitter) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}
	for _, s := range e.subs {
		select {
		case s.ch <- ev:
		default:
		}
	}
}

// Close closes every subscriber channel. Further publishes are no-ops.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for _, s := range e.subs {
		close(s.ch)
	}
	e.subs = nil
}
