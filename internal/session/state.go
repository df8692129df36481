// Package session holds the set of currently authorized sessions and tells
// subscribers when it changes. A State is created by the server and passed
// to whoever needs it; there is no package-level instance.
package session

import (
	"sync"

	"github.com/sakif/family-catalog/internal/model"
)

type EventKind string

const (
	EventAuthorized EventKind = "authorized"
	EventRejected   EventKind = "rejected"
	EventSignedOut  EventKind = "signed_out"
)

// Event describes one transition. Session is set for EventAuthorized only;
// Reason is set for EventRejected.
type Event struct {
	Kind     EventKind
	Identity model.Identity
	Session  *model.AuthorizedSession
	Reason   error
}

type State struct {
	mu      sync.RWMutex
	current map[string]*model.AuthorizedSession
	subs    map[int]func(Event)
	nextSub int
}

func NewState() *State {
	return &State{
		current: make(map[string]*model.AuthorizedSession),
		subs:    make(map[int]func(Event)),
	}
}

// Subscribe registers fn for every future event and returns a function that
// removes it. fn runs on the publishing goroutine and must not call Publish.
func (s *State) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Publish applies ev to the current set and then notifies subscribers in
// registration order.
func (s *State) Publish(ev Event) {
	s.mu.Lock()
	switch ev.Kind {
	case EventAuthorized:
		if ev.Session != nil {
			s.current[ev.Session.AccountID()] = ev.Session
		}
	case EventRejected, EventSignedOut:
		delete(s.current, ev.Identity.AccountID)
	}
	subs := make([]func(Event), 0, len(s.subs))
	for id := 0; id < s.nextSub; id++ {
		if fn, ok := s.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// Current returns the last authorized session for accountID.
func (s *State) Current(accountID string) (*model.AuthorizedSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.current[accountID]
	return sess, ok
}
