package session

import (
	"sync"

	"github.com/bryanchriswhite/FilterCam/internal/filter"
)

// Selection is the filter the user has chosen for the next capture. Reads and
// writes are serialized, so a capture snapshot never tears against Advance.
type Selection struct {
	mu      sync.RWMutex
	current filter.ID
	subs    map[chan filter.ID]struct{}
}

// NewSelection starts at NONE.
func NewSelection() *Selection {
	return &Selection{
		current: filter.None,
		subs:    make(map[chan filter.ID]struct{}),
	}
}

// Current returns the selected filter.
func (s *Selection) Current() filter.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Name returns the display name of the selected filter.
func (s *Selection) Name() string {
	return s.Current().String()
}

// Advance moves to the next filter in the cycle and returns it.
func (s *Selection) Advance() filter.ID {
	s.mu.Lock()
	s.current = s.current.Next()
	id := s.current
	s.notifyLocked(id)
	s.mu.Unlock()
	return id
}

// Reset returns to NONE.
func (s *Selection) Reset() {
	s.mu.Lock()
	s.current = filter.None
	s.notifyLocked(filter.None)
	s.mu.Unlock()
}

// Subscribe returns a channel that receives the selection after every
// change. Slow readers only ever see the latest value.
func (s *Selection) Subscribe() <-chan filter.ID {
	ch := make(chan filter.ID, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

// Unsubscribe stops delivery and closes ch.
func (s *Selection) Unsubscribe(ch <-chan filter.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		if sub == ch {
			delete(s.subs, sub)
			close(sub)
			return
		}
	}
}

func (s *Selection) notifyLocked(id filter.ID) {
	for ch := range s.subs {
		select {
		case ch <- id:
		default:
			// drop the stale value and replace it
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- id:
			default:
			}
		}
	}
}
