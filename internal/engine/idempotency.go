package engine

import (
	"fmt"
	"sync"
	"time"
)

// messageSeen is a thread-safe "seen recently" cache of (channel, message_id)
// pairs, suppressing reprocessing when the upstream collaborator redelivers
// a message after a reconnect (spec.md §7, "duplicate message id on the same
// channel within the idempotency window: skip silently").
//
// Grounded on the teacher's update-deduplication cache (same expireAt-map
// shape, same "nothing to do, lazily expire on access" policy), generalized
// from (chatID, msgID, editDate) to (channel, msgID) since alert-channel
// posts are never edited in place in this domain.
type messageSeen struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
}

func newMessageSeen(window time.Duration) *messageSeen {
	return &messageSeen{seen: make(map[string]time.Time), window: window}
}

// check reports whether (channel, id) was already recorded within window; if
// not, it records it and returns false.
func (s *messageSeen) check(channel string, id uint64, now time.Time) bool {
	key := fmt.Sprintf("%s:%d", channel, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if exp, ok := s.seen[key]; ok && now.Before(exp) {
		return true
	}
	s.seen[key] = now.Add(s.window)

	if len(s.seen)%256 == 0 {
		s.evictLocked(now)
	}
	return false
}

func (s *messageSeen) evictLocked(now time.Time) {
	for k, exp := range s.seen {
		if now.After(exp) {
			delete(s.seen, k)
		}
	}
}
