// Package matchmaking pairs parties seeking player-versus-player
// encounters, with a bounded wait before falling back to regular zone
// content.
package matchmaking

import (
	"sync"
	"time"

	"github.com/mverrilli/deckbound/internal/game/combat"
	"github.com/mverrilli/deckbound/internal/game/dice"
	"github.com/mverrilli/deckbound/internal/game/encounter"
)

// Party is one matchmaking unit: a leader and their member ids.
type Party struct {
	ID        string
	MemberIDs []string
}

// entry is one waiting party. done flips exactly once, under the queue
// lock, whether by pairing, timeout, or cancellation.
type entry struct {
	party Party
	timer *encounter.Timer
	done  bool
}

// Queue holds per-zone FIFOs of waiting parties. A new request pairs
// with the oldest waiting party in its zone, or waits itself; waits
// that exceed the bound are dequeued exactly once and routed to the
// timeout callback.
type Queue struct {
	mu      sync.Mutex
	wait    time.Duration
	waiting map[string][]*entry

	onMatch   func(zoneID string, older, newer Party)
	onTimeout func(zoneID string, p Party)
}

// New creates a queue with the given wait bound and routing callbacks.
// Callbacks run outside the queue lock, on the caller's goroutine for
// matches and on the timer goroutine for timeouts.
//
// Precondition: wait > 0; both callbacks must be non-nil.
func New(wait time.Duration, onMatch func(zoneID string, older, newer Party), onTimeout func(zoneID string, p Party)) *Queue {
	return &Queue{
		wait:      wait,
		waiting:   make(map[string][]*entry),
		onMatch:   onMatch,
		onTimeout: onTimeout,
	}
}

// Enqueue submits a party for the given zone. With an opponent already
// waiting, both parties leave the queue and the match callback fires;
// otherwise the party waits with a fresh timeout timer.
func (q *Queue) Enqueue(zoneID string, p Party) {
	q.mu.Lock()
	list := q.waiting[zoneID]
	if len(list) > 0 {
		oldest := list[0]
		q.waiting[zoneID] = list[1:]
		oldest.done = true
		oldest.timer.Stop()
		q.mu.Unlock()
		q.onMatch(zoneID, oldest.party, p)
		return
	}
	e := &entry{party: p}
	e.timer = encounter.NewTimer(q.wait, func() {
		q.expire(zoneID, e)
	})
	q.waiting[zoneID] = append(q.waiting[zoneID], e)
	q.mu.Unlock()
}

// expire removes a timed-out entry. The done flag guards the race with a
// concurrent pairing: whichever side flips it first owns the dequeue.
func (q *Queue) expire(zoneID string, e *entry) {
	q.mu.Lock()
	if e.done {
		q.mu.Unlock()
		return
	}
	e.done = true
	q.remove(zoneID, e)
	q.mu.Unlock()
	q.onTimeout(zoneID, e.party)
}

// Cancel withdraws a waiting party, e.g. on disconnect. Returns false
// when the party is no longer queued.
func (q *Queue) Cancel(zoneID, partyID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.waiting[zoneID] {
		if e.party.ID != partyID || e.done {
			continue
		}
		e.done = true
		e.timer.Stop()
		q.remove(zoneID, e)
		return true
	}
	return false
}

// remove deletes e from its zone FIFO. Caller holds the lock.
func (q *Queue) remove(zoneID string, e *entry) {
	list := q.waiting[zoneID]
	for i := range list {
		if list[i] == e {
			q.waiting[zoneID] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Waiting returns the number of parties queued for a zone.
func (q *Queue) Waiting(zoneID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting[zoneID])
}

// HandicappedTeam picks, uniformly at random, the side that opens a new
// PvP encounter with a single action point for the very first phase.
func HandicappedTeam(src dice.Source) combat.Team {
	if src.Intn(2) == 0 {
		return combat.TeamA
	}
	return combat.TeamB
}
