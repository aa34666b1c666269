// Package inventory holds the items every actor carries.
package inventory

import (
	"sort"
	"sync"
)

// Store keeps item counts per actor. An item occupies as many slots as it
// takes full stacks to hold its count.
type Store struct {
	mu       sync.Mutex
	slots    int
	stackMax func(item string) int
	byActor  map[string]map[string]int
}

func New(slots int, stackMax func(item string) int) *Store {
	if stackMax == nil {
		stackMax = func(string) int { return 64 }
	}
	return &Store{slots: slots, stackMax: stackMax, byActor: map[string]map[string]int{}}
}

// TryAddUnique adds quantity of item to actor's inventory when all of it fits
// and reports whether it did. Nothing is added on failure.
func (s *Store) TryAddUnique(actor, item string, quantity int) bool {
	if item == "" || quantity <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	inv := s.byActor[actor]
	if inv == nil {
		inv = map[string]int{}
	}
	used := s.usedLocked(inv) - s.slotsFor(item, inv[item]) + s.slotsFor(item, inv[item]+quantity)
	if used > s.slots {
		return false
	}
	inv[item] += quantity
	s.byActor[actor] = inv
	return true
}

func (s *Store) Count(actor, item string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byActor[actor][item]
}

func (s *Store) UsedSlots(actor string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usedLocked(s.byActor[actor])
}

type Stack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// Snapshot lists the actor's items sorted by item id.
func (s *Store) Snapshot(actor string) []Stack {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv := s.byActor[actor]
	out := make([]Stack, 0, len(inv))
	for item, n := range inv {
		out = append(out, Stack{Item: item, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}

// Drop forgets the actor's inventory.
func (s *Store) Drop(actor string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byActor, actor)
}

func (s *Store) usedLocked(inv map[string]int) int {
	n := 0
	for item, c := range inv {
		n += s.slotsFor(item, c)
	}
	return n
}

func (s *Store) slotsFor(item string, count int) int {
	if count <= 0 {
		return 0
	}
	per := s.stackMax(item)
	if per < 1 {
		per = 1
	}
	return (count + per - 1) / per
}
