// Package session owns the state that survives snapshot refreshes: the
// user's selection and the per-process signal escalation memory. It is
// deliberately free of any UI or syscall dependency so the reconcile
// logic can be exercised with synthetic snapshots.
package session

import (
	"sort"
	"sync"

	"github.com/fastkill/fastkill/internal/procs"
)

// Exited reports a previously selected process that vanished from a
// snapshot. The name is retained for user-facing notices.
type Exited struct {
	ID   procs.Identity
	Name string
}

// Session tracks selected identities and which of them already received
// SIGTERM. Both the UI goroutine and the refresh goroutine touch it.
type Session struct {
	mu       sync.Mutex
	selected map[procs.Identity]string
	termSent map[procs.Identity]struct{}
}

// New returns an empty session.
func New() *Session {
	return &Session{
		selected: make(map[procs.Identity]string),
		termSent: make(map[procs.Identity]struct{}),
	}
}

// Toggle flips the selection for an identity and reports the new state.
func (s *Session) Toggle(id procs.Identity, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
		return false
	}
	s.selected[id] = name
	return true
}

// SetSelected forces the selection state for an identity.
func (s *Session) SetSelected(id procs.Identity, name string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.selected[id] = name
	} else {
		delete(s.selected, id)
	}
}

// IsSelected reports whether an identity is currently selected.
func (s *Session) IsSelected(id procs.Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.selected[id]
	return ok
}

// SelectedCount returns the number of selected identities.
func (s *Session) SelectedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.selected)
}

// Selected returns the selected identities with their names, ordered by
// PID for deterministic batches.
func (s *Session) Selected() []Exited {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Exited, 0, len(s.selected))
	for id, name := range s.selected {
		out = append(out, Exited{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.PID < out[j].ID.PID })
	return out
}

// Clear drops the whole selection, keeping escalation state intact.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[procs.Identity]string)
}

// TermSent reports whether SIGTERM was already delivered to the identity.
func (s *Session) TermSent(id procs.Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.termSent[id]
	return ok
}

// MarkTermSent records a delivered SIGTERM so the next kill action on the
// same identity escalates to SIGKILL.
func (s *Session) MarkTermSent(id procs.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.termSent[id] = struct{}{}
}

// Drop forgets an identity entirely, used when a signal reveals the
// process already exited.
func (s *Session) Drop(id procs.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selected, id)
	delete(s.termSent, id)
}

// Reconcile prunes state for identities absent from the snapshot and
// returns the selected ones that disappeared. A recycled PID carries a
// different start time, so it arrives with a clean slate.
func (s *Session) Reconcile(snap *procs.Snapshot) []Exited {
	s.mu.Lock()
	defer s.mu.Unlock()

	present := make(map[procs.Identity]struct{}, len(snap.Records))
	for _, rec := range snap.Records {
		present[rec.Identity()] = struct{}{}
	}

	var exited []Exited
	for id, name := range s.selected {
		if _, ok := present[id]; !ok {
			exited = append(exited, Exited{ID: id, Name: name})
			delete(s.selected, id)
		}
	}
	for id := range s.termSent {
		if _, ok := present[id]; !ok {
			delete(s.termSent, id)
		}
	}

	sort.Slice(exited, func(i, j int) bool { return exited[i].ID.PID < exited[j].ID.PID })
	return exited
}
