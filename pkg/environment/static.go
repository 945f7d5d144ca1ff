// Package environment provides a ready-made engine environment backed by
// an in-memory mode, action set and variable map.
package environment

import (
	"maps"
	"sync"

	"github.com/dshills/keychord/pkg/condition"
	"github.com/dshills/keychord/pkg/domain/types"
)

// Static is a settable environment. It is safe for concurrent use.
type Static[M, A types.Token] struct {
	mu       sync.RWMutex
	mode     M
	actions  map[A]struct{}
	allowAll bool
	vars     condition.Variables
}

// New creates an environment in mode that recognizes the given actions.
func New[M, A types.Token](mode M, actions ...A) *Static[M, A] {
	s := &Static[M, A]{
		mode:    mode,
		actions: make(map[A]struct{}, len(actions)),
		vars:    make(condition.Variables),
	}
	for _, a := range actions {
		s.actions[a] = struct{}{}
	}
	return s
}

// Default returns a string-backed environment in the default mode that
// recognizes every action.
func Default() *Static[types.Mode, types.Action] {
	s := New[types.Mode, types.Action](types.DefaultMode)
	s.AllowAll(true)
	return s
}

// Mode returns the active mode.
func (s *Static[M, A]) Mode() M {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode changes the active mode.
func (s *Static[M, A]) SetMode(mode M) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// IsKnownAction reports whether a is recognized.
func (s *Static[M, A]) IsKnownAction(a A) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.allowAll {
		return true
	}
	_, ok := s.actions[a]
	return ok
}

// AddActions registers additional actions.
func (s *Static[M, A]) AddActions(actions ...A) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range actions {
		s.actions[a] = struct{}{}
	}
}

// AllowAll makes every action recognized when enabled.
func (s *Static[M, A]) AllowAll(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowAll = enabled
}

// Set assigns a variable.
func (s *Static[M, A]) Set(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[name] = value
}

// Unset removes a variable.
func (s *Static[M, A]) Unset(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vars, name)
}

// Variables returns a snapshot of the variables.
func (s *Static[M, A]) Variables() condition.Variables {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.vars)
}
