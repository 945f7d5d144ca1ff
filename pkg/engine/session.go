package engine

import (
	"github.com/dshills/keychord/pkg/domain/types"
	kcerrors "github.com/dshills/keychord/pkg/errors"
	"github.com/dshills/keychord/pkg/keymap"
	"github.com/google/uuid"
)

// Session is the incremental matching cursor for one input stream. It is
// not safe for concurrent use.
//
// Pending state is cleared on every terminal outcome, success or failure.
// If the environment's mode changes while keys are pending, the pending
// sequence is discarded and matching restarts in the new mode.
type Session[M, K, A types.Token] struct {
	id      string
	tree    *Tree[M, K, A]
	mode    M
	pending []K
	active  *keymap.Node[K]
}

func newSession[M, K, A types.Token](tree *Tree[M, K, A]) *Session[M, K, A] {
	return &Session[M, K, A]{id: uuid.NewString(), tree: tree}
}

// ID returns the session identifier used in logs and outcomes.
func (s *Session[M, K, A]) ID() string { return s.id }

// Pending returns a copy of the keys typed so far.
func (s *Session[M, K, A]) Pending() []K {
	return append([]K(nil), s.pending...)
}

// Active reports whether a sequence is in progress.
func (s *Session[M, K, A]) Active() bool { return s.active != nil }

// Reset discards any pending sequence.
func (s *Session[M, K, A]) Reset() {
	s.pending = nil
	s.active = nil
}

// HasNext reports whether key continues the pending sequence, or starts
// one when nothing is pending. It never mutates the session.
func (s *Session[M, K, A]) HasNext(env Environment[M, A], key K) bool {
	mode := env.Mode()
	node := s.active
	if node == nil || mode != s.mode {
		trie, ok := s.tree.tries[mode]
		if !ok {
			return false
		}
		node = trie.Root()
	}
	_, ok := node.Child(key)
	return ok
}

// Feed advances the session by one key. It returns the resolved actions
// when the key completes a sequence, and nil actions with a nil error when
// more input is expected.
//
// A node without children resolves immediately. A bound node with children
// waits for Terminate or an extension under PrefixWait, and resolves
// immediately under PrefixCommit.
func (s *Session[M, K, A]) Feed(env Environment[M, A], key K) ([]A, error) {
	mode := env.Mode()
	s.syncMode(mode)

	if s.active == nil {
		trie, ok := s.tree.tries[mode]
		if !ok {
			return nil, s.fail("feed", mode, []K{key}, &kcerrors.Error{
				Kind: kcerrors.KindModeNotBound,
				Key:  key.String(),
			})
		}
		s.mode = mode
		s.active = trie.Root()
	}

	s.pending = append(s.pending, key)
	child, ok := s.active.Child(key)
	if !ok {
		seq := s.Pending()
		s.Reset()
		return nil, s.fail("feed", mode, seq, &kcerrors.Error{
			Kind:     kcerrors.KindInvalidKeyCombination,
			Sequence: types.Strings(seq),
			Key:      key.String(),
		})
	}

	name, bound := child.Command()
	commit := !child.HasChildren() || (bound && s.tree.opts.prefix == PrefixCommit)
	if !commit {
		s.active = child
		return nil, nil
	}

	seq := s.Pending()
	s.Reset()
	if !bound {
		return nil, s.fail("feed", mode, seq, &kcerrors.Error{
			Kind:     kcerrors.KindIncompleteSequence,
			Sequence: types.Strings(seq),
		})
	}
	return s.tree.resolve(env, s.id, "feed", mode, seq, name)
}

// Terminate resolves the command bound at the pending position, even if
// longer sequences continue from it.
func (s *Session[M, K, A]) Terminate(env Environment[M, A]) ([]A, error) {
	mode := env.Mode()
	s.syncMode(mode)

	if s.active == nil {
		return nil, s.fail("terminate", mode, nil, &kcerrors.Error{Kind: kcerrors.KindNothingPending})
	}

	node := s.active
	seq := s.Pending()
	s.Reset()

	name, bound := node.Command()
	if !bound {
		return nil, s.fail("terminate", mode, seq, &kcerrors.Error{
			Kind:     kcerrors.KindIncompleteSequence,
			Sequence: types.Strings(seq),
		})
	}
	return s.tree.resolve(env, s.id, "terminate", mode, seq, name)
}

// syncMode discards the pending sequence when the mode has changed.
func (s *Session[M, K, A]) syncMode(mode M) {
	if s.active == nil || mode == s.mode {
		return
	}
	s.tree.opts.logger.Debug("mode changed, discarding pending keys",
		"session", s.id,
		"from", s.mode.String(),
		"to", mode.String(),
		"pending", types.Strings(s.pending),
	)
	s.Reset()
}

func (s *Session[M, K, A]) fail(op string, mode M, keys []K, e *kcerrors.Error) error {
	e.Op = op
	e.Mode = mode.String()
	s.tree.report(s.id, op, mode, keys, "", 0, e)
	return e
}
