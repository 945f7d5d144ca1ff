// Package engine builds the evaluation tree: one key trie per mode plus the
// shared command table. It resolves whole key sequences or key-by-key input
// into ordered action lists.
//
// A tree is built once and read-only afterwards. Incremental state lives in
// a Session; hosts with several input streams use one session per stream.
//
//	tree, err := engine.Build(data, engine.StringCodec(), env)
//	if err != nil {
//	    return err // *kcerrors.ValidationError with every finding
//	}
//	actions, err := tree.Evaluate(env, types.Keys("g", "g"))
package engine

import (
	"fmt"
	"sort"

	"github.com/dshills/keychord/pkg/command"
	"github.com/dshills/keychord/pkg/condition"
	"github.com/dshills/keychord/pkg/config"
	"github.com/dshills/keychord/pkg/domain/types"
	kcerrors "github.com/dshills/keychord/pkg/errors"
	"github.com/dshills/keychord/pkg/keymap"
)

// Environment supplies the active mode, the recognized actions and the
// variables conditions are evaluated against.
type Environment[M, A types.Token] interface {
	Mode() M
	IsKnownAction(A) bool
	Variables() condition.Variables
}

// ActionSet recognizes valid actions at build time.
type ActionSet[A types.Token] interface {
	IsKnownAction(A) bool
}

// Codec bundles the parsers that turn configuration strings into tokens.
type Codec[M, K, A types.Token] struct {
	Mode   types.Parser[M]
	Key    types.Parser[K]
	Action types.Parser[A]
}

// StringCodec returns the codec for the string-backed token types.
func StringCodec() Codec[types.Mode, types.Key, types.Action] {
	return Codec[types.Mode, types.Key, types.Action]{
		Mode:   types.ParseMode,
		Key:    types.ParseKey,
		Action: types.ParseAction,
	}
}

// Binding is one (mode, key sequence, command) triple.
type Binding[M, K types.Token] struct {
	Mode    M
	Keys    []K
	Command types.CommandName
}

// Tree owns the per-mode tries and the command table.
type Tree[M, K, A types.Token] struct {
	tries    map[M]*keymap.Trie[K]
	commands *command.Table[A]
	opts     options
	session  *Session[M, K, A]
}

// Build constructs a tree from raw configuration. Findings from commands
// and key maps are aggregated; on any finding no tree is returned. A nil
// actions set accepts every action.
func Build[M, K, A types.Token](data config.Data, codec Codec[M, K, A], actions ActionSet[A], opts ...Option) (*Tree[M, K, A], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var isKnown func(A) bool
	if actions != nil {
		isKnown = actions.IsKnownAction
	}
	checker, _ := o.evaluator.(condition.Checker)

	verr := &kcerrors.ValidationError{}
	table, err := command.Build(data.Commands, codec.Action, isKnown, checker)
	verr.Merge(err)

	names := data.CommandNames()
	tries := make(map[M]*keymap.Trie[K])
	for _, km := range data.KeyMaps {
		bindKeyMap(km, names, codec, tries, o.duplicates, verr)
	}

	if err := verr.Err(); err != nil {
		o.logger.Debug("key map build failed", "findings", verr.Len())
		return nil, err
	}

	t := &Tree[M, K, A]{tries: tries, commands: table, opts: o}
	t.session = t.NewSession()
	o.logger.Debug("key map built",
		"commands", table.Len(),
		"modes", len(tries),
		"prefix_policy", o.prefix.String(),
		"duplicate_policy", o.duplicates.String(),
	)
	return t, nil
}

func bindKeyMap[M, K, A types.Token](
	km config.KeyMap,
	names map[string]bool,
	codec Codec[M, K, A],
	tries map[M]*keymap.Trie[K],
	policy keymap.DuplicatePolicy,
	verr *kcerrors.ValidationError,
) {
	invalid := false
	if !names[km.Command] {
		verr.Add(&kcerrors.Error{
			Kind:    kcerrors.KindUnknownCommandReference,
			Op:      "build",
			Command: km.Command,
			Detail:  fmt.Sprintf("key map %s", formatKeys(km.Keys)),
		})
		invalid = true
	}

	keys := make([]K, 0, len(km.Keys))
	for _, raw := range km.Keys {
		k, err := codec.Key(raw)
		if err != nil {
			verr.Add(&kcerrors.Error{
				Kind:    kcerrors.KindInvalidToken,
				Op:      "build",
				Command: km.Command,
				Detail:  fmt.Sprintf("key %q in key map for command %s", raw, km.Command),
				Cause:   err,
			})
			invalid = true
			continue
		}
		keys = append(keys, k)
	}
	if len(km.Keys) == 0 {
		verr.Add(&kcerrors.Error{Kind: kcerrors.KindEmptySequence, Op: "build", Command: km.Command})
		invalid = true
	}

	rawModes := km.Modes
	if len(rawModes) == 0 {
		rawModes = []string{types.DefaultMode.String()}
	}
	modes := make([]M, 0, len(rawModes))
	for _, raw := range rawModes {
		m, err := codec.Mode(raw)
		if err != nil {
			verr.Add(&kcerrors.Error{
				Kind:    kcerrors.KindInvalidToken,
				Op:      "build",
				Command: km.Command,
				Detail:  fmt.Sprintf("mode %q in key map for command %s", raw, km.Command),
				Cause:   err,
			})
			invalid = true
			continue
		}
		modes = append(modes, m)
	}

	if invalid {
		return
	}

	for _, m := range modes {
		trie, ok := tries[m]
		if !ok {
			trie = keymap.New[K]()
			tries[m] = trie
		}
		if err := trie.Insert(keys, types.CommandName(km.Command), policy); err != nil {
			verr.Merge(kcerrors.WithMode(kcerrors.WithOp(err, "build"), m.String()))
		}
	}
}

// Evaluate resolves a complete key sequence in the environment's mode. The
// sequence must end exactly on a bound node.
func (t *Tree[M, K, A]) Evaluate(env Environment[M, A], keys []K) ([]A, error) {
	mode := env.Mode()
	trie, ok := t.tries[mode]
	if !ok {
		err := &kcerrors.Error{Kind: kcerrors.KindModeNotBound, Op: "evaluate", Mode: mode.String()}
		t.report("", "evaluate", mode, keys, "", 0, err)
		return nil, err
	}

	name, err := trie.Lookup(keys)
	if err != nil {
		err = kcerrors.WithMode(kcerrors.WithOp(err, "evaluate"), mode.String())
		t.report("", "evaluate", mode, keys, "", 0, err)
		return nil, err
	}

	return t.resolve(env, "", "evaluate", mode, keys, name)
}

// resolve expands name and reports the outcome. An empty expansion is a
// NoActionsProduced failure.
func (t *Tree[M, K, A]) resolve(env Environment[M, A], session, op string, mode M, keys []K, name types.CommandName) ([]A, error) {
	actions, err := t.commands.Resolve(name, t.opts.evaluator, env.Variables())
	if err == nil && len(actions) == 0 {
		err = &kcerrors.Error{Kind: kcerrors.KindNoActionsProduced, Command: name.String()}
	}
	if err != nil {
		err = kcerrors.WithMode(kcerrors.WithOp(err, op), mode.String())
		t.report(session, op, mode, keys, name, 0, err)
		return nil, err
	}

	t.report(session, op, mode, keys, name, len(actions), nil)
	return actions, nil
}

func (t *Tree[M, K, A]) report(session, op string, mode M, keys []K, name types.CommandName, n int, err error) {
	outcome := Outcome{
		Session: session,
		Op:      op,
		Mode:    mode.String(),
		Keys:    types.Strings(keys),
		Command: name.String(),
		Actions: n,
		Err:     err,
	}

	attrs := []any{"op", op, "mode", outcome.Mode, "keys", outcome.Keys}
	if session != "" {
		attrs = append(attrs, "session", session)
	}
	if err != nil {
		t.opts.logger.Debug("key sequence failed", append(attrs, "error", err)...)
	} else {
		t.opts.logger.Debug("key sequence resolved", append(attrs, "command", outcome.Command, "actions", n)...)
	}

	if t.opts.observer != nil {
		t.opts.observer.Observe(outcome)
	}
}

// NewSession returns a fresh incremental session over t.
func (t *Tree[M, K, A]) NewSession() *Session[M, K, A] {
	return newSession(t)
}

// HasNext reports whether key continues the default session's sequence.
func (t *Tree[M, K, A]) HasNext(env Environment[M, A], key K) bool {
	return t.session.HasNext(env, key)
}

// Feed feeds key to the default session.
func (t *Tree[M, K, A]) Feed(env Environment[M, A], key K) ([]A, error) {
	return t.session.Feed(env, key)
}

// Terminate forces resolution of the default session's pending sequence.
func (t *Tree[M, K, A]) Terminate(env Environment[M, A]) ([]A, error) {
	return t.session.Terminate(env)
}

// Session returns the default session used by HasNext, Feed and Terminate.
func (t *Tree[M, K, A]) Session() *Session[M, K, A] {
	return t.session
}

// Modes returns every mode with a trie, sorted by name.
func (t *Tree[M, K, A]) Modes() []M {
	modes := make([]M, 0, len(t.tries))
	for m := range t.tries {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i].String() < modes[j].String() })
	return modes
}

// Trie returns a copy of the trie bound to mode.
func (t *Tree[M, K, A]) Trie(mode M) (*keymap.Trie[K], bool) {
	trie, ok := t.tries[mode]
	if !ok {
		return nil, false
	}
	return trie.Clone(), true
}

// Commands returns the command table.
func (t *Tree[M, K, A]) Commands() *command.Table[A] {
	return t.commands
}

// Bindings re-derives every (mode, keys, command) triple from the tries,
// modes sorted by name and sequences in trie walk order.
func (t *Tree[M, K, A]) Bindings() []Binding[M, K] {
	var out []Binding[M, K]
	for _, m := range t.Modes() {
		t.tries[m].Walk(func(keys []K, name types.CommandName) {
			out = append(out, Binding[M, K]{Mode: m, Keys: keys, Command: name})
		})
	}
	return out
}

func formatKeys(keys []string) string {
	return fmt.Sprintf("%v", keys)
}
