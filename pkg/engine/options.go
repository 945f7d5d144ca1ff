package engine

import (
	"log/slog"

	"github.com/dshills/keychord/pkg/condition"
	"github.com/dshills/keychord/pkg/keymap"
)

// PrefixPolicy decides how incremental evaluation treats a bound node that
// also has children, e.g. "g" bound alongside "g g".
type PrefixPolicy int

const (
	// PrefixWait keeps the sequence pending until Terminate or an extension.
	PrefixWait PrefixPolicy = iota
	// PrefixCommit resolves a bound node as soon as it is reached, making
	// its extensions unreachable through Feed.
	PrefixCommit
)

// String returns the string representation of a PrefixPolicy.
func (p PrefixPolicy) String() string {
	if p == PrefixCommit {
		return "commit"
	}
	return "wait"
}

type options struct {
	evaluator  condition.Evaluator
	logger     *slog.Logger
	observer   Observer
	duplicates keymap.DuplicatePolicy
	prefix     PrefixPolicy
}

func defaultOptions() options {
	return options{
		evaluator:  condition.NewExprEvaluator(),
		logger:     slog.New(slog.DiscardHandler),
		duplicates: keymap.Reject,
		prefix:     PrefixWait,
	}
}

// Option configures a Tree.
type Option func(*options)

// WithEvaluator sets the expression evaluator used for when conditions.
// Evaluators that also implement condition.Checker have every expression
// syntax-checked at build time. The default is an expr-lang evaluator.
func WithEvaluator(eval condition.Evaluator) Option {
	return func(o *options) {
		o.evaluator = eval
	}
}

// WithLogger sets the logger. Engine messages are logged at Debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver registers an observer for every terminal outcome.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithDuplicatePolicy sets how colliding key map records are handled.
func WithDuplicatePolicy(p keymap.DuplicatePolicy) Option {
	return func(o *options) {
		o.duplicates = p
	}
}

// WithPrefixPolicy sets how Feed treats bound nodes that have children.
func WithPrefixPolicy(p PrefixPolicy) Option {
	return func(o *options) {
		o.prefix = p
	}
}
