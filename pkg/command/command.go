// Package command implements named, conditionally gated commands and the
// table that expands them into ordered action lists.
package command

import (
	"github.com/dshills/keychord/pkg/condition"
	"github.com/dshills/keychord/pkg/domain/types"
)

// StepKind distinguishes literal actions from command references.
type StepKind int

const (
	// StepAction is a literal action.
	StepAction StepKind = iota
	// StepCommand references another command by name.
	StepCommand
)

// String returns the string representation of a StepKind.
func (k StepKind) String() string {
	if k == StepCommand {
		return "command"
	}
	return "action"
}

// Step is one element of a command: an action or a command reference.
type Step[A types.Token] struct {
	kind    StepKind
	action  A
	command types.CommandName
}

// ActionStep returns a step that yields a.
func ActionStep[A types.Token](a A) Step[A] {
	return Step[A]{kind: StepAction, action: a}
}

// CommandStep returns a step that expands the named command.
func CommandStep[A types.Token](name types.CommandName) Step[A] {
	return Step[A]{kind: StepCommand, command: name}
}

// Kind returns the step kind.
func (s Step[A]) Kind() StepKind { return s.kind }

// Action returns the action and true for an action step.
func (s Step[A]) Action() (A, bool) {
	return s.action, s.kind == StepAction
}

// Command returns the referenced name and true for a command step.
func (s Step[A]) Command() (types.CommandName, bool) {
	return s.command, s.kind == StepCommand
}

// String returns the action or command name.
func (s Step[A]) String() string {
	if s.kind == StepCommand {
		return s.command.String()
	}
	return s.action.String()
}

// Command is an immutable named list of steps guarded by a condition.
type Command[A types.Token] struct {
	name      types.CommandName
	condition condition.Condition
	steps     []Step[A]
}

// New creates a command. An empty when means always.
func New[A types.Token](name types.CommandName, when string, steps ...Step[A]) *Command[A] {
	return &Command[A]{
		name:      name,
		condition: condition.New(when),
		steps:     append([]Step[A](nil), steps...),
	}
}

// Name returns the command name.
func (c *Command[A]) Name() types.CommandName { return c.name }

// Condition returns the command's gate.
func (c *Command[A]) Condition() condition.Condition { return c.condition }

// Steps returns a copy of the command's steps.
func (c *Command[A]) Steps() []Step[A] {
	return append([]Step[A](nil), c.steps...)
}

// References returns the command names referenced by the steps, in order.
func (c *Command[A]) References() []types.CommandName {
	var refs []types.CommandName
	for _, s := range c.steps {
		if name, ok := s.Command(); ok {
			refs = append(refs, name)
		}
	}
	return refs
}
