package command

import (
	"sort"
	"strings"

	"github.com/dshills/keychord/pkg/condition"
	"github.com/dshills/keychord/pkg/domain/types"
	kcerrors "github.com/dshills/keychord/pkg/errors"
)

// Table maps command names to commands. It is read-only once built.
type Table[A types.Token] struct {
	commands map[types.CommandName]*Command[A]
	order    []types.CommandName
}

// NewTable builds a table from commands. Duplicate names, references to
// missing commands and reference cycles are all reported together in a
// *kcerrors.ValidationError.
func NewTable[A types.Token](commands ...*Command[A]) (*Table[A], error) {
	t := &Table[A]{
		commands: make(map[types.CommandName]*Command[A], len(commands)),
		order:    make([]types.CommandName, 0, len(commands)),
	}

	verr := &kcerrors.ValidationError{}
	for _, c := range commands {
		if c == nil {
			continue
		}
		if _, exists := t.commands[c.name]; exists {
			verr.Add(&kcerrors.Error{Kind: kcerrors.KindDuplicateCommand, Op: "build", Command: c.name.String()})
			continue
		}
		t.commands[c.name] = c
		t.order = append(t.order, c.name)
	}

	for _, name := range t.order {
		for _, ref := range t.commands[name].References() {
			if _, ok := t.commands[ref]; !ok {
				verr.Add(&kcerrors.Error{
					Kind:    kcerrors.KindUnknownCommandReference,
					Op:      "build",
					Command: ref.String(),
					Detail:  "command " + name.String(),
				})
			}
		}
	}

	for _, cycle := range t.cycles() {
		verr.Add(&kcerrors.Error{
			Kind:    kcerrors.KindCommandCycle,
			Op:      "build",
			Command: cycle[0].String(),
			Detail:  strings.Join(types.Strings(cycle), " -> "),
		})
	}

	if err := verr.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns the named command.
func (t *Table[A]) Get(name types.CommandName) (*Command[A], bool) {
	c, ok := t.commands[name]
	return c, ok
}

// Len returns the number of commands.
func (t *Table[A]) Len() int { return len(t.commands) }

// Names returns every command name, sorted.
func (t *Table[A]) Names() []types.CommandName {
	names := append([]types.CommandName(nil), t.order...)
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Graph returns each command's referenced command names.
func (t *Table[A]) Graph() map[types.CommandName][]types.CommandName {
	g := make(map[types.CommandName][]types.CommandName, len(t.commands))
	for name, c := range t.commands {
		g[name] = c.References()
	}
	return g
}

// Resolve expands the named command into its ordered actions, depth-first
// and left to right. A command whose condition is unsatisfied contributes
// nothing; an empty result is not an error here.
func (t *Table[A]) Resolve(name types.CommandName, eval condition.Evaluator, vars condition.Variables) ([]A, error) {
	var actions []A
	if err := t.expand(name, eval, vars, &actions); err != nil {
		return nil, err
	}
	return actions, nil
}

func (t *Table[A]) expand(name types.CommandName, eval condition.Evaluator, vars condition.Variables, out *[]A) error {
	c, ok := t.commands[name]
	if !ok {
		return &kcerrors.Error{Kind: kcerrors.KindCommandNotFound, Op: "resolve", Command: name.String()}
	}

	satisfied, err := c.condition.IsSatisfied(eval, vars)
	if err != nil {
		return &kcerrors.Error{
			Kind:    kcerrors.KindConditionEvaluationFailed,
			Op:      "resolve",
			Command: name.String(),
			Detail:  c.condition.String(),
			Cause:   err,
		}
	}
	if !satisfied {
		return nil
	}

	for _, step := range c.steps {
		if action, ok := step.Action(); ok {
			*out = append(*out, action)
			continue
		}
		if err := t.expand(step.command, eval, vars, out); err != nil {
			return err
		}
	}
	return nil
}

// cycles detects reference cycles. Kahn's algorithm first strips every
// command that cannot be part of a cycle; a depth-first search over the
// remainder then extracts the concrete cycle paths.
func (t *Table[A]) cycles() [][]types.CommandName {
	inDegree := make(map[types.CommandName]int, len(t.commands))
	adjacency := make(map[types.CommandName][]types.CommandName, len(t.commands))
	for _, name := range t.order {
		inDegree[name] += 0
		for _, ref := range t.commands[name].References() {
			if _, ok := t.commands[ref]; !ok {
				continue
			}
			adjacency[name] = append(adjacency[name], ref)
			inDegree[ref]++
		}
	}

	queue := make([]types.CommandName, 0)
	for _, name := range t.order {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}
	processed := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		processed++
		for _, next := range adjacency[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if processed == len(t.order) {
		return nil
	}

	remaining := make([]types.CommandName, 0, len(t.order)-processed)
	for _, name := range t.order {
		if inDegree[name] > 0 {
			remaining = append(remaining, name)
		}
	}
	sort.Slice(remaining, func(i, j int) bool { return remaining[i] < remaining[j] })

	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[types.CommandName]int, len(remaining))
	var stack []types.CommandName
	var found [][]types.CommandName

	var visit func(types.CommandName)
	visit = func(name types.CommandName) {
		state[name] = onStack
		stack = append(stack, name)
		for _, next := range adjacency[name] {
			if inDegree[next] == 0 {
				continue
			}
			switch state[next] {
			case unvisited:
				visit(next)
			case onStack:
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == next {
						cycle := append([]types.CommandName(nil), stack[i:]...)
						found = append(found, append(cycle, next))
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
	}

	for _, name := range remaining {
		if state[name] == unvisited {
			visit(name)
		}
	}
	return found
}
