package command

import (
	"strconv"

	"github.com/dshills/keychord/pkg/condition"
	"github.com/dshills/keychord/pkg/config"
	"github.com/dshills/keychord/pkg/domain/types"
	kcerrors "github.com/dshills/keychord/pkg/errors"
)

// Build creates a table from raw command records. Step strings are
// classified according to each record's type; actions are parsed with
// parseAction and checked with isKnownAction (nil accepts every action).
// When checker is non-nil every when expression is syntax-checked.
//
// All findings are collected before Build fails.
func Build[A types.Token](
	records []config.Command,
	parseAction types.Parser[A],
	isKnownAction func(A) bool,
	checker condition.Checker,
) (*Table[A], error) {
	names := make(map[string]bool, len(records))
	for _, r := range records {
		names[r.Name] = true
	}

	verr := &kcerrors.ValidationError{}
	seen := make(map[string]bool, len(records))
	commands := make([]*Command[A], 0, len(records))

	for _, r := range records {
		if r.Name == "" {
			verr.Add(&kcerrors.Error{Kind: kcerrors.KindInvalidToken, Op: "build", Detail: "command with empty name"})
			continue
		}
		if seen[r.Name] {
			verr.Add(&kcerrors.Error{Kind: kcerrors.KindDuplicateCommand, Op: "build", Command: r.Name})
			continue
		}
		seen[r.Name] = true

		cond := condition.New(r.When)
		if err := cond.Check(checker); err != nil {
			verr.Add(&kcerrors.Error{
				Kind:    kcerrors.KindInvalidCondition,
				Op:      "build",
				Command: r.Name,
				Detail:  cond.String(),
				Cause:   err,
			})
		}

		steps := make([]Step[A], 0, len(r.Steps))
		for _, raw := range r.Steps {
			step, finding := classify(r, raw, names, parseAction, isKnownAction)
			if finding != nil {
				verr.Add(finding)
				continue
			}
			steps = append(steps, step)
		}

		commands = append(commands, New(types.CommandName(r.Name), cond.String(), steps...))
	}

	table, err := NewTable(commands...)
	verr.Merge(err)

	if err := verr.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

func classify[A types.Token](
	r config.Command,
	raw string,
	names map[string]bool,
	parseAction types.Parser[A],
	isKnownAction func(A) bool,
) (Step[A], *kcerrors.Error) {
	switch r.Type {
	case config.CommandGroup:
		if !names[raw] {
			return Step[A]{}, &kcerrors.Error{
				Kind:    kcerrors.KindUnknownCommandReference,
				Op:      "build",
				Command: raw,
				Detail:  "command " + r.Name,
			}
		}
		return CommandStep[A](types.CommandName(raw)), nil
	case config.FunctionSequence:
		return actionStep(r.Name, raw, parseAction, isKnownAction)
	default:
		if names[raw] {
			return CommandStep[A](types.CommandName(raw)), nil
		}
		return actionStep(r.Name, raw, parseAction, isKnownAction)
	}
}

func actionStep[A types.Token](
	command, raw string,
	parseAction types.Parser[A],
	isKnownAction func(A) bool,
) (Step[A], *kcerrors.Error) {
	action, err := parseAction(raw)
	if err != nil {
		return Step[A]{}, &kcerrors.Error{
			Kind:    kcerrors.KindInvalidToken,
			Op:      "build",
			Command: command,
			Detail:  "action " + strconv.Quote(raw) + " in command " + command,
			Cause:   err,
		}
	}
	if isKnownAction != nil && !isKnownAction(action) {
		return Step[A]{}, &kcerrors.Error{
			Kind:    kcerrors.KindUnknownActionReference,
			Op:      "build",
			Command: command,
			Detail:  action.String(),
		}
	}
	return ActionStep(action), nil
}
