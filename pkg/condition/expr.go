package condition

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/conf"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
)

// Sentinel errors returned by ExprEvaluator.
var (
	ErrInvalidExpression = errors.New("invalid expression syntax")
	ErrUndefinedVariable = errors.New("undefined variable")
	ErrNotBoolean        = errors.New("expression does not evaluate to a boolean")
)

// ExprEvaluator implements Evaluator using github.com/expr-lang/expr.
// Supports comparison (== != < <= > >=), logical (&& || !, and/or/not),
// arithmetic, string operators (contains, startsWith, endsWith, matches, in)
// and parentheses. Every identifier must be present in the variable context;
// a variable named like a builtin (count, len, keys) shadows it and is never
// resolved to the builtin when absent.
type ExprEvaluator struct {
	mu           sync.Mutex
	programCache map[string]*vm.Program
}

// NewExprEvaluator creates an evaluator with an empty program cache.
func NewExprEvaluator() *ExprEvaluator {
	return &ExprEvaluator{
		programCache: make(map[string]*vm.Program),
	}
}

// EvaluateBool compiles (or reuses) the program for expression and runs it
// against vars.
func (e *ExprEvaluator) EvaluateBool(expression string, vars Variables) (bool, error) {
	if vars == nil {
		vars = Variables{}
	}
	env := map[string]any(vars)

	program, err := e.program(expression, env)
	if err != nil {
		return false, err
	}

	result, err := vm.Run(program, env)
	if err != nil {
		return false, classify(err)
	}

	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("%w: got %T", ErrNotBoolean, result)
	}
	return b, nil
}

// Check reports syntax errors. Names and types are not checked; they depend
// on the variables supplied at evaluation.
func (e *ExprEvaluator) Check(expression string) error {
	_, err := parse(expression)
	return err
}

func parse(expression string) (*parser.Tree, error) {
	tree, err := parser.ParseWithConfig(expression, conf.CreateNew())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	return tree, nil
}

// CacheSize returns the number of compiled programs held.
func (e *ExprEvaluator) CacheSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.programCache)
}

// program returns a cached program compiled for the shape of env.
// Programs are typed against the environment, so the cache key includes
// every variable name and its dynamic type.
func (e *ExprEvaluator) program(expression string, env map[string]any) (*vm.Program, error) {
	key := cacheKey(expression, env)

	e.mu.Lock()
	defer e.mu.Unlock()

	if program, ok := e.programCache[key]; ok {
		return program, nil
	}

	tree, err := parse(expression)
	if err != nil {
		return nil, err
	}
	if missing := undefinedNames(tree, env); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUndefinedVariable, strings.Join(missing, ", "))
	}

	program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
	if err != nil {
		return nil, classify(err)
	}
	e.programCache[key] = program
	return program, nil
}

// identifiers collects free identifiers and let-bound names of a parsed expression.
type identifiers struct {
	used     []string
	declared map[string]bool
}

func (v *identifiers) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		v.used = append(v.used, n.Value)
	case *ast.VariableDeclaratorNode:
		v.declared[n.Name] = true
	}
}

// undefinedNames returns, sorted and deduplicated, the identifiers of tree
// that are neither variables in env nor declared by the expression itself.
func undefinedNames(tree *parser.Tree, env map[string]any) []string {
	v := &identifiers{declared: make(map[string]bool)}
	ast.Walk(&tree.Node, v)

	seen := make(map[string]bool)
	var missing []string
	for _, name := range v.used {
		if _, ok := env[name]; ok || v.declared[name] || name == "$env" || seen[name] {
			continue
		}
		seen[name] = true
		missing = append(missing, name)
	}
	sort.Strings(missing)
	return missing
}

func cacheKey(expression string, env map[string]any) string {
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(expression)
	for _, name := range names {
		fmt.Fprintf(&b, "\x00%s:%T", name, env[name])
	}
	return b.String()
}

func classify(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unknown name") || strings.Contains(msg, "undefined"):
		return fmt.Errorf("%w: %v", ErrUndefinedVariable, err)
	case strings.Contains(msg, "expected bool"):
		return fmt.Errorf("%w: %v", ErrNotBoolean, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
}
