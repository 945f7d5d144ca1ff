// Package keymap implements the per-mode key trie that maps key sequences
// to command names.
package keymap

import (
	"sort"

	"github.com/dshills/keychord/pkg/domain/types"
	kcerrors "github.com/dshills/keychord/pkg/errors"
)

// DuplicatePolicy decides what happens when a sequence is bound twice.
type DuplicatePolicy int

const (
	// Reject fails the second binding with a DuplicateBinding error.
	Reject DuplicatePolicy = iota
	// Replace overwrites the earlier binding.
	Replace
)

// String returns the string representation of a DuplicatePolicy.
func (p DuplicatePolicy) String() string {
	if p == Replace {
		return "replace"
	}
	return "reject"
}

// Node is one trie position. A node owns its children exclusively and may
// carry a bound command and children at the same time.
type Node[K types.Token] struct {
	children map[K]*Node[K]
	command  types.CommandName
	bound    bool
}

func newNode[K types.Token]() *Node[K] {
	return &Node[K]{children: make(map[K]*Node[K])}
}

// Child returns the child reached by k.
func (n *Node[K]) Child(k K) (*Node[K], bool) {
	c, ok := n.children[k]
	return c, ok
}

// HasChildren reports whether any key continues from n.
func (n *Node[K]) HasChildren() bool {
	return len(n.children) > 0
}

// Command returns the bound command name, if any.
func (n *Node[K]) Command() (types.CommandName, bool) {
	return n.command, n.bound
}

func (n *Node[K]) sortedKeys() []K {
	keys := make([]K, 0, len(n.children))
	for k := range n.children {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

func (n *Node[K]) clone() *Node[K] {
	c := &Node[K]{
		children: make(map[K]*Node[K], len(n.children)),
		command:  n.command,
		bound:    n.bound,
	}
	for k, child := range n.children {
		c.children[k] = child.clone()
	}
	return c
}

// Trie is the key trie of a single mode.
type Trie[K types.Token] struct {
	root *Node[K]
	size int
}

// New creates an empty trie.
func New[K types.Token]() *Trie[K] {
	return &Trie[K]{root: newNode[K]()}
}

// Root returns the root node.
func (t *Trie[K]) Root() *Node[K] { return t.root }

// Len returns the number of bound sequences.
func (t *Trie[K]) Len() int { return t.size }

// Insert binds keys to name, creating branch nodes as needed.
func (t *Trie[K]) Insert(keys []K, name types.CommandName, policy DuplicatePolicy) error {
	if len(keys) == 0 {
		return &kcerrors.Error{Kind: kcerrors.KindEmptySequence, Command: name.String()}
	}

	node := t.root
	for _, k := range keys {
		child, ok := node.children[k]
		if !ok {
			child = newNode[K]()
			node.children[k] = child
		}
		node = child
	}

	if node.bound {
		if policy != Replace {
			return &kcerrors.Error{
				Kind:     kcerrors.KindDuplicateBinding,
				Sequence: types.Strings(keys),
				Command:  name.String(),
				Detail:   node.command.String(),
			}
		}
		node.command = name
		return nil
	}

	node.command = name
	node.bound = true
	t.size++
	return nil
}

// Lookup walks the whole sequence and returns the command bound at its end.
func (t *Trie[K]) Lookup(keys []K) (types.CommandName, error) {
	node := t.root
	for i, k := range keys {
		child, ok := node.children[k]
		if !ok {
			return "", &kcerrors.Error{
				Kind:     kcerrors.KindUnknownKeyAtPosition,
				Sequence: types.Strings(keys[:i]),
				Key:      k.String(),
			}
		}
		node = child
	}

	if !node.bound {
		return "", &kcerrors.Error{Kind: kcerrors.KindIncompleteSequence, Sequence: types.Strings(keys)}
	}
	return node.command, nil
}

// Walk calls fn for every bound sequence, depth-first with children
// visited in key string order. The keys slice is owned by the caller.
func (t *Trie[K]) Walk(fn func(keys []K, name types.CommandName)) {
	var visit func(n *Node[K], path []K)
	visit = func(n *Node[K], path []K) {
		if n.bound {
			fn(append([]K(nil), path...), n.command)
		}
		for _, k := range n.sortedKeys() {
			visit(n.children[k], append(path, k))
		}
	}
	visit(t.root, nil)
}

// Clone returns a deep copy of t.
func (t *Trie[K]) Clone() *Trie[K] {
	return &Trie[K]{root: t.root.clone(), size: t.size}
}
