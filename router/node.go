package router

import "fmt"

// node is one trie node. Each node may have any number of literal
// children, dispatched by exact segment text, plus up to five typed
// children — one per ParamKind — tried in a fixed, greedy-maximal-munch
// order (int, uint, double, string, path) when no literal child matches.
// A node with a populated path child terminates matching immediately: the
// rest of the URL is consumed whole.
type node struct {
	literal map[string]*node
	typed   [5]*node // indexed by ParamKind
	name    string   // parameter name bound at a typed node; empty for literal nodes

	routes map[string]*Route // method -> route registered exactly at this node
}

func newNode() *node { return &node{literal: make(map[string]*node)} }

// child returns (creating if needed) the literal child for segment seg.
func (n *node) child(seg string) *node {
	c, ok := n.literal[seg]
	if !ok {
		c = newNode()
		n.literal[seg] = c
	}
	return c
}

// typedChild returns (creating if needed) the typed child for kind, bound
// to parameter name. If a typed child already exists for this kind with a
// different name, that is a registration error: the same position cannot
// bind two different parameter names depending on which route is taken.
func (n *node) typedChild(kind ParamKind, name string) (*node, error) {
	if n.typed[kind] != nil {
		if n.typed[kind].name != name {
			return nil, fmt.Errorf("router: conflicting parameter name %q vs %q at same position", n.typed[kind].name, name)
		}
		return n.typed[kind], nil
	}
	c := newNode()
	c.name = name
	n.typed[kind] = c
	return c, nil
}

// ambiguousSiblingCheck rejects registering a typed segment at a node that
// already dispatches on an overlapping typed kind: a <string> segment
// overlaps every other kind, so it cannot share a node with any of them.
// A <path> segment is never rejected here, and <int>, <uint> and <double>
// may share a node; matching then tries them in that order.
func (n *node) ambiguousSiblingCheck(kind ParamKind) error {
	if kind == ParamPath {
		return nil
	}
	if n.typed[ParamString] != nil && kind != ParamString {
		return fmt.Errorf("router: ambiguous route: typed segment overlaps an existing <string> sibling")
	}
	if kind == ParamString {
		for k := ParamInt; k <= ParamPath; k++ {
			if k != ParamString && n.typed[k] != nil {
				return fmt.Errorf("router: ambiguous route: <string> segment overlaps an existing typed sibling")
			}
		}
	}
	return nil
}
