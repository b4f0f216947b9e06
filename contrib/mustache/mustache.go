// Package mustache implements a small subset of the Mustache template
// language against contrib/json values: variable tags ({{name}}),
// unescaped tags ({{{name}}} / {{&name}}), sections ({{#name}}...{{/name}}),
// inverted sections ({{^name}}...{{/name}}), comments ({{! ... }}), and
// dotted-path lookups (a.b.c), resolved against a stack of contexts the
// way nested sections resolve names against their enclosing ones.
package mustache

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/crowgo/crow/contrib/json"
)

// Template is a compiled template, produced by Compile.
type Template struct {
	nodes []node
}

// Render executes the template against ctx and returns the result.
func (t *Template) Render(ctx *json.Value) string {
	var b strings.Builder
	renderNodes(t.nodes, []*json.Value{ctx}, &b)
	return b.String()
}

// node is one piece of a compiled template: either literal text or a
// tag/section.
type node struct {
	text     string // literal text, when kind == nodeText
	kind     nodeKind
	name     string // dotted path for nodeVar/nodeUnescaped/nodeSection/nodeInverted
	children []node // body of a section/inverted section
}

type nodeKind int

const (
	nodeText nodeKind = iota
	nodeVar
	nodeUnescaped
	nodeSection
	nodeInverted
)

// Compile parses body into a Template. It panics on an unterminated or
// mismatched section tag, matching the original core's
// invalid_template_exception at compile time (callers compiling
// user-controlled templates should recover around the call).
func Compile(body string) *Template {
	nodes, rest := parseUntil(body, "")
	if rest != "" {
		panic(fmt.Sprintf("mustache: unexpected trailing content after template: %q", rest))
	}
	return &Template{nodes: nodes}
}

// Load reads name and compiles it, grounded on the original core's
// load/load_unsafe pair. The path traversal protection load_unsafe
// deliberately omits is always enforced here: name may not contain "..".
func Load(readFile func(string) (string, error), name string) (*Template, error) {
	if strings.Contains(name, "..") {
		return nil, fmt.Errorf("mustache: refusing path %q", name)
	}
	body, err := readFile(name)
	if err != nil {
		return nil, err
	}
	return Compile(body), nil
}

// parseUntil parses nodes until it encounters a {{/closeName}} tag (when
// closeName != "") or runs out of input, returning the unconsumed
// remainder, which must be empty at the top level.
func parseUntil(body, closeName string) ([]node, string) {
	var nodes []node
	for {
		open := strings.Index(body, "{{")
		if open < 0 {
			if closeName != "" {
				panic(fmt.Sprintf("mustache: unterminated section {{#%s}}", closeName))
			}
			if body != "" {
				nodes = append(nodes, node{kind: nodeText, text: body})
			}
			return nodes, ""
		}
		if open > 0 {
			nodes = append(nodes, node{kind: nodeText, text: body[:open]})
		}
		body = body[open+2:]

		// {{{unescaped}}} triple-mustache form.
		if strings.HasPrefix(body, "{") {
			close := strings.Index(body, "}}}")
			if close < 0 {
				panic("mustache: unterminated {{{ tag")
			}
			name := strings.TrimSpace(body[1:close])
			nodes = append(nodes, node{kind: nodeUnescaped, name: name})
			body = body[close+3:]
			continue
		}

		close := strings.Index(body, "}}")
		if close < 0 {
			panic("mustache: unterminated {{ tag")
		}
		raw := strings.TrimSpace(body[:close])
		body = body[close+2:]

		if raw == "" {
			continue
		}
		switch raw[0] {
		case '!': // comment
			continue
		case '&': // unescaped, double-mustache form
			nodes = append(nodes, node{kind: nodeUnescaped, name: strings.TrimSpace(raw[1:])})
		case '#':
			name := strings.TrimSpace(raw[1:])
			children, rest := parseUntil(body, name)
			nodes = append(nodes, node{kind: nodeSection, name: name, children: children})
			body = rest
		case '^':
			name := strings.TrimSpace(raw[1:])
			children, rest := parseUntil(body, name)
			nodes = append(nodes, node{kind: nodeInverted, name: name, children: children})
			body = rest
		case '/':
			name := strings.TrimSpace(raw[1:])
			if name != closeName {
				panic(fmt.Sprintf("mustache: mismatched close tag {{/%s}}, expected {{/%s}}", name, closeName))
			}
			return nodes, body
		default:
			nodes = append(nodes, node{kind: nodeVar, name: raw})
		}
	}
}

func renderNodes(nodes []node, stack []*json.Value, b *strings.Builder) {
	for _, n := range nodes {
		switch n.kind {
		case nodeText:
			b.WriteString(n.text)
		case nodeVar:
			b.WriteString(html.EscapeString(stringify(lookup(n.name, stack))))
		case nodeUnescaped:
			b.WriteString(stringify(lookup(n.name, stack)))
		case nodeSection:
			v := lookup(n.name, stack)
			if v == nil || !v.Bool() {
				continue
			}
			if v.Kind() == json.List {
				for i := 0; i < v.Len(); i++ {
					renderNodes(n.children, append(stack, v.Index(i)), b)
				}
			} else {
				renderNodes(n.children, append(stack, v), b)
			}
		case nodeInverted:
			v := lookup(n.name, stack)
			if v == nil || !v.Bool() {
				renderNodes(n.children, stack, b)
			}
		}
	}
}

// lookup resolves a dotted name against the context stack, walking the
// stack from innermost (most recently pushed section) to outermost,
// matching the original core's find_context: an unqualified name is
// looked up from the innermost enclosing object outward; a dotted name
// is resolved one segment at a time from the first stack frame that has
// its leading segment.
func lookup(name string, stack []*json.Value) *json.Value {
	if name == "." {
		return stack[len(stack)-1]
	}
	parts := strings.Split(name, ".")
	for i := len(stack) - 1; i >= 0; i-- {
		v := stack[i]
		if v.Kind() != json.Object || !v.Has(parts[0]) {
			continue
		}
		cur := v.Get(parts[0])
		ok := true
		for _, seg := range parts[1:] {
			if cur.Kind() != json.Object || !cur.Has(seg) {
				ok = false
				break
			}
			cur = cur.Get(seg)
		}
		if ok {
			return cur
		}
	}
	return nil
}

func stringify(v *json.Value) string {
	if v == nil {
		return ""
	}
	switch v.Kind() {
	case json.String:
		return v.String()
	case json.Number:
		return strconv.FormatFloat(v.Number(), 'g', -1, 64)
	case json.True:
		return "true"
	case json.False:
		return "false"
	default:
		return ""
	}
}
