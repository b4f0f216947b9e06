package router

import "strings"

// Blueprint is a named group of routes registered under a common path
// prefix, mirroring the original core's Blueprint class (app.h): handlers
// are written against blueprint-relative patterns and the blueprint is
// mounted onto a Router (or another Blueprint) once, at startup.
type Blueprint struct {
	Name   string
	prefix string
	routes []pendingRoute
	subs   []*Blueprint
}

type pendingRoute struct {
	method, pattern, name string
	handler                any
}

// NewBlueprint returns a Blueprint whose routes will be registered under
// prefix once mounted.
func NewBlueprint(name, prefix string) *Blueprint {
	return &Blueprint{Name: name, prefix: strings.TrimSuffix(prefix, "/")}
}

// Handle registers pattern (relative to the blueprint's prefix) for
// method.
func (b *Blueprint) Handle(method, pattern string, handler any) *Blueprint {
	b.routes = append(b.routes, pendingRoute{method: method, pattern: pattern, handler: handler})
	return b
}

// Named is like Handle but also registers a lookup name for URLFor.
func (b *Blueprint) Named(method, pattern, name string, handler any) *Blueprint {
	b.routes = append(b.routes, pendingRoute{method: method, pattern: pattern, name: name, handler: handler})
	return b
}

// Mount nests a child Blueprint under this one; the child's prefix is
// relative to the parent's.
func (b *Blueprint) Mount(child *Blueprint) *Blueprint {
	b.subs = append(b.subs, child)
	return b
}

// Mount registers every route a Blueprint (and its nested blueprints)
// declared onto r, with patterns joined to the accumulated prefix.
func (r *Router) Mount(bp *Blueprint) error {
	return r.mountAt(bp, "")
}

func (r *Router) mountAt(bp *Blueprint, base string) error {
	prefix := base + bp.prefix
	for _, pr := range bp.routes {
		full := joinPattern(prefix, pr.pattern)
		rt, err := r.Handle(pr.method, full, pr.handler)
		if err != nil {
			return err
		}
		if pr.name != "" {
			if err := r.Name(rt, pr.name); err != nil {
				return err
			}
		}
	}
	for _, sub := range bp.subs {
		if err := r.mountAt(sub, prefix); err != nil {
			return err
		}
	}
	return nil
}

func joinPattern(prefix, pattern string) string {
	if pattern == "/" {
		pattern = ""
	}
	joined := prefix + pattern
	if joined == "" {
		return "/"
	}
	return joined
}
