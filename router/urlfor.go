package router

import (
	"fmt"
	"strconv"
	"strings"
)

// URLFor reconstructs the path for the named route, substituting params
// positionally for each typed segment the route's pattern declares, in
// declaration order. It mirrors the original core's url_for helper.
func (r *Router) URLFor(name string, params ...any) (string, error) {
	rt, ok := r.named[name]
	if !ok {
		return "", fmt.Errorf("router: no route named %q", name)
	}
	if len(params) != len(rt.Tag) {
		return "", fmt.Errorf("router: URLFor(%q) wants %d parameter(s), got %d", name, len(rt.Tag), len(params))
	}

	var b strings.Builder
	pi := 0
	for _, seg := range rt.segs {
		b.WriteByte('/')
		if !seg.typedOK {
			b.WriteString(seg.literal)
			continue
		}
		text, err := formatParam(seg.kind, params[pi])
		if err != nil {
			return "", fmt.Errorf("router: URLFor(%q) argument %d: %w", name, pi, err)
		}
		b.WriteString(text)
		pi++
	}
	if b.Len() == 0 {
		return "/", nil
	}
	return b.String(), nil
}

func formatParam(kind ParamKind, v any) (string, error) {
	switch kind {
	case ParamInt:
		switch n := v.(type) {
		case int:
			return strconv.Itoa(n), nil
		case int64:
			return strconv.FormatInt(n, 10), nil
		}
	case ParamUint:
		switch n := v.(type) {
		case uint:
			return strconv.FormatUint(uint64(n), 10), nil
		case uint64:
			return strconv.FormatUint(n, 10), nil
		}
	case ParamDouble:
		switch n := v.(type) {
		case float64:
			return strconv.FormatFloat(n, 'g', -1, 64), nil
		case float32:
			return strconv.FormatFloat(float64(n), 'g', -1, 32), nil
		}
	case ParamString, ParamPath:
		if s, ok := v.(string); ok {
			return s, nil
		}
	}
	return "", fmt.Errorf("value %v does not match parameter kind", v)
}
