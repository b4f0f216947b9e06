/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package hdr

import (
	"io"
	"sort"
)

// Make returns an empty Header ready for use.
func Make() Header {
	return Header{index: make(map[string][]int)}
}

// MakeSize returns an empty Header pre-sized for n distinct keys.
func MakeSize(n int) Header {
	return Header{
		pairs: make([]pair, 0, n),
		index: make(map[string][]int, n),
	}
}

// Add appends the key, value pair to the header. It never replaces an
// existing value and never reorders previously inserted keys: Add is the
// sole "insert" primitive the invariants in spec.md §3 describe.
func (h *Header) Add(key, value string) {
	if h.index == nil {
		h.index = make(map[string][]int)
	}
	key = CanonicalHeaderKey(key)
	h.index[key] = append(h.index[key], len(h.pairs))
	h.pairs = append(h.pairs, pair{key: key, value: value})
}

// Set replaces all values associated with key with the single value given.
func (h *Header) Set(key, value string) {
	h.Del(key)
	h.Add(key, value)
}

// Get returns the first value associated with key, or "" if absent.
func (h Header) Get(key string) string {
	vs := h.Values(key)
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Values returns every value associated with key, in insertion order.
func (h Header) Values(key string) []string {
	if h.index == nil {
		return nil
	}
	idxs := h.index[CanonicalHeaderKey(key)]
	if len(idxs) == 0 {
		return nil
	}
	out := make([]string, len(idxs))
	for i, idx := range idxs {
		out[i] = h.pairs[idx].value
	}
	return out
}

// Has reports whether key has at least one value.
func (h Header) Has(key string) bool {
	return len(h.index[CanonicalHeaderKey(key)]) > 0
}

// Del removes every value associated with key.
func (h *Header) Del(key string) {
	if h.index == nil {
		return
	}
	key = CanonicalHeaderKey(key)
	idxs := h.index[key]
	if len(idxs) == 0 {
		return
	}
	delete(h.index, key)
	h.rebuildWithout(idxs)
}

// rebuildWithout drops the pairs at the given (sorted ascending) indices
// and recomputes index positions for everything that shifted.
func (h *Header) rebuildWithout(drop []int) {
	dropSet := make(map[int]bool, len(drop))
	for _, d := range drop {
		dropSet[d] = true
	}
	kept := h.pairs[:0:0]
	newIndex := make(map[string][]int, len(h.index))
	for i, p := range h.pairs {
		if dropSet[i] {
			continue
		}
		newIndex[p.key] = append(newIndex[p.key], len(kept))
		kept = append(kept, p)
	}
	h.pairs = kept
	h.index = newIndex
}

// Len returns the number of (key, value) entries, counting repeats.
func (h Header) Len() int { return len(h.pairs) }

// Keys returns the distinct keys in the order they first appeared.
func (h Header) Keys() []string {
	seen := make(map[string]bool, len(h.index))
	keys := make([]string, 0, len(h.index))
	for _, p := range h.pairs {
		if seen[p.key] {
			continue
		}
		seen[p.key] = true
		keys = append(keys, p.key)
	}
	return keys
}

// Range calls fn for every (key, value) pair in insertion order. Range
// stops early if fn returns false.
func (h Header) Range(fn func(key, value string) bool) {
	for _, p := range h.pairs {
		if !fn(p.key, p.value) {
			return
		}
	}
}

// Clone returns a deep, independent copy of h.
func (h Header) Clone() Header {
	h2 := Header{
		pairs: make([]pair, len(h.pairs)),
		index: make(map[string][]int, len(h.index)),
	}
	copy(h2.pairs, h.pairs)
	for k, v := range h.index {
		idx := make([]int, len(v))
		copy(idx, v)
		h2.index[k] = idx
	}
	return h2
}

// CopyFrom appends every entry of src onto h, preserving src's order after
// whatever h already held.
func (h *Header) CopyFrom(src Header) {
	for _, p := range src.pairs {
		h.Add(p.key, p.value)
	}
}

// Write writes the header in wire format (key: value\r\n per entry, in
// insertion order — no alphabetic sort, since order is semantic here).
func (h Header) Write(w io.Writer) error {
	ws, ok := w.(writeStringer)
	if !ok {
		ws = stringWriter{w}
	}
	for _, p := range h.pairs {
		v := HeaderNewlineToSpace.Replace(p.value)
		v = TrimString(v)
		for _, s := range []string{p.key, ": ", v, "\r\n"} {
			if _, err := ws.WriteString(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// sortedKeyValues groups values by key (first-appearance order) and sorts
// keys alphabetically; used only where a caller wants a deterministic,
// sorted dump (e.g. debugging) rather than wire order.
func (h Header) sortedKeyValues() []keyValues {
	byKey := make(map[string][]string, len(h.index))
	var order []string
	for _, p := range h.pairs {
		if _, ok := byKey[p.key]; !ok {
			order = append(order, p.key)
		}
		byKey[p.key] = append(byKey[p.key], p.value)
	}
	sort.Strings(order)
	kvs := make([]keyValues, len(order))
	for i, k := range order {
		kvs[i] = keyValues{key: k, values: byKey[k]}
	}
	return kvs
}

type keyValues struct {
	key    string
	values []string
}

type (
	writeStringer interface {
		WriteString(string) (int, error)
	}

	stringWriter struct {
		w io.Writer
	}
)

func (s stringWriter) WriteString(str string) (int, error) {
	return s.w.Write([]byte(str))
}
