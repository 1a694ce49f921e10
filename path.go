package operation

import (
	"fmt"
	"strings"
)

// Path is a structured, hashable, prefix-matchable identity for an
// operation. Components may be of heterogeneous types; the comparator is
// stable across process lifetime for identical component values.
type Path struct {
	components []any
	key        string
}

// NewPath builds a Path from an ordered sequence of components.
func NewPath(components ...any) Path {
	p := Path{components: append([]any(nil), components...)}
	p.key = pathKey(p.components)
	return p
}

func pathKey(components []any) string {
	var sb strings.Builder
	for i, c := range components {
		if i > 0 {
			sb.WriteByte('\x1f')
		}
		sb.WriteString(componentKey(c))
	}
	return sb.String()
}

// componentKey stringifies one path component stably without reflection,
// by leaning on fmt's %#v (Go-syntax representation), qualified with the
// component's dynamic type so e.g. int(1) and int64(1) never collide.
func componentKey(c any) string {
	return fmt.Sprintf("%T:%#v", c, c)
}

// Components returns the path's components. The returned slice must not be
// mutated.
func (p Path) Components() []any {
	return p.components
}

// Len returns the number of components in the path.
func (p Path) Len() int {
	return len(p.components)
}

// Key returns a stable string uniquely identifying this path's component
// sequence, suitable for use as a map key.
func (p Path) Key() string {
	return p.key
}

// Append returns a new Path with additional trailing components.
func (p Path) Append(components ...any) Path {
	next := make([]any, 0, len(p.components)+len(components))
	next = append(next, p.components...)
	next = append(next, components...)
	return NewPath(next...)
}

// Prepend returns a new Path with additional leading components.
func (p Path) Prepend(components ...any) Path {
	next := make([]any, 0, len(p.components)+len(components))
	next = append(next, components...)
	next = append(next, p.components...)
	return NewPath(next...)
}

// Equal reports whether two paths are component-wise equal.
func (p Path) Equal(other Path) bool {
	return p.key == other.key
}

// IsPrefixOf reports whether p is a prefix of other: p.Len() <= other.Len()
// and the first p.Len() components are equal.
func (p Path) IsPrefixOf(other Path) bool {
	if len(p.components) > len(other.components) {
		return false
	}
	for i, c := range p.components {
		if componentKey(c) != componentKey(other.components[i]) {
			return false
		}
	}
	return true
}

// String renders the path for debugging.
func (p Path) String() string {
	parts := make([]string, len(p.components))
	for i, c := range p.components {
		parts[i] = fmt.Sprintf("%v", c)
	}
	return "/" + strings.Join(parts, "/")
}
