package workflow

import (
	"fmt"
	"strings"
)

// FieldComponent is one segment of a BsonField: either a named field or an
// array index.
type FieldComponent struct {
	name    string
	index   int
	isIndex bool
}

// NameComponent builds a named field-path segment.
func NameComponent(name string) FieldComponent {
	return FieldComponent{name: name}
}

// IndexComponent builds an array-position field-path segment.
func IndexComponent(i int) FieldComponent {
	return FieldComponent{index: i, isIndex: true}
}

// IsIndex reports whether this component is an array index rather than a
// named field.
func (c FieldComponent) IsIndex() bool { return c.isIndex }

// Name returns the component's field name; only meaningful if !IsIndex().
func (c FieldComponent) Name() string { return c.name }

// Index returns the component's array position; only meaningful if
// IsIndex().
func (c FieldComponent) Index() int { return c.index }

func (c FieldComponent) String() string {
	if c.isIndex {
		return fmt.Sprintf("%d", c.index)
	}
	return c.name
}

// BsonField is a non-empty field path into a document.
type BsonField struct {
	Components []FieldComponent
}

// NewBsonField builds a BsonField from dot-separated names.
func NewBsonField(names ...string) BsonField {
	comps := make([]FieldComponent, len(names))
	for i, n := range names {
		comps[i] = NameComponent(n)
	}
	return BsonField{Components: comps}
}

// Concat implements field-path concatenation: a \ b, a's path followed by
// b's.
func (f BsonField) Concat(other BsonField) BsonField {
	out := make([]FieldComponent, 0, len(f.Components)+len(other.Components))
	out = append(out, f.Components...)
	out = append(out, other.Components...)
	return BsonField{Components: out}
}

// AsDocVar converts a field path back into a DocVar rooted reference. Array
// index components render as their decimal string, matching how a document
// database addresses an array element by position in dot notation.
func (f BsonField) AsDocVar() DocVar {
	path := make([]string, len(f.Components))
	for i, c := range f.Components {
		path[i] = c.String()
	}
	return DocVar{Path: path}
}

// Equal reports structural equality between two field paths.
func (f BsonField) Equal(other BsonField) bool {
	if len(f.Components) != len(other.Components) {
		return false
	}
	for i := range f.Components {
		if f.Components[i] != other.Components[i] {
			return false
		}
	}
	return true
}

func (f BsonField) String() string {
	parts := make([]string, len(f.Components))
	for i, c := range f.Components {
		parts[i] = c.String()
	}
	return strings.Join(parts, ".")
}

// FlattenMapping builds a bijection from two collections of leaf field
// names onto a single, disjoint namespace. It is used by merge's Group/Group
// case (spec 4.4 case 7) so that two independently constructed Grouped
// shapes can be combined without one's leaf clobbering the other's.
//
// The returned maps assign each original name a fresh, unique leaf under a
// shared prefix ("gA0", "gA1", ... for the left side and "gB0", "gB1", ...
// for the right), so the combined shape's keys never collide even when both
// sides reused the same aggregate name.
func FlattenMapping(left, right []string) (leftMap, rightMap map[string]string) {
	leftMap = make(map[string]string, len(left))
	rightMap = make(map[string]string, len(right))
	for i, name := range left {
		leftMap[name] = fmt.Sprintf("gA%d", i)
	}
	for i, name := range right {
		rightMap[name] = fmt.Sprintf("gB%d", i)
	}
	return leftMap, rightMap
}
