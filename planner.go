package docwf

import (
	"fmt"
	"strings"

	"github.com/zoobzio/ddml"
	"github.com/zoobzio/docwf/internal/types"
)

// Planner validates workflow references against a DDML schema before
// they're wired into a WorkflowOp tree, the same role builder.DOCQL plays
// for the AST query builder.
type Planner struct {
	schema      *ddml.Schema
	collections map[string]*ddml.Collection
	fields      map[string]map[string]*ddml.Field
}

// NewFromDDML builds a Planner bound to the given DDML schema.
func NewFromDDML(schema *ddml.Schema) (*Planner, error) {
	if schema == nil {
		return nil, fmt.Errorf("schema cannot be nil")
	}

	p := &Planner{
		schema:      schema,
		collections: make(map[string]*ddml.Collection),
		fields:      make(map[string]map[string]*ddml.Field),
	}

	for name, coll := range schema.Collections {
		p.collections[name] = coll
		p.fields[name] = make(map[string]*ddml.Field)
		p.indexFields(name, "", coll.Fields)
	}

	return p, nil
}

func (p *Planner) indexFields(collName, prefix string, fields []*ddml.Field) {
	for _, f := range fields {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		p.fields[collName][path] = f

		if f.Type == ddml.TypeObject && len(f.Fields) > 0 {
			p.indexFields(collName, path, f.Fields)
		}
		if f.Type == ddml.TypeArray && f.ArrayOf != nil && f.ArrayOf.Type == ddml.TypeObject {
			p.indexFields(collName, path, f.ArrayOf.Fields)
		}
	}
}

// C creates a validated collection reference, panicking on an unknown name.
func (p *Planner) C(name string) Collection {
	c, err := p.TryC(name)
	if err != nil {
		panic(err)
	}
	return c
}

// TryC creates a collection reference, erroring on an unknown name.
func (p *Planner) TryC(name string) (Collection, error) {
	if !isValidIdentifier(name) {
		return types.Collection{}, fmt.Errorf("invalid collection name: %s", name)
	}
	if _, ok := p.collections[name]; !ok {
		return types.Collection{}, fmt.Errorf("collection '%s' not found in schema", name)
	}
	return types.Collection{Name: name}, nil
}

// V creates a validated DocVar for a field of coll, panicking if the field
// isn't in the schema.
func (p *Planner) V(coll, fieldPath string) DocVar {
	v, err := p.TryV(coll, fieldPath)
	if err != nil {
		panic(err)
	}
	return v
}

// TryV creates a validated DocVar for a field of coll.
func (p *Planner) TryV(coll, fieldPath string) (DocVar, error) {
	if !isValidFieldPath(fieldPath) {
		return DocVar{}, fmt.Errorf("invalid field path: %s", fieldPath)
	}
	collFields, ok := p.fields[coll]
	if !ok {
		return DocVar{}, fmt.Errorf("collection '%s' not found", coll)
	}
	if _, ok := collFields[fieldPath]; !ok {
		return DocVar{}, fmt.Errorf("field '%s' not found in collection '%s'", fieldPath, coll)
	}
	return Var(strings.Split(fieldPath, ".")...), nil
}

// P creates a validated parameter reference, panicking on an invalid name.
func (p *Planner) P(name string) Param {
	param, err := p.TryP(name)
	if err != nil {
		panic(err)
	}
	return param
}

// TryP creates a parameter reference, erroring on an invalid name.
func (p *Planner) TryP(name string) (Param, error) {
	if !isValidIdentifier(name) {
		return types.Param{}, fmt.Errorf("invalid parameter name: %s", name)
	}
	return types.Param{Name: name}, nil
}

// Collections returns all collection names known to the schema.
func (p *Planner) Collections() []string {
	names := make([]string, 0, len(p.collections))
	for name := range p.collections {
		names = append(names, name)
	}
	return names
}

// Fields returns all field paths for a collection.
func (p *Planner) Fields(coll string) ([]string, error) {
	collFields, ok := p.fields[coll]
	if !ok {
		return nil, fmt.Errorf("collection '%s' not found", coll)
	}
	paths := make([]string, 0, len(collFields))
	for path := range collFields {
		paths = append(paths, path)
	}
	return paths, nil
}

var suspiciousPatterns = []string{
	";", "--", "/*", "*/", "'", "\"", "`", "\\",
	" or ", " and ", "drop ", "delete ", "insert ",
	"update ", "select ", "union ", "exec ", "execute ",
}

func isValidIdentifier(s string) bool {
	if s == "" || strings.Contains(s, " ") {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && r != '_' {
				return false
			}
		} else if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	lower := strings.ToLower(s)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}
	return true
}

func isValidFieldPath(s string) bool {
	if s == "" || strings.Contains(s, " ") {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return false
		}
		for i, r := range part {
			if i == 0 {
				if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && r != '_' && r != '$' {
					return false
				}
			} else if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' {
				return false
			}
		}
	}
	lower := strings.ToLower(s)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}
	return true
}
