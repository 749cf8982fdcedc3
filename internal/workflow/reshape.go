package workflow

// reshapeEntry is either a leaf expression or a nested shape.
type reshapeEntry struct {
	Expr ExprOp
	Sub  *Reshape
}

// Reshape is a field-name -> (expression | nested reshape) mapping used by
// Project and by merge's wrapping cases. Doc-form reshapes are keyed by
// field name and preserve insertion order; Arr-form reshapes are keyed by
// array position.
type Reshape struct {
	IsArr bool

	keys    []string
	doc     map[string]reshapeEntry
	arr     []reshapeEntry
	arrSize int
}

// NewReshape builds an empty document-form reshape.
func NewReshape() *Reshape {
	return &Reshape{doc: make(map[string]reshapeEntry)}
}

// NewArrReshape builds an empty array-form reshape.
func NewArrReshape() *Reshape {
	return &Reshape{IsArr: true}
}

// SetExpr sets field (possibly nested, possibly through array indices) to
// expr, creating any intermediate containers needed.
func (r *Reshape) SetExpr(field BsonField, expr ExprOp) {
	r.set(field.Components, reshapeEntry{Expr: expr})
}

// SetShape sets field to an entire nested shape (used by merge's wrapping
// cases to embed a whole sub-document under lEft/rIght).
func (r *Reshape) SetShape(field BsonField, shape *Reshape) {
	r.set(field.Components, reshapeEntry{Sub: shape})
}

func (r *Reshape) set(path []FieldComponent, entry reshapeEntry) {
	if len(path) == 0 {
		return
	}
	head, rest := path[0], path[1:]
	if len(rest) == 0 {
		r.setLeaf(head, entry)
		return
	}
	child := r.childFor(head, rest[0].IsIndex())
	child.set(rest, entry)
}

func (r *Reshape) setLeaf(c FieldComponent, entry reshapeEntry) {
	if c.IsIndex() {
		r.ensureArrLen(c.Index() + 1)
		r.arr[c.Index()] = entry
		return
	}
	if r.doc == nil {
		r.doc = make(map[string]reshapeEntry)
	}
	if _, exists := r.doc[c.Name()]; !exists {
		r.keys = append(r.keys, c.Name())
	}
	r.doc[c.Name()] = entry
}

func (r *Reshape) childFor(c FieldComponent, childIsArr bool) *Reshape {
	if c.IsIndex() {
		r.ensureArrLen(c.Index() + 1)
		if r.arr[c.Index()].Sub == nil {
			sub := &Reshape{IsArr: childIsArr}
			r.arr[c.Index()] = reshapeEntry{Sub: sub}
		}
		return r.arr[c.Index()].Sub
	}
	if r.doc == nil {
		r.doc = make(map[string]reshapeEntry)
	}
	existing, ok := r.doc[c.Name()]
	if !ok || existing.Sub == nil {
		sub := &Reshape{IsArr: childIsArr, doc: make(map[string]reshapeEntry)}
		if childIsArr {
			sub.doc = nil
		}
		if !ok {
			r.keys = append(r.keys, c.Name())
		}
		r.doc[c.Name()] = reshapeEntry{Sub: sub}
		return sub
	}
	return existing.Sub
}

func (r *Reshape) ensureArrLen(n int) {
	for len(r.arr) < n {
		r.arr = append(r.arr, reshapeEntry{})
	}
}

// Get looks up field, returning its leaf expression if present.
func (r *Reshape) Get(field BsonField) (ExprOp, bool) {
	entry, ok := r.getEntry(field.Components)
	if !ok || entry.Sub != nil {
		return nil, false
	}
	return entry.Expr, true
}

func (r *Reshape) getEntry(path []FieldComponent) (reshapeEntry, bool) {
	if len(path) == 0 {
		return reshapeEntry{}, false
	}
	head, rest := path[0], path[1:]
	var entry reshapeEntry
	var ok bool
	if head.IsIndex() {
		if head.Index() >= len(r.arr) {
			return reshapeEntry{}, false
		}
		entry, ok = r.arr[head.Index()], true
	} else {
		entry, ok = r.doc[head.Name()]
	}
	if !ok {
		return reshapeEntry{}, false
	}
	if len(rest) == 0 {
		return entry, true
	}
	if entry.Sub == nil {
		return reshapeEntry{}, false
	}
	return entry.Sub.getEntry(rest)
}

// TopKeys returns the top-level doc-form field names, in insertion order.
func (r *Reshape) TopKeys() []string {
	return append([]string(nil), r.keys...)
}

// AllLeaves returns every leaf field path reachable in the shape, in
// traversal order. The dead-field pruner does not use it: Prune tests a
// Project's top-level keys only.
func (r *Reshape) AllLeaves() []BsonField {
	var out []BsonField
	r.collectLeaves(nil, &out)
	return out
}

func (r *Reshape) collectLeaves(prefix []FieldComponent, out *[]BsonField) {
	if r.IsArr {
		for i, entry := range r.arr {
			path := append(append([]FieldComponent(nil), prefix...), IndexComponent(i))
			if entry.Sub != nil {
				entry.Sub.collectLeaves(path, out)
			} else if entry.Expr != nil {
				*out = append(*out, BsonField{Components: path})
			}
		}
		return
	}
	for _, k := range r.keys {
		entry := r.doc[k]
		path := append(append([]FieldComponent(nil), prefix...), NameComponent(k))
		if entry.Sub != nil {
			entry.Sub.collectLeaves(path, out)
		} else if entry.Expr != nil {
			*out = append(*out, BsonField{Components: path})
		}
	}
}

// each calls f for every top-level (name, entry) pair in a doc-form
// reshape, in insertion order.
func (r *Reshape) each(f func(name string, entry reshapeEntry)) {
	for _, k := range r.keys {
		f(k, r.doc[k])
	}
}

// GetSub returns the nested sub-shape stored at top-level doc-form key
// name, if any — the Sub-side counterpart to Get.
func (r *Reshape) GetSub(name string) (*Reshape, bool) {
	entry, ok := r.doc[name]
	if !ok || entry.Sub == nil {
		return nil, false
	}
	return entry.Sub, true
}

// ArrEntry is one element of an array-form reshape: exactly one of Expr
// and Sub is set.
type ArrEntry struct {
	Expr ExprOp
	Sub  *Reshape
}

// ArrEntries returns every element of an array-form reshape, in order.
func (r *Reshape) ArrEntries() []ArrEntry {
	out := make([]ArrEntry, len(r.arr))
	for i, e := range r.arr {
		out[i] = ArrEntry{Expr: e.Expr, Sub: e.Sub}
	}
	return out
}

func mapUpReshape(r *Reshape, s sigma) *Reshape {
	if r == nil {
		return nil
	}
	out := &Reshape{IsArr: r.IsArr}
	if r.IsArr {
		out.arr = make([]reshapeEntry, len(r.arr))
		for i, entry := range r.arr {
			out.arr[i] = mapUpEntry(entry, s)
		}
		return out
	}
	out.doc = make(map[string]reshapeEntry, len(r.doc))
	for _, k := range r.keys {
		newName := rewriteFieldName(k, s)
		if _, exists := out.doc[newName]; !exists {
			out.keys = append(out.keys, newName)
		}
		out.doc[newName] = mapUpEntry(r.doc[k], s)
	}
	return out
}

func mapUpEntry(entry reshapeEntry, s sigma) reshapeEntry {
	if entry.Sub != nil {
		return reshapeEntry{Sub: mapUpReshape(entry.Sub, s)}
	}
	if entry.Expr != nil {
		return reshapeEntry{Expr: mapUpExpr(entry.Expr, s)}
	}
	return entry
}

// rewriteFieldName implements the map-key rewrite rule shared by Reshape,
// Grouped and sort keys (spec.md §4.1): build DocField(name), apply sigma,
// and if the image dereferences to a field path use that name; otherwise
// leave the name unchanged.
func rewriteFieldName(name string, s sigma) string {
	dv, ok := s(Field(name))
	if !ok {
		return name
	}
	bf, isField := dv.Deref()
	if !isField {
		return name
	}
	return bf.String()
}

func refsReshape(r *Reshape, out *[]DocVar) {
	if r == nil {
		return
	}
	if r.IsArr {
		for _, entry := range r.arr {
			refsEntry(entry, out)
		}
		return
	}
	for _, k := range r.keys {
		refsEntry(r.doc[k], out)
	}
}

func refsEntry(entry reshapeEntry, out *[]DocVar) {
	if entry.Sub != nil {
		refsReshape(entry.Sub, out)
		return
	}
	if entry.Expr != nil {
		refsExpr(entry.Expr, out)
	}
}

// Grouped is the ordered accumulator spec of a Group stage: leaf field name
// -> AccumExpr, in insertion order.
type Grouped struct {
	keys  []string
	accum map[string]AccumExpr
}

// NewGrouped builds an empty Grouped.
func NewGrouped() *Grouped {
	return &Grouped{accum: make(map[string]AccumExpr)}
}

// Set adds or replaces the accumulator bound to name.
func (g *Grouped) Set(name string, a AccumExpr) {
	if _, exists := g.accum[name]; !exists {
		g.keys = append(g.keys, name)
	}
	g.accum[name] = a
}

// Get looks up the accumulator bound to name.
func (g *Grouped) Get(name string) (AccumExpr, bool) {
	a, ok := g.accum[name]
	return a, ok
}

// Keys returns the accumulator names in insertion order — the defined set
// the dead-field pruner uses for Group (spec.md §4.3).
func (g *Grouped) Keys() []string {
	return append([]string(nil), g.keys...)
}

// Len reports the number of accumulators.
func (g *Grouped) Len() int { return len(g.keys) }

func mapUpGrouped(g *Grouped, s sigma) (*Grouped, error) {
	out := NewGrouped()
	for _, k := range g.keys {
		rewritten, err := RewriteAccum(g.accum[k], s)
		if err != nil {
			return nil, err
		}
		out.Set(rewriteFieldName(k, s), rewritten)
	}
	return out, nil
}

func refsGrouped(g *Grouped, out *[]DocVar) {
	for _, k := range g.keys {
		refsExpr(g.accum[k], out)
	}
}
