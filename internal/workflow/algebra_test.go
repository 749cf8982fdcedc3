package workflow

import (
	"testing"

	"github.com/zoobzio/docwf/internal/types"
)

func coll(name string) types.Collection { return types.Collection{Name: name} }

func TestCoalesceMatchMatch(t *testing.T) {
	src := ReadOp{Coll: coll("orders")}
	inner := MatchOp{Src: src, Sel: CondSelector{Field: Field("status"), Operator: types.EQ, Value: LiteralExpr{Value: "shipped"}}}
	outer := MatchOp{Src: inner, Sel: CondSelector{Field: Field("total"), Operator: types.GT, Value: LiteralExpr{Value: 100}}}

	got, err := Coalesce(outer)
	if err != nil {
		t.Fatalf("Coalesce: %v", err)
	}
	m, ok := got.(MatchOp)
	if !ok {
		t.Fatalf("expected MatchOp, got %T", got)
	}
	if _, ok := m.Src.(ReadOp); !ok {
		t.Fatalf("expected fused Match to sit directly over ReadOp, got %T", m.Src)
	}
	compound, ok := m.Sel.(CompoundSelector)
	if !ok || compound.Logic != types.AND || len(compound.Items) != 2 {
		t.Fatalf("expected a 2-item AND selector, got %#v", m.Sel)
	}
}

func TestCoalesceMatchPastSort(t *testing.T) {
	src := ReadOp{Coll: coll("orders")}
	sorted := SortOp{Src: src, Keys: []SortKey{{Field: NewBsonField("total"), Order: types.Descending}}}
	matched := MatchOp{Src: sorted, Sel: CondSelector{Field: Field("status"), Operator: types.EQ, Value: LiteralExpr{Value: "shipped"}}}

	got, err := Coalesce(matched)
	if err != nil {
		t.Fatalf("Coalesce: %v", err)
	}
	s, ok := got.(SortOp)
	if !ok {
		t.Fatalf("expected Match to push below Sort, got %T", got)
	}
	if _, ok := s.Src.(MatchOp); !ok {
		t.Fatalf("expected Sort's source to be the pushed Match, got %T", s.Src)
	}
}

func TestCoalesceLimitLimitTakesMin(t *testing.T) {
	src := ReadOp{Coll: coll("orders")}
	five, ten := 5, 10
	inner := LimitOp{Src: src, N: types.PaginationValue{Static: &ten}}
	outer := LimitOp{Src: inner, N: types.PaginationValue{Static: &five}}

	got, err := Coalesce(outer)
	if err != nil {
		t.Fatalf("Coalesce: %v", err)
	}
	l, ok := got.(LimitOp)
	if !ok || l.N.Static == nil || *l.N.Static != 5 {
		t.Fatalf("expected Limit(5), got %#v", got)
	}
}

func TestCoalesceProjectProjectInlines(t *testing.T) {
	src := ReadOp{Coll: coll("orders")}
	inner := NewReshape()
	inner.SetExpr(NewBsonField("total"), VarExpr{Var: Field("amount")})
	p1 := ProjectOp{Src: src, Shape: inner}

	outer := NewReshape()
	outer.SetExpr(NewBsonField("t"), VarExpr{Var: Field("total")})
	p2 := ProjectOp{Src: p1, Shape: outer}

	got, err := Coalesce(p2)
	if err != nil {
		t.Fatalf("Coalesce: %v", err)
	}
	p, ok := got.(ProjectOp)
	if !ok {
		t.Fatalf("expected ProjectOp, got %T", got)
	}
	if _, ok := p.Src.(ReadOp); !ok {
		t.Fatalf("expected inlined Project to sit directly on ReadOp, got %T", p.Src)
	}
	e, ok := p.Shape.Get(NewBsonField("t"))
	if !ok {
		t.Fatalf("expected field 't' in inlined shape")
	}
	ve, ok := e.(VarExpr)
	if !ok || !ve.Var.Equal(Field("amount")) {
		t.Fatalf("expected t to resolve to ROOT.amount, got %#v", e)
	}
}

func TestCoalesceIdempotent(t *testing.T) {
	src := ReadOp{Coll: coll("orders")}
	op := LimitOp{Src: MatchOp{Src: src, Sel: CondSelector{Field: Field("status"), Operator: types.EQ, Value: LiteralExpr{Value: "shipped"}}}, N: types.PaginationValue{Static: intp(5)}}

	once, err := Coalesce(op)
	if err != nil {
		t.Fatalf("Coalesce: %v", err)
	}
	twice, err := Coalesce(once)
	if err != nil {
		t.Fatalf("Coalesce: %v", err)
	}
	if !Equal(once, twice) {
		t.Fatalf("Coalesce is not idempotent: %#v != %#v", once, twice)
	}
}

func intp(n int) *int { return &n }

func TestPruneKeepsReferencedProjectFields(t *testing.T) {
	src := ReadOp{Coll: coll("orders")}
	shape := NewReshape()
	shape.SetExpr(NewBsonField("total"), VarExpr{Var: Field("amount")})
	shape.SetExpr(NewBsonField("status"), VarExpr{Var: Field("status")})
	proj := ProjectOp{Src: src, Shape: shape}

	matched := MatchOp{Src: proj, Sel: CondSelector{Field: Field("total"), Operator: types.GT, Value: LiteralExpr{Value: 10}}}

	got := Prune(matched)
	m, ok := got.(MatchOp)
	if !ok {
		t.Fatalf("expected MatchOp at root, got %T", got)
	}
	p, ok := m.Src.(ProjectOp)
	if !ok {
		t.Fatalf("expected ProjectOp under Match, got %T", m.Src)
	}
	if _, ok := p.Shape.Get(NewBsonField("total")); !ok {
		t.Fatalf("expected 'total' to survive pruning (referenced by the outer Match)")
	}
	if _, ok := p.Shape.Get(NewBsonField("status")); ok {
		t.Fatalf("expected 'status' to be pruned (never referenced downstream)")
	}
}

func TestPruneRootFieldsSurvive(t *testing.T) {
	src := ReadOp{Coll: coll("orders")}
	shape := NewReshape()
	shape.SetExpr(NewBsonField("a"), VarExpr{Var: Field("a")})
	shape.SetExpr(NewBsonField("b"), VarExpr{Var: Field("b")})
	proj := ProjectOp{Src: src, Shape: shape}

	got := Prune(proj)
	p, ok := got.(ProjectOp)
	if !ok {
		t.Fatalf("expected ProjectOp, got %T", got)
	}
	if _, ok := p.Shape.Get(NewBsonField("a")); !ok {
		t.Fatal("expected root-level field 'a' to survive: nothing above the root constrains it")
	}
	if _, ok := p.Shape.Get(NewBsonField("b")); !ok {
		t.Fatal("expected root-level field 'b' to survive: nothing above the root constrains it")
	}
}

func TestMergeIdenticalOpsShortcuts(t *testing.T) {
	a := ReadOp{Coll: coll("orders")}
	b := ReadOp{Coll: coll("orders")}

	m, err := Merge(a, b)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !Equal(m.Op, a) {
		t.Fatalf("expected merge of identical ops to shortcut to the op itself, got %#v", m.Op)
	}
}

func TestMergeStackableMatches(t *testing.T) {
	src := ReadOp{Coll: coll("orders")}
	a := MatchOp{Src: src, Sel: CondSelector{Field: Field("status"), Operator: types.EQ, Value: LiteralExpr{Value: "shipped"}}}
	b := LimitOp{Src: src, N: types.PaginationValue{Static: intp(5)}}

	m, err := Merge(a, b)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if err := Validate(m.Op); err != nil {
		t.Fatalf("merged op failed Validate: %v", err)
	}
}

func TestMergeFallbackIsTotal(t *testing.T) {
	a := MapOp{Src: ReadOp{Coll: coll("a")}, Fn: NewMapFunc("emit(key,this);")}
	b := ReduceOp{Src: ReadOp{Coll: coll("b")}, Fn: NewReduceFunc("return values[0];")}

	m, err := Merge(a, b)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if _, ok := m.Op.(FoldLeftOp); !ok {
		t.Fatalf("expected the total fallback to wrap unmatched combinations in FoldLeftOp, got %T", m.Op)
	}
}

func TestCrushPlainPipelineYieldsPipelineTask(t *testing.T) {
	op := LimitOp{
		Src: MatchOp{
			Src: ReadOp{Coll: coll("orders")},
			Sel: CondSelector{Field: Field("status"), Operator: types.EQ, Value: LiteralExpr{Value: "shipped"}},
		},
		N: types.PaginationValue{Static: intp(10)},
	}

	task, err := Crush(op)
	if err != nil {
		t.Fatalf("Crush: %v", err)
	}
	pt, ok := task.(PipelineTask)
	if !ok {
		t.Fatalf("expected PipelineTask, got %T", task)
	}
	if _, ok := pt.Src.(ReadTask); !ok {
		t.Fatalf("expected pipeline's source to crush to ReadTask, got %T", pt.Src)
	}
	if len(pt.Stages) != 2 {
		t.Fatalf("expected 2 native stages (match, limit), got %d", len(pt.Stages))
	}
}

func TestCrushWhereLowersToMapReduce(t *testing.T) {
	op := MatchOp{
		Src: ReadOp{Coll: coll("orders")},
		Sel: WhereSelector{JS: "return this.total > 100;"},
	}

	task, err := Crush(op)
	if err != nil {
		t.Fatalf("Crush: %v", err)
	}
	if _, ok := task.(MapReduceTask); !ok {
		t.Fatalf("expected a Where-bearing Match to lower to MapReduceTask, got %T", task)
	}
}

func TestPlanRunsFinishThenCrush(t *testing.T) {
	src := ReadOp{Coll: coll("orders")}
	inner := MatchOp{Src: src, Sel: CondSelector{Field: Field("status"), Operator: types.EQ, Value: LiteralExpr{Value: "shipped"}}}
	op := MatchOp{Src: inner, Sel: CondSelector{Field: Field("total"), Operator: types.GT, Value: LiteralExpr{Value: 100}}}

	task, err := Plan(op)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	pt, ok := task.(PipelineTask)
	if !ok {
		t.Fatalf("expected PipelineTask, got %T", task)
	}
	if len(pt.Stages) != 1 {
		t.Fatalf("expected the two Matches to have fused into one $match stage, got %d stages", len(pt.Stages))
	}
}

func TestValidateRejectsEmptyFoldLeft(t *testing.T) {
	if err := Validate(FoldLeftOp{}); err == nil {
		t.Fatal("expected Validate to reject an empty FoldLeft source list")
	}
}

func TestPruneUnwindDoesNotCreditOwnField(t *testing.T) {
	src := ReadOp{Coll: coll("orders")}
	inner := NewReshape()
	inner.SetExpr(NewBsonField("tags"), VarExpr{Var: Field("tags")})
	inner.SetExpr(NewBsonField("keep"), VarExpr{Var: Field("keep")})
	proj := ProjectOp{Src: src, Shape: inner}

	unwound := UnwindOp{Src: proj, Field: NewBsonField("tags")}

	outerShape := NewReshape()
	outerShape.SetExpr(NewBsonField("k"), VarExpr{Var: Field("keep")})
	outerProj := ProjectOp{Src: unwound, Shape: outerShape}

	got := Prune(outerProj)
	op, ok := got.(ProjectOp)
	if !ok {
		t.Fatalf("expected outer ProjectOp, got %T", got)
	}
	uw, ok := op.Src.(UnwindOp)
	if !ok {
		t.Fatalf("expected UnwindOp beneath outer Project, got %T", op.Src)
	}
	innerProj, ok := uw.Src.(ProjectOp)
	if !ok {
		t.Fatalf("expected inner ProjectOp beneath Unwind, got %T", uw.Src)
	}
	if _, ok := innerProj.Shape.Get(NewBsonField("tags")); ok {
		t.Fatal("expected 'tags' to be pruned: Unwind must not credit its own field as used")
	}
	if _, ok := innerProj.Shape.Get(NewBsonField("keep")); !ok {
		t.Fatal("expected 'keep' to survive pruning (referenced by the outer Project)")
	}
}

func TestMergeGroupVsMatchPushesAndUnwinds(t *testing.T) {
	src := ReadOp{Coll: coll("orders")}
	grouped := NewGrouped()
	grouped.Set("total", Sum(VarExpr{Var: Field("amount")}))
	grp := GroupOp{Src: src, Grouped: grouped, By: VarExpr{Var: Field("customer")}}

	match := MatchOp{Src: src, Sel: CondSelector{Field: Field("status"), Operator: types.EQ, Value: LiteralExpr{Value: "shipped"}}}

	m, err := Merge(grp, match)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	uw, ok := m.Op.(UnwindOp)
	if !ok {
		t.Fatalf("expected merged op to be an Unwind over the extended Group, got %T", m.Op)
	}
	g, ok := uw.Src.(GroupOp)
	if !ok {
		t.Fatalf("expected Unwind's source to be the extended Group, got %T", uw.Src)
	}
	if _, ok := g.Grouped.Get(uw.Field.String()); !ok {
		t.Fatalf("expected the Unwind field %q to be one of Group's accumulators", uw.Field.String())
	}
	if _, ok := m.RBase(Field("status")); !ok {
		t.Fatal("expected a right base resolving a reference into the other branch")
	}
}

func TestMergeFallbackWrapsBranchesForFoldLeft(t *testing.T) {
	a := ReadOp{Coll: coll("a")}
	b := ReadOp{Coll: coll("b")}

	m, err := Merge(a, b)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	fl, ok := m.Op.(FoldLeftOp)
	if !ok || len(fl.Srcs) != 2 {
		t.Fatalf("expected a 2-source FoldLeftOp, got %#v", m.Op)
	}

	task, err := Crush(fl)
	if err != nil {
		t.Fatalf("Crush: %v", err)
	}
	ft, ok := task.(FoldLeftTask)
	if !ok || len(ft.Tail) != 1 {
		t.Fatalf("expected a FoldLeftTask with one tail branch, got %#v", task)
	}

	lv, ok := m.LBase(Field("name"))
	if !ok || lv.String() != "ROOT.value.lEft.name" {
		t.Fatalf("expected left base value.lEft.name, got %#v (ok=%v)", lv, ok)
	}
	rv, ok := m.RBase(Field("name"))
	if !ok || rv.String() != "ROOT.value.rIght.name" {
		t.Fatalf("expected right base value.rIght.name, got %#v (ok=%v)", rv, ok)
	}
}
