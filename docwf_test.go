package docwf_test

import (
	"testing"

	"github.com/zoobzio/docwf"
	"github.com/zoobzio/docwf/internal/types"
)

func TestPlanEndToEndMatchAndLimit(t *testing.T) {
	op := docwf.Limit(
		docwf.Match(
			docwf.Read(docwf.Collection{Name: "orders"}),
			docwf.Cond(docwf.Var("status"), docwf.OpEQ, docwf.Lit("shipped")),
		),
		intPagination(10),
	)

	task, err := docwf.Plan(op)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	pt, ok := task.(docwf.PipelineTask)
	if !ok {
		t.Fatalf("expected PipelineTask, got %T", task)
	}
	if len(pt.Stages) != 2 {
		t.Fatalf("expected 2 native stages, got %d", len(pt.Stages))
	}
	if _, ok := pt.Src.(docwf.ReadTask); !ok {
		t.Fatalf("expected ReadTask source, got %T", pt.Src)
	}
}

func TestPlanProjectThenGroupSums(t *testing.T) {
	shape := docwf.NewReshape()
	shape.SetExpr(docwf.NewBsonField("amount"), docwf.Ref(docwf.Var("total")))
	shape.SetExpr(docwf.NewBsonField("customer"), docwf.Ref(docwf.Var("customerId")))

	grouped := docwf.NewGrouped()
	grouped.Set("sum", docwf.Sum(docwf.Ref(docwf.Var("amount"))))

	op := docwf.Group(
		docwf.Project(docwf.Read(docwf.Collection{Name: "orders"}), shape),
		grouped,
		docwf.Ref(docwf.Var("customer")),
	)

	task, err := docwf.Plan(op)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if _, ok := task.(docwf.PipelineTask); !ok {
		t.Fatalf("expected a native PipelineTask for Project+Group, got %T", task)
	}
}

func TestValidateRejectsNilSource(t *testing.T) {
	op := docwf.Limit(nil, intPagination(1))
	if err := docwf.Validate(op); err == nil {
		t.Fatal("expected Validate to reject a nil source")
	}
}

func intPagination(n int) types.PaginationValue {
	return types.PaginationValue{Static: &n}
}
