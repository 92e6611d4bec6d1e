package dashboard

import (
	"testing"

	"github.com/eleven-am/formpulse/internal/analytics"
)

func intPtr(v int) *int { return &v }

func TestView_MergeDelta(t *testing.T) {
	var v View
	fa1 := &analytics.FieldAggregate{Count: 1}
	fa2 := &analytics.FieldAggregate{Count: 5}

	v.Merge(analytics.UpdatePayload{
		ByField:        map[string]*analytics.FieldAggregate{"f1": fa1, "f2": fa2},
		TotalResponses: intPtr(5),
		UpdatedAt:      "2026-03-01T10:00:00Z",
	})

	// A later delta touching only f1 leaves f2 as-is.
	fa1b := &analytics.FieldAggregate{Count: 2}
	v.Merge(analytics.UpdatePayload{
		ByField:        map[string]*analytics.FieldAggregate{"f1": fa1b},
		TotalResponses: intPtr(6),
	})

	if v.ByField["f1"].Count != 2 {
		t.Errorf("expected f1 overwritten, got count %d", v.ByField["f1"].Count)
	}
	if v.ByField["f2"].Count != 5 {
		t.Errorf("expected f2 untouched, got count %d", v.ByField["f2"].Count)
	}
	if v.TotalResponses != 6 {
		t.Errorf("expected total 6, got %d", v.TotalResponses)
	}
	if v.UpdatedAt != "2026-03-01T10:00:00Z" {
		t.Errorf("absent updatedAt must keep the previous value, got %s", v.UpdatedAt)
	}
}

func TestView_MergeNilTotalKeepsPrevious(t *testing.T) {
	v := View{TotalResponses: 9}

	v.Merge(analytics.UpdatePayload{
		ByField: map[string]*analytics.FieldAggregate{"f1": {Count: 1}},
	})

	if v.TotalResponses != 9 {
		t.Errorf("absent total must keep the previous value, got %d", v.TotalResponses)
	}
}

func TestView_CloneIsIndependent(t *testing.T) {
	v := View{
		ByField:        map[string]*analytics.FieldAggregate{"f1": {Count: 1}},
		TotalResponses: 1,
	}

	clone := v.Clone()
	clone.ByField["f2"] = &analytics.FieldAggregate{Count: 2}

	if _, ok := v.ByField["f2"]; ok {
		t.Error("mutating a clone must not touch the original map")
	}
}
