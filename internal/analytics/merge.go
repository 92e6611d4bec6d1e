package analytics

import (
	"time"

	"github.com/eleven-am/formpulse/internal/schema"
)

// Merge reshapes a preserved aggregate after a compatible schema edit:
// surviving fields keep their statistics untouched, newly added fields start
// zeroed, and keys for fields no longer on the form are dropped. This is the
// cheap alternative to a full recompute and is only valid when the change
// classifier reported resetsAggregates=false.
func Merge(agg *FormAggregate, fields schema.FieldList) *FormAggregate {
	if agg == nil {
		return NewFormAggregate(fields)
	}

	merged := &FormAggregate{
		ByField:        make(map[string]*FieldAggregate, len(fields)),
		TotalResponses: agg.TotalResponses,
		UpdatedAt:      time.Now().UTC(),
	}
	for _, f := range fields {
		if fa, ok := agg.ByField[f.ID]; ok && fa != nil {
			merged.ByField[f.ID] = fa
			continue
		}
		merged.ByField[f.ID] = NewFieldAggregate(f)
	}
	return merged
}
