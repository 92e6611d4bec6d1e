package dashboard

import (
	"github.com/eleven-am/formpulse/internal/analytics"
)

// View is the client-side mirror of a form's aggregate, updated from
// analytics:update frames. Deltas merge per field key, last write wins;
// fields absent from a delta keep their previous value.
type View struct {
	ByField        map[string]*analytics.FieldAggregate `json:"byField"`
	TotalResponses int                                  `json:"totalResponses"`
	UpdatedAt      string                               `json:"updatedAt"`
}

// Merge applies a full or partial update payload.
func (v *View) Merge(p analytics.UpdatePayload) {
	if v.ByField == nil {
		v.ByField = make(map[string]*analytics.FieldAggregate, len(p.ByField))
	}
	for fieldID, fa := range p.ByField {
		v.ByField[fieldID] = fa
	}
	if p.TotalResponses != nil {
		v.TotalResponses = *p.TotalResponses
	}
	if p.UpdatedAt != "" {
		v.UpdatedAt = p.UpdatedAt
	}
}

// Clone returns an independent snapshot safe to hand to callbacks.
func (v *View) Clone() View {
	out := View{
		ByField:        make(map[string]*analytics.FieldAggregate, len(v.ByField)),
		TotalResponses: v.TotalResponses,
		UpdatedAt:      v.UpdatedAt,
	}
	for fieldID, fa := range v.ByField {
		out.ByField[fieldID] = fa
	}
	return out
}
