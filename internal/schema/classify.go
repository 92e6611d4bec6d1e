package schema

import "fmt"

// Snapshot is the schema surface compared by Classify: the editable title,
// description and field set of a form at one point in time.
type Snapshot struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Fields      FieldList `json:"fields"`
}

type TypeChange struct {
	FieldID string    `json:"fieldId"`
	From    FieldType `json:"from"`
	To      FieldType `json:"to"`
}

// ChangeReport describes how a schema edit affects stored analytics.
// ResetsAggregates is true iff at least one incompatible change exists.
type ChangeReport struct {
	HasChanges          bool         `json:"hasChanges"`
	ResetsAggregates    bool         `json:"resetsAggregates"`
	CompatibleChanges   []string     `json:"compatibleChanges"`
	IncompatibleChanges []string     `json:"incompatibleChanges"`
	DeletedFieldLabels  []string     `json:"deletedFieldLabels"`
	TypeChangedFields   []TypeChange `json:"typeChangedFields"`
	NewFieldLabels      []string     `json:"newFieldLabels"`
}

// Classify compares two schema snapshots and reports every change as either
// compatible (existing aggregates stay valid) or incompatible (aggregates
// must be reset). Fields are matched by stable id. Deleting a field or
// changing its type is incompatible; adding a field or editing a label,
// required flag, option set, title or description is compatible.
//
// The same verdict must be reachable by the editing client before saving, so
// this package stays free of non-stdlib dependencies and is also exposed
// verbatim over the schema-check endpoint.
func Classify(prev, next Snapshot) *ChangeReport {
	r := &ChangeReport{
		CompatibleChanges:   []string{},
		IncompatibleChanges: []string{},
		DeletedFieldLabels:  []string{},
		TypeChangedFields:   []TypeChange{},
		NewFieldLabels:      []string{},
	}

	prevByID := prev.Fields.ByID()
	nextByID := next.Fields.ByID()

	for _, pf := range prev.Fields {
		nf, ok := nextByID[pf.ID]
		if !ok {
			r.IncompatibleChanges = append(r.IncompatibleChanges,
				fmt.Sprintf("Field %q was deleted", pf.Label))
			r.DeletedFieldLabels = append(r.DeletedFieldLabels, pf.Label)
			continue
		}

		// A type change invalidates the field's history outright; other
		// attribute diffs on the same field are deliberately not reported.
		if nf.Type != pf.Type {
			r.IncompatibleChanges = append(r.IncompatibleChanges,
				fmt.Sprintf("Field %q changed type from %s to %s", pf.Label, pf.Type, nf.Type))
			r.TypeChangedFields = append(r.TypeChangedFields, TypeChange{
				FieldID: pf.ID,
				From:    pf.Type,
				To:      nf.Type,
			})
			continue
		}

		if nf.Label != pf.Label {
			r.CompatibleChanges = append(r.CompatibleChanges,
				fmt.Sprintf("Field %q renamed to %q", pf.Label, nf.Label))
		}
		if nf.Required != pf.Required {
			r.CompatibleChanges = append(r.CompatibleChanges,
				fmt.Sprintf("Field %q required flag changed", nf.Label))
		}
		if !equalOptions(pf.Options, nf.Options) {
			r.CompatibleChanges = append(r.CompatibleChanges,
				fmt.Sprintf("Field %q options changed", nf.Label))
		}
	}

	for _, nf := range next.Fields {
		if _, ok := prevByID[nf.ID]; !ok {
			r.CompatibleChanges = append(r.CompatibleChanges,
				fmt.Sprintf("New field %q added", nf.Label))
			r.NewFieldLabels = append(r.NewFieldLabels, nf.Label)
		}
	}

	if next.Title != prev.Title {
		r.CompatibleChanges = append(r.CompatibleChanges, "Form title changed")
	}
	if next.Description != prev.Description {
		r.CompatibleChanges = append(r.CompatibleChanges, "Form description changed")
	}

	r.HasChanges = len(r.CompatibleChanges) > 0 || len(r.IncompatibleChanges) > 0
	r.ResetsAggregates = len(r.IncompatibleChanges) > 0
	return r
}

// equalOptions compares option lists order-sensitively by id and label.
func equalOptions(a, b []Option) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Label != b[i].Label {
			return false
		}
	}
	return true
}
