package schema

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type FieldType string

const (
	FieldTypeText           FieldType = "text"
	FieldTypeLongText       FieldType = "long_text"
	FieldTypeMultipleChoice FieldType = "multiple_choice"
	FieldTypeDropdown       FieldType = "dropdown"
	FieldTypeCheckboxes     FieldType = "checkboxes"
	FieldTypeRating         FieldType = "rating"
	FieldTypeNumber         FieldType = "number"
	FieldTypeDate           FieldType = "date"
)

// IsChoice reports whether answers select from declared options.
func (t FieldType) IsChoice() bool {
	switch t {
	case FieldTypeMultipleChoice, FieldTypeDropdown, FieldTypeCheckboxes:
		return true
	}
	return false
}

// IsMultiChoice reports whether one answer may select several options.
func (t FieldType) IsMultiChoice() bool {
	return t == FieldTypeCheckboxes
}

// IsNumeric reports whether answers carry a numeric value with
// average/median statistics.
func (t FieldType) IsNumeric() bool {
	return t == FieldTypeRating || t == FieldTypeNumber
}

type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type Field struct {
	ID       string    `json:"id"`
	Type     FieldType `json:"type"`
	Label    string    `json:"label"`
	Required bool      `json:"required"`
	Options  []Option  `json:"options,omitempty"`
}

// FieldList is the ordered field set of a form, stored as a JSON column.
type FieldList []Field

func (l FieldList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	return json.Marshal(l)
}

func (l *FieldList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into FieldList", value)
	}

	return json.Unmarshal(bytes, l)
}

// ByID indexes the list by stable field id.
func (l FieldList) ByID() map[string]Field {
	m := make(map[string]Field, len(l))
	for _, f := range l {
		m[f.ID] = f
	}
	return m
}

// Filter returns the fields whose ids appear in ids, keeping list order.
// An empty filter returns the list unchanged.
func (l FieldList) Filter(ids []string) FieldList {
	if len(ids) == 0 {
		return l
	}
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	out := make(FieldList, 0, len(ids))
	for _, f := range l {
		if _, ok := keep[f.ID]; ok {
			out = append(out, f)
		}
	}
	return out
}
