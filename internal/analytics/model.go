package analytics

import (
	"database/sql/driver"
	"encoding/json"
	"strconv"
	"time"

	"github.com/eleven-am/formpulse/internal/schema"
	"github.com/eleven-am/formpulse/internal/shared"
)

// EventTypeUpdate is the wire message type for aggregate deltas pushed to
// dashboard subscribers.
const EventTypeUpdate = "analytics:update"

// TrendPoint is one day of a numeric field's history. Value is the mean of
// that day's answers.
type TrendPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// FieldAggregate holds the statistics for a single form field.
// Distribution is present only for choice fields; Average and Median only for
// numeric fields, and stay nil until the first value arrives so "no data yet"
// is distinguishable from a zero average.
type FieldAggregate struct {
	Count        int            `json:"count"`
	Distribution map[string]int `json:"distribution,omitempty"`
	Average      *float64       `json:"average,omitempty"`
	Median       *float64       `json:"median,omitempty"`
	Trend        []TrendPoint   `json:"trend,omitempty"`
}

// FormAggregate is the full analytics document for one form.
type FormAggregate struct {
	ByField        map[string]*FieldAggregate `json:"byField"`
	TotalResponses int                        `json:"totalResponses"`
	UpdatedAt      time.Time                  `json:"updatedAt"`
}

func (a FormAggregate) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *FormAggregate) Scan(value any) error {
	bytes, err := shared.JSONBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, a)
}

// NewFieldAggregate seeds a zeroed aggregate for one field. Choice fields get
// every declared option pre-seeded at zero so consumers never have to
// special-case an option that was never chosen.
func NewFieldAggregate(f schema.Field) *FieldAggregate {
	fa := &FieldAggregate{}
	if f.Type.IsChoice() {
		fa.Distribution = make(map[string]int, len(f.Options))
		for _, opt := range f.Options {
			fa.Distribution[opt.ID] = 0
		}
	}
	return fa
}

// NewFormAggregate seeds a zeroed aggregate for every field on the form.
func NewFormAggregate(fields schema.FieldList) *FormAggregate {
	agg := &FormAggregate{
		ByField:   make(map[string]*FieldAggregate, len(fields)),
		UpdatedAt: time.Now().UTC(),
	}
	for _, f := range fields {
		agg.ByField[f.ID] = NewFieldAggregate(f)
	}
	return agg
}

// Answer is a single field answer inside a response event. Value is the
// decoded JSON form of the submitted value: a string for text and
// single-choice answers, a number for numeric answers, a string list for
// multi-select answers.
type Answer struct {
	FieldID string `json:"fieldId"`
	Value   any    `json:"value"`
}

// ResponseEvent is the immutable unit fed into the incremental aggregator,
// created once per accepted submission.
type ResponseEvent struct {
	FormID      string    `json:"formId"`
	Answers     []Answer  `json:"answers"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// UpdatePayload is the data portion of an analytics:update broadcast. It may
// carry a full aggregate or a partial per-field delta; absent members leave
// the receiver's view untouched.
type UpdatePayload struct {
	ByField        map[string]*FieldAggregate `json:"byField,omitempty"`
	TotalResponses *int                       `json:"totalResponses,omitempty"`
	UpdatedAt      string                     `json:"updatedAt,omitempty"`
}

// numericValue coerces the JSON shapes a numeric answer can arrive in.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// selectedOptions normalizes a multi-select answer value into option ids.
func selectedOptions(v any) []string {
	switch s := v.(type) {
	case string:
		return []string{s}
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func dayOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
