package analytics

import (
	"time"

	"github.com/eleven-am/formpulse/internal/schema"
)

// ApplyResponse folds one response event into an existing aggregate without
// rescanning history. A nil aggregate is treated as freshly initialized.
//
// Averages use the incremental-mean identity and stay exact. Median is only
// set from the first numeric value a field sees and is not recomputed on
// later updates; a batch Recompute produces the true median. That divergence
// is a known property of this path, kept as-is rather than papered over.
//
// Answers for fields not on the form, and field types this version does not
// know, contribute nothing beyond the field count.
func ApplyResponse(agg *FormAggregate, fields schema.FieldList, event ResponseEvent) *FormAggregate {
	if agg == nil {
		agg = NewFormAggregate(fields)
	}
	if agg.ByField == nil {
		agg.ByField = make(map[string]*FieldAggregate, len(fields))
	}
	byID := fields.ByID()

	agg.TotalResponses++

	for _, ans := range event.Answers {
		f, ok := byID[ans.FieldID]
		if !ok {
			continue
		}
		fa := agg.ByField[f.ID]
		if fa == nil {
			fa = NewFieldAggregate(f)
			agg.ByField[f.ID] = fa
		}
		fa.Count++

		switch {
		case f.Type.IsMultiChoice():
			if fa.Distribution == nil {
				fa.Distribution = make(map[string]int)
			}
			for _, opt := range selectedOptions(ans.Value) {
				fa.Distribution[opt]++
			}
		case f.Type.IsChoice():
			if fa.Distribution == nil {
				fa.Distribution = make(map[string]int)
			}
			if opt, ok := ans.Value.(string); ok {
				fa.Distribution[opt]++
			}
		case f.Type.IsNumeric():
			v, ok := numericValue(ans.Value)
			if !ok {
				continue
			}
			applyNumeric(fa, v, event.SubmittedAt)
		}
	}

	agg.UpdatedAt = time.Now().UTC()
	return agg
}

func applyNumeric(fa *FieldAggregate, v float64, submittedAt time.Time) {
	// The mean is over coerced values only, which Count does not track: an
	// answer that fails coercion still bumps Count. The trend buckets count
	// exactly one entry per coerced value, so their sum is the sample size.
	n := 1
	for _, p := range fa.Trend {
		n += p.Count
	}

	if fa.Average == nil {
		// First value: it is both the mean and, until the next full
		// recompute, the reported median.
		fa.Average = &v
		med := v
		fa.Median = &med
	} else {
		avg := (*fa.Average*float64(n-1) + v) / float64(n)
		fa.Average = &avg
	}

	day := dayOf(submittedAt)
	for i := range fa.Trend {
		if fa.Trend[i].Date == day {
			p := &fa.Trend[i]
			p.Value = (p.Value*float64(p.Count) + v) / float64(p.Count+1)
			p.Count++
			return
		}
	}
	fa.Trend = append(fa.Trend, TrendPoint{Date: day, Value: v, Count: 1})
	// Dates are YYYY-MM-DD, so lexicographic order is chronological.
	for i := len(fa.Trend) - 1; i > 0 && fa.Trend[i].Date < fa.Trend[i-1].Date; i-- {
		fa.Trend[i], fa.Trend[i-1] = fa.Trend[i-1], fa.Trend[i]
	}
}
