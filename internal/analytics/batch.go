package analytics

import (
	"slices"
	"time"

	"github.com/eleven-am/formpulse/internal/schema"
)

// RecomputeOptions restricts a batch recompute to a subset of fields and an
// inclusive submission date range. The zero value means "everything".
type RecomputeOptions struct {
	FieldIDs []string
	From     *time.Time
	To       *time.Time
}

func (o RecomputeOptions) IsZero() bool {
	return len(o.FieldIDs) == 0 && o.From == nil && o.To == nil
}

func (o RecomputeOptions) includes(t time.Time) bool {
	if o.From != nil && t.Before(*o.From) {
		return false
	}
	if o.To != nil && t.After(*o.To) {
		return false
	}
	return true
}

// Recompute builds a form's aggregate from its complete response history.
// It is a pure function of its inputs and the authoritative slow path: the
// incremental path applied over the same events in submission order yields
// the same counts, distributions and averages (medians may differ, see
// ApplyResponse).
func Recompute(fields schema.FieldList, events []ResponseEvent, opts RecomputeOptions) *FormAggregate {
	scope := fields.Filter(opts.FieldIDs)
	agg := NewFormAggregate(scope)
	byID := scope.ByID()

	values := make(map[string][]float64)
	trends := make(map[string]map[string]*trendAcc)

	for _, ev := range events {
		if !opts.includes(ev.SubmittedAt) {
			continue
		}
		agg.TotalResponses++

		for _, ans := range ev.Answers {
			f, ok := byID[ans.FieldID]
			if !ok {
				continue
			}
			fa := agg.ByField[f.ID]
			fa.Count++

			switch {
			case f.Type.IsMultiChoice():
				for _, opt := range selectedOptions(ans.Value) {
					fa.Distribution[opt]++
				}
			case f.Type.IsChoice():
				if opt, ok := ans.Value.(string); ok {
					fa.Distribution[opt]++
				}
			case f.Type.IsNumeric():
				v, ok := numericValue(ans.Value)
				if !ok {
					continue
				}
				values[f.ID] = append(values[f.ID], v)
				day := dayOf(ev.SubmittedAt)
				if trends[f.ID] == nil {
					trends[f.ID] = make(map[string]*trendAcc)
				}
				acc := trends[f.ID][day]
				if acc == nil {
					acc = &trendAcc{}
					trends[f.ID][day] = acc
				}
				acc.sum += v
				acc.count++
			}
		}
	}

	for fieldID, vals := range values {
		fa := agg.ByField[fieldID]
		avg := mean(vals)
		med := median(vals)
		fa.Average = &avg
		fa.Median = &med
		fa.Trend = trendPoints(trends[fieldID])
	}

	agg.UpdatedAt = time.Now().UTC()
	return agg
}

type trendAcc struct {
	sum   float64
	count int
}

func trendPoints(days map[string]*trendAcc) []TrendPoint {
	if len(days) == 0 {
		return nil
	}
	dates := make([]string, 0, len(days))
	for day := range days {
		dates = append(dates, day)
	}
	slices.Sort(dates)

	points := make([]TrendPoint, len(dates))
	for i, day := range dates {
		acc := days[day]
		points[i] = TrendPoint{
			Date:  day,
			Value: acc.sum / float64(acc.count),
			Count: acc.count,
		}
	}
	return points
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// median sorts a copy of the values; even-length lists average the two
// central elements.
func median(vals []float64) float64 {
	sorted := slices.Clone(vals)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
