package response

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/eleven-am/formpulse/internal/analytics"
	"github.com/eleven-am/formpulse/internal/shared"
)

type Answer struct {
	FieldID string `json:"fieldId"`
	Value   any    `json:"value"`
}

// AnswerList is the ordered answers of one submission, stored as a JSON
// column.
type AnswerList []Answer

func (l AnswerList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	return json.Marshal(l)
}

func (l *AnswerList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, err := shared.JSONBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, l)
}

type Response struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	FormID      string     `gorm:"not null;index" json:"form_id"`
	Answers     AnswerList `gorm:"type:json" json:"answers"`
	SubmittedAt time.Time  `gorm:"index" json:"submitted_at"`
}

// Event converts the stored response into the immutable unit the aggregator
// consumes.
func (r *Response) Event() analytics.ResponseEvent {
	answers := make([]analytics.Answer, len(r.Answers))
	for i, a := range r.Answers {
		answers[i] = analytics.Answer{FieldID: a.FieldID, Value: a.Value}
	}
	return analytics.ResponseEvent{
		FormID:      r.FormID,
		Answers:     answers,
		SubmittedAt: r.SubmittedAt,
	}
}
