package form

import (
	"time"

	"github.com/eleven-am/formpulse/internal/schema"
)

type Form struct {
	ID          string           `gorm:"primaryKey" json:"id"`
	OwnerID     string           `gorm:"not null;index" json:"owner_id"`
	Title       string           `gorm:"not null" json:"title"`
	Description string           `json:"description,omitempty"`
	Fields      schema.FieldList `gorm:"type:json" json:"fields"`
	Published   bool             `gorm:"default:false" json:"published"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Snapshot captures the classifier-relevant surface of the form.
func (f *Form) Snapshot() schema.Snapshot {
	return schema.Snapshot{
		Title:       f.Title,
		Description: f.Description,
		Fields:      f.Fields,
	}
}
