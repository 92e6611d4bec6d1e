package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/eleven-am/formpulse/internal/shared"
	"gorm.io/gorm"
)

// Aggregate is the persisted analytics document for one form, stored as a
// single JSON column keyed by form id.
type Aggregate struct {
	FormID    string        `gorm:"primaryKey" json:"form_id"`
	Data      FormAggregate `gorm:"type:json" json:"data"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Aggregate{})
}

func (s *Store) Get(ctx context.Context, formID string) (*FormAggregate, error) {
	var rec Aggregate
	err := s.db.WithContext(ctx).Where("form_id = ?", formID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec.Data, nil
}

// Replace upserts the full aggregate document for a form.
func (s *Store) Replace(ctx context.Context, formID string, agg *FormAggregate) error {
	rec := Aggregate{
		FormID:    formID,
		Data:      *agg,
		UpdatedAt: agg.UpdatedAt,
	}
	return s.db.WithContext(ctx).Save(&rec).Error
}

func (s *Store) Delete(ctx context.Context, formID string) error {
	return s.db.WithContext(ctx).Delete(&Aggregate{}, "form_id = ?", formID).Error
}
