package response

import (
	"context"
	"time"

	"github.com/eleven-am/formpulse/internal/analytics"
	"github.com/eleven-am/formpulse/internal/shared"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Response{})
}

func (s *Store) Create(ctx context.Context, r *Response) error {
	if r.ID == "" {
		r.ID = shared.NewID("resp_")
	}
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(r).Error
}

// FindByForm returns a form's responses in submission order. Bounds are
// inclusive when non-nil.
func (s *Store) FindByForm(ctx context.Context, formID string, from, to *time.Time) ([]*Response, error) {
	q := s.db.WithContext(ctx).Where("form_id = ?", formID)
	if from != nil {
		q = q.Where("submitted_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("submitted_at <= ?", *to)
	}

	var responses []*Response
	err := q.Order("submitted_at ASC").Find(&responses).Error
	return responses, err
}

func (s *Store) CountByForm(ctx context.Context, formID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Response{}).Where("form_id = ?", formID).Count(&count).Error
	return count, err
}

func (s *Store) DeleteByForm(ctx context.Context, formID string) error {
	return s.db.WithContext(ctx).Delete(&Response{}, "form_id = ?", formID).Error
}

// FindEvents satisfies the analytics ResponseSource contract.
func (s *Store) FindEvents(ctx context.Context, formID string, from, to *time.Time) ([]analytics.ResponseEvent, error) {
	responses, err := s.FindByForm(ctx, formID, from, to)
	if err != nil {
		return nil, err
	}
	events := make([]analytics.ResponseEvent, len(responses))
	for i, r := range responses {
		events[i] = r.Event()
	}
	return events, nil
}
