package form

import (
	"context"
	"errors"

	"github.com/eleven-am/formpulse/internal/schema"
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
	return s.db.AutoMigrate(&Form{})
}

func (s *Store) Create(ctx context.Context, f *Form) error {
	if f.ID == "" {
		f.ID = shared.NewID("form_")
	}
	return s.db.WithContext(ctx).Create(f).Error
}

func (s *Store) GetByID(ctx context.Context, id string) (*Form, error) {
	var f Form
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Store) GetByOwner(ctx context.Context, ownerID string) ([]*Form, error) {
	var forms []*Form
	err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).
		Order("created_at DESC").Find(&forms).Error
	return forms, err
}

func (s *Store) Update(ctx context.Context, f *Form) error {
	return s.db.WithContext(ctx).Save(f).Error
}

func (s *Store) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&Form{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (s *Store) SetPublished(ctx context.Context, id string, published bool) error {
	result := s.db.WithContext(ctx).Model(&Form{}).Where("id = ?", id).
		Update("published", published)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetFields satisfies the analytics FieldSource contract.
func (s *Store) GetFields(ctx context.Context, formID string) (schema.FieldList, error) {
	f, err := s.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	return f.Fields, nil
}

// Exists reports whether a form id is known, without loading the document.
func (s *Store) Exists(ctx context.Context, formID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Form{}).Where("id = ?", formID).Count(&count).Error
	return count > 0, err
}
