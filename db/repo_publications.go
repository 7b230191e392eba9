package db

import (
	"context"

	"gorm.io/gorm"
)

// PublicationRepo stores one publication type T.
type PublicationRepo[T any] struct{ DB *gorm.DB }

func NewPublicationRepo[T any](db *gorm.DB) *PublicationRepo[T] {
	return &PublicationRepo[T]{DB: db}
}

func (r *PublicationRepo[T]) Create(ctx context.Context, rec *T) error {
	return r.DB.WithContext(ctx).Create(rec).Error
}

func (r *PublicationRepo[T]) FindByID(ctx context.Context, id uint) (*T, error) {
	rec := new(T)
	if err := r.DB.WithContext(ctx).First(rec, id).Error; err != nil {
		return nil, notFound(err, "publication")
	}
	return rec, nil
}

// List returns every row, or only ownerUID's when it is set.
func (r *PublicationRepo[T]) List(ctx context.Context, ownerUID string) ([]T, error) {
	q := r.DB.WithContext(ctx).Order("created_at DESC")
	if ownerUID != "" {
		q = q.Where("owner_uid = ?", ownerUID)
	}
	var out []T
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PublicationRepo[T]) Save(ctx context.Context, rec *T) error {
	return r.DB.WithContext(ctx).Save(rec).Error
}

func (r *PublicationRepo[T]) Delete(ctx context.Context, rec *T) error {
	return r.DB.WithContext(ctx).Delete(rec).Error
}
