package sqlite

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"

	"github.com/dtroode/authkeeper/internal/model"
)

// Scope narrows a query.
type Scope func(*gorm.DB) *gorm.DB

// Where returns a scope with a single condition.
func Where(query any, args ...any) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	}
}

// OrderBy returns a scope that orders results.
func OrderBy(order string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(order)
	}
}

// Page is one page of a paginated query.
type Page[T any] struct {
	Rows       []T
	Count      int64
	Page       int
	PageSize   int
	TotalPages int
}

// Repository provides CRUD operations over any gorm model with an integer primary key.
type Repository[T any] struct {
	db *gorm.DB
}

func NewRepository[T any](db *gorm.DB) *Repository[T] {
	return &Repository[T]{db: db}
}

func (r *Repository[T]) query(ctx context.Context, scopes []Scope) *gorm.DB {
	db := r.db.WithContext(ctx).Model(new(T))
	for _, s := range scopes {
		db = s(db)
	}
	return db
}

// GetOne returns the first row matching scopes.
func (r *Repository[T]) GetOne(ctx context.Context, scopes ...Scope) (T, error) {
	var row T
	if err := r.query(ctx, scopes).First(&row).Error; err != nil {
		return row, wrapError("get row", err)
	}
	return row, nil
}

// GetMany returns every row matching scopes.
func (r *Repository[T]) GetMany(ctx context.Context, scopes ...Scope) ([]T, error) {
	var rows []T
	if err := r.query(ctx, scopes).Find(&rows).Error; err != nil {
		return nil, wrapError("get rows", err)
	}
	return rows, nil
}

// GetByID returns the row with the given primary key.
func (r *Repository[T]) GetByID(ctx context.Context, id int64) (T, error) {
	return r.GetOne(ctx, Where("id = ?", id))
}

// Count returns the number of rows matching scopes.
func (r *Repository[T]) Count(ctx context.Context, scopes ...Scope) (int64, error) {
	var n int64
	if err := r.query(ctx, scopes).Count(&n).Error; err != nil {
		return 0, wrapError("count rows", err)
	}
	return n, nil
}

// Exists reports whether any row matches scopes.
func (r *Repository[T]) Exists(ctx context.Context, scopes ...Scope) (bool, error) {
	n, err := r.Count(ctx, scopes...)
	return n > 0, err
}

// Paginate returns the requested page. Page numbers start at 1 and TotalPages is at least 1.
func (r *Repository[T]) Paginate(ctx context.Context, page, pageSize int, scopes ...Scope) (Page[T], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	count, err := r.Count(ctx, scopes...)
	if err != nil {
		return Page[T]{}, err
	}

	var rows []T
	err = r.query(ctx, scopes).Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error
	if err != nil {
		return Page[T]{}, wrapError("paginate rows", err)
	}

	totalPages := int(math.Ceil(float64(count) / float64(pageSize)))
	if totalPages < 1 {
		totalPages = 1
	}

	return Page[T]{
		Rows:       rows,
		Count:      count,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Create inserts row and fills generated fields.
func (r *Repository[T]) Create(ctx context.Context, row *T) error {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return wrapError("create row", err)
	}
	return nil
}

// UpdateMany applies values to every row matching scopes and returns the affected count.
func (r *Repository[T]) UpdateMany(ctx context.Context, values map[string]any, scopes ...Scope) (int64, error) {
	res := r.query(ctx, scopes).Updates(values)
	if res.Error != nil {
		return 0, wrapError("update rows", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteMany soft-deletes every row matching scopes. At least one scope is required.
func (r *Repository[T]) DeleteMany(ctx context.Context, scopes ...Scope) (int64, error) {
	if len(scopes) == 0 {
		return 0, errors.New("failed to delete rows: refusing to delete without conditions")
	}
	var row T
	res := r.query(ctx, scopes).Delete(&row)
	if res.Error != nil {
		return 0, wrapError("delete rows", res.Error)
	}
	return res.RowsAffected, nil
}

func wrapError(action string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.ErrNotFound
	case isDuplicate(err):
		return fmt.Errorf("failed to %s: %w", action, model.ErrDuplicate)
	default:
		return fmt.Errorf("failed to %s: %w", action, err)
	}
}
