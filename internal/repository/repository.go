// Package repository implements persistence on top of gorm and MongoDB.
package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"gamehub/backend/internal/apperr"

	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Scope is a reusable gorm query fragment.
type Scope = func(*gorm.DB) *gorm.DB

// ListOptions describes a paginated list query.
// Sort uses "field" or "-field"; Filters keys and Sort fields must be whitelisted by the repository.
type ListOptions struct {
	Page     int
	Limit    int
	Sort     string
	Filters  map[string]any
	Search   string
	Preloads []string
	Scopes   []Scope
}

// Page is one page of results plus the total number of matching rows.
type Page[T any] struct {
	Items []T
	Total int64
	Page  int
	Limit int
}

// Config whitelists what callers may sort, filter and search on.
// Columns should be table-qualified so scopes that join other tables stay unambiguous.
type Config struct {
	Resource     string
	SortFields   map[string]string
	FilterFields map[string]string
	SearchFields []string
	DefaultSort  string
}

// Repository is the generic CRUD repository for model T.
type Repository[T any] struct {
	db  *gorm.DB
	cfg Config
}

// New creates a Repository for T.
func New[T any](db *gorm.DB, cfg Config) *Repository[T] {
	return &Repository[T]{db: db, cfg: cfg}
}

// WithTx returns a copy of the repository bound to tx.
func (r *Repository[T]) WithTx(tx *gorm.DB) *Repository[T] {
	return &Repository[T]{db: tx, cfg: r.cfg}
}

// DB returns the underlying handle scoped to ctx.
func (r *Repository[T]) DB(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *Repository[T]) Resource() string {
	return r.cfg.Resource
}

// FindByID loads a row by primary key with the given preloads.
func (r *Repository[T]) FindByID(ctx context.Context, id uint, preloads ...string) (*T, error) {
	q := r.DB(ctx)
	for _, p := range preloads {
		q = q.Preload(p)
	}
	var entity T
	if err := q.First(&entity, id).Error; err != nil {
		return nil, r.translate(err)
	}
	return &entity, nil
}

// FindOne loads the first row matching scope.
func (r *Repository[T]) FindOne(ctx context.Context, scope Scope, preloads ...string) (*T, error) {
	q := r.DB(ctx).Scopes(scope)
	for _, p := range preloads {
		q = q.Preload(p)
	}
	var entity T
	if err := q.First(&entity).Error; err != nil {
		return nil, r.translate(err)
	}
	return &entity, nil
}

// FindByIDs loads every row whose id is in ids. Missing ids are skipped.
func (r *Repository[T]) FindByIDs(ctx context.Context, ids []uint) ([]T, error) {
	var items []T
	if len(ids) == 0 {
		return items, nil
	}
	if err := r.DB(ctx).Find(&items, ids).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// List runs a filtered, sorted and paginated query.
func (r *Repository[T]) List(ctx context.Context, opts ListOptions) (*Page[T], error) {
	page, limit := NormalizePage(opts.Page, opts.Limit)

	q := r.DB(ctx).Model(new(T)).Scopes(opts.Scopes...)

	for key, value := range opts.Filters {
		column, ok := r.cfg.FilterFields[key]
		if !ok {
			return nil, apperr.Validation("error.invalid_query", map[string]string{"param": key})
		}
		if isSlice(value) {
			q = q.Where(column+" IN ?", value)
		} else {
			q = q.Where(column+" = ?", value)
		}
	}

	if search := strings.TrimSpace(opts.Search); search != "" && len(r.cfg.SearchFields) > 0 {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		clauses := make([]string, 0, len(r.cfg.SearchFields))
		args := make([]any, 0, len(r.cfg.SearchFields))
		for _, field := range r.cfg.SearchFields {
			clauses = append(clauses, fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '\\'", field))
			args = append(args, pattern)
		}
		q = q.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}

	// Freeze the conditions so Count and Find each get their own statement.
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	items := make([]T, 0, limit)
	if total > 0 {
		find := q.Order(r.order(opts.Sort))
		for _, p := range opts.Preloads {
			find = find.Preload(p)
		}
		if err := find.Offset((page - 1) * limit).Limit(limit).Find(&items).Error; err != nil {
			return nil, err
		}
	}

	return &Page[T]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Create inserts entity. Unique violations become conflicts.
func (r *Repository[T]) Create(ctx context.Context, entity *T) error {
	if err := r.DB(ctx).Create(entity).Error; err != nil {
		return r.translate(err)
	}
	return nil
}

// Save updates every column of entity.
func (r *Repository[T]) Save(ctx context.Context, entity *T) error {
	if err := r.DB(ctx).Save(entity).Error; err != nil {
		return r.translate(err)
	}
	return nil
}

// Updates writes only the given columns.
func (r *Repository[T]) Updates(ctx context.Context, entity *T, fields map[string]any) error {
	if err := r.DB(ctx).Model(entity).Updates(fields).Error; err != nil {
		return r.translate(err)
	}
	return nil
}

// UpdateColumns writes only the named columns of entity, zero values
// included. Columns maintained elsewhere, such as counters, are left as stored.
func (r *Repository[T]) UpdateColumns(ctx context.Context, entity *T, columns ...string) error {
	if err := r.DB(ctx).Model(entity).Select(columns).Updates(entity).Error; err != nil {
		return r.translate(err)
	}
	return nil
}

// Delete removes the row with id.
func (r *Repository[T]) Delete(ctx context.Context, id uint) error {
	result := r.DB(ctx).Delete(new(T), id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound(r.cfg.Resource)
	}
	return nil
}

// DeleteIDs removes every row in ids and reports how many were deleted.
func (r *Repository[T]) DeleteIDs(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.DB(ctx).Delete(new(T), ids)
	return result.RowsAffected, result.Error
}

// Exists reports whether any row matches scope.
func (r *Repository[T]) Exists(ctx context.Context, scope Scope) (bool, error) {
	count, err := r.Count(ctx, scope)
	return count > 0, err
}

// Count counts rows matching scope.
func (r *Repository[T]) Count(ctx context.Context, scope Scope) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(new(T)).Scopes(scope).Count(&count).Error
	return count, err
}

// Transaction runs fn in a database transaction. fn must only use tx.
func Transaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

// NormalizePage applies the default page size and clamps it to MaxLimit.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

func (r *Repository[T]) order(sort string) string {
	var parts []string
	for _, field := range strings.Split(sort, ",") {
		field = strings.TrimSpace(field)
		direction := "ASC"
		if strings.HasPrefix(field, "-") {
			direction = "DESC"
			field = field[1:]
		}
		if column, ok := r.cfg.SortFields[field]; ok {
			parts = append(parts, column+" "+direction)
		}
	}
	if len(parts) == 0 && r.cfg.DefaultSort != "" {
		parts = append(parts, r.cfg.DefaultSort)
	}
	return strings.Join(parts, ", ")
}

func (r *Repository[T]) translate(err error) error {
	return TranslateError(r.cfg.Resource, err)
}

// TranslateError maps not-found and unique violations to application errors.
func TranslateError(resource string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(resource)
	case IsUniqueViolation(err):
		return apperr.Conflict("error.already_exists", map[string]string{"resource": resource})
	}
	return err
}

// IsUniqueViolation recognizes duplicate key errors from postgres and sqlite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "sqlstate 23505")
}

func isSlice(v any) bool {
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
