package persistence

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Repository provides generic access to the table backing T.
type Repository[T any] struct {
	db *gorm.DB
}

// NewRepository creates a repository for T.
func NewRepository[T any](db *gorm.DB) *Repository[T] {
	return &Repository[T]{db: db}
}

// DB returns the underlying handle.
func (r *Repository[T]) DB() *gorm.DB {
	return r.db
}

// Schema returns the parsed gorm schema of T.
func (r *Repository[T]) Schema() (*schema.Schema, error) {
	return parseSchema(r.db, new(T))
}

type getConfig struct {
	keys    []string
	preload []string
}

// GetOption configures a primary-key lookup.
type GetOption func(*getConfig)

// WithKey looks up by a single column other than "id".
func WithKey(name string) GetOption {
	return func(c *getConfig) { c.keys = []string{name} }
}

// WithCompositeKey looks up by several columns; the id passed to the
// lookup must then be a slice with one value per column, in order.
func WithCompositeKey(names ...string) GetOption {
	return func(c *getConfig) { c.keys = names }
}

// WithPreload eagerly loads the named relationships.
func WithPreload(relations ...string) GetOption {
	return func(c *getConfig) { c.preload = append(c.preload, relations...) }
}

// GetByPK returns the row matching id, or nil when there is none.
func (r *Repository[T]) GetByPK(ctx context.Context, id any, opts ...GetOption) (*T, error) {
	cfg := getConfig{keys: []string{"id"}}
	for _, opt := range opts {
		opt(&cfg)
	}

	s, err := r.Schema()
	if err != nil {
		return nil, err
	}
	conds, err := keyConditions(s, cfg.keys, id)
	if err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx)
	for _, rel := range cfg.preload {
		root, _, _ := strings.Cut(rel, ".")
		if _, ok := s.Relationships.Relations[root]; !ok {
			return nil, &UnknownFieldError{Model: s.Name, Field: rel, Available: relationNames(s)}
		}
		q = q.Preload(rel)
	}

	var out T
	if err := q.Where(clause.And(conds...)).Take(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// DeleteByID deletes the row matching id and reports whether one existed.
func (r *Repository[T]) DeleteByID(ctx context.Context, id any, opts ...GetOption) (bool, error) {
	obj, err := r.GetByPK(ctx, id, opts...)
	if err != nil || obj == nil {
		return false, err
	}
	if err := r.db.WithContext(ctx).Delete(obj).Error; err != nil {
		return false, err
	}
	return true, nil
}

type query struct {
	where    []fieldValue
	scopes   []func(*gorm.DB) *gorm.DB
	order    []sortKey
	page     int
	size     int
	paged    bool
	distinct bool
}

type fieldValue struct {
	field string
	value any
}

// QueryOption narrows Count and List.
type QueryOption func(*query)

// Where adds an equality filter on a column.
func Where(field string, value any) QueryOption {
	return func(q *query) { q.where = append(q.where, fieldValue{field, value}) }
}

// Scope applies an arbitrary gorm scope.
func Scope(fn func(*gorm.DB) *gorm.DB) QueryOption {
	return func(q *query) { q.scopes = append(q.scopes, fn) }
}

// Page limits the result to page (zero based) of the given size.
func Page(page, size int) QueryOption {
	return func(q *query) {
		q.page, q.size, q.paged = page, size, true
	}
}

// Distinct drops duplicate rows.
func Distinct() QueryOption {
	return func(q *query) { q.distinct = true }
}

func (r *Repository[T]) build(ctx context.Context, opts []QueryOption) (*gorm.DB, *query, error) {
	var qo query
	for _, opt := range opts {
		opt(&qo)
	}
	if qo.paged && (qo.page < 0 || qo.size <= 0) {
		return nil, nil, fmt.Errorf("%w: page=%d size=%d", ErrInvalidPage, qo.page, qo.size)
	}

	s, err := r.Schema()
	if err != nil {
		return nil, nil, err
	}

	db := r.db.WithContext(ctx).Model(new(T))
	for _, w := range qo.where {
		f := s.LookUpField(w.field)
		if f == nil || f.DBName == "" {
			return nil, nil, &UnknownFieldError{Model: s.Name, Field: w.field, Available: availableKeys(s)}
		}
		db = db.Where(clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: f.DBName}, Value: w.value})
	}
	for _, k := range qo.order {
		f := s.LookUpField(k.field)
		if f == nil || f.DBName == "" {
			return nil, nil, &UnknownFieldError{Model: s.Name, Field: k.field, Available: availableKeys(s)}
		}
		db = db.Order(k.orderBy(f.DBName))
	}
	if len(qo.scopes) > 0 {
		db = db.Scopes(qo.scopes...)
	}
	if qo.distinct {
		db = db.Distinct()
	}
	return db, &qo, nil
}

// Count returns the number of rows matching opts. Page is ignored.
func (r *Repository[T]) Count(ctx context.Context, opts ...QueryOption) (int64, error) {
	db, _, err := r.build(ctx, opts)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// List returns the rows matching opts; an empty result is not an error.
func (r *Repository[T]) List(ctx context.Context, opts ...QueryOption) ([]T, error) {
	db, qo, err := r.build(ctx, opts)
	if err != nil {
		return nil, err
	}
	if qo.paged {
		db = db.Offset(qo.page * qo.size).Limit(qo.size)
	}
	var out []T
	if err := db.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Create validates fields, inserts a new row built from them, and returns
// the row as stored, including database defaults.
func (r *Repository[T]) Create(ctx context.Context, fields map[string]any) (*T, error) {
	s, err := r.Schema()
	if err != nil {
		return nil, err
	}
	if err := ValidateFields(s, fields); err != nil {
		return nil, err
	}

	var entity T
	rv := reflect.ValueOf(&entity).Elem()
	for key, value := range fields {
		if err := s.LookUpField(key).Set(ctx, rv, value); err != nil {
			return nil, fmt.Errorf("set %s.%s: %w", s.Name, key, err)
		}
	}

	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return nil, err
	}
	return r.refresh(ctx, s, &entity)
}

// Insert persists an already built entity.
func (r *Repository[T]) Insert(ctx context.Context, entity *T) error {
	return r.db.WithContext(ctx).Create(entity).Error
}

// UpdateFields writes only the named columns of entity.
func (r *Repository[T]) UpdateFields(ctx context.Context, entity *T, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(entity).Select(fields).Updates(entity).Error
}

func (r *Repository[T]) refresh(ctx context.Context, s *schema.Schema, entity *T) (*T, error) {
	rv := reflect.ValueOf(entity).Elem()
	conds := make([]clause.Expression, 0, len(s.PrimaryFields))
	for _, f := range s.PrimaryFields {
		v, _ := f.ValueOf(ctx, rv)
		conds = append(conds, clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: f.DBName}, Value: v})
	}
	if len(conds) == 0 {
		return entity, nil
	}

	var fresh T
	if err := r.db.WithContext(ctx).Where(clause.And(conds...)).Take(&fresh).Error; err != nil {
		return nil, fmt.Errorf("reload %s: %w", s.Name, err)
	}
	return &fresh, nil
}

func keyConditions(s *schema.Schema, keys []string, id any) ([]clause.Expression, error) {
	fields := make([]*schema.Field, len(keys))
	for i, key := range keys {
		f := s.LookUpField(key)
		if f == nil || f.DBName == "" {
			return nil, &UnknownFieldError{Model: s.Name, Field: key, Available: availableKeys(s)}
		}
		fields[i] = f
	}

	var values []any
	if len(fields) == 1 {
		values = []any{id}
	} else {
		rv := reflect.ValueOf(id)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, fmt.Errorf("%w: %s needs %d values, got %T", ErrCompositeKey, s.Name, len(fields), id)
		}
		if rv.Len() != len(fields) {
			return nil, fmt.Errorf("%w: %s needs %d values, got %d", ErrCompositeKey, s.Name, len(fields), rv.Len())
		}
		for i := range rv.Len() {
			values = append(values, rv.Index(i).Interface())
		}
	}

	conds := make([]clause.Expression, len(fields))
	for i, f := range fields {
		if values[i] == nil || !keyCompatible(reflect.TypeOf(values[i]), f.FieldType) {
			return nil, fmt.Errorf("%w: %s.%s is %s, got %T", ErrKeyType, s.Name, f.Name, f.FieldType, values[i])
		}
		conds[i] = clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: f.DBName}, Value: values[i]}
	}
	return conds, nil
}

func keyCompatible(v, f reflect.Type) bool {
	if f.Kind() == reflect.Pointer {
		f = f.Elem()
	}
	if v.AssignableTo(f) {
		return true
	}
	switch {
	case isNumber(v.Kind()) && isNumber(f.Kind()):
		return true
	case v.Kind() == reflect.String && f.Kind() == reflect.String:
		return true
	}
	return false
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func relationNames(s *schema.Schema) []string {
	return slices.Sorted(maps.Keys(s.Relationships.Relations))
}
