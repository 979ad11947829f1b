package datastore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Procedure is a named server-side operation run inside a gorm transaction.
type Procedure func(tx *gorm.DB, tenant Tenant, args Args) (any, error)

// GormStore implements Store over gorm. Every collection must be registered
// with the model that owns its table.
type GormStore struct {
	db         *gorm.DB
	models     map[string]any
	procedures map[string]Procedure
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:         db,
		models:     make(map[string]any),
		procedures: make(map[string]Procedure),
	}
}

// Register binds a collection name to a model, e.g. Register("invoices", &models.Invoice{}).
func (s *GormStore) Register(collection string, model any) *GormStore {
	s.models[collection] = model
	return s
}

// RegisterProcedure makes fn callable through Call.
func (s *GormStore) RegisterProcedure(name string, fn Procedure) *GormStore {
	s.procedures[name] = fn
	return s
}

// DB exposes the underlying connection for code that needs typed queries.
func (s *GormStore) DB() *gorm.DB { return s.db }

func (s *GormStore) model(collection string) (any, error) {
	m, ok := s.models[collection]
	if !ok {
		return nil, DependencyMissing("relation " + collection)
	}
	return m, nil
}

func (s *GormStore) Insert(ctx context.Context, tenant Tenant, collection string, row Row) (Row, error) {
	m, err := s.model(collection)
	if err != nil {
		return nil, err
	}
	values := prepareInsert(tenant, row)
	if err := s.db.WithContext(ctx).Model(m).Create(map[string]any(values)).Error; err != nil {
		return nil, Classify(err)
	}
	return s.findByID(ctx, tenant, collection, values.String("id"))
}

func (s *GormStore) InsertMany(ctx context.Context, tenant Tenant, collection string, rows []Row) error {
	m, err := s.model(collection)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	batch := make([]map[string]any, len(rows))
	for i, r := range rows {
		batch[i] = prepareInsert(tenant, r)
	}
	if err := s.db.WithContext(ctx).Model(m).Create(batch).Error; err != nil {
		return Classify(err)
	}
	return nil
}

func (s *GormStore) Update(ctx context.Context, tenant Tenant, collection, id string, patch Row) (Row, error) {
	m, err := s.model(collection)
	if err != nil {
		return nil, err
	}
	if _, err := s.findByID(ctx, tenant, collection, id); err != nil {
		return nil, err
	}

	values := patch.Clone()
	delete(values, "id")
	delete(values, TenantColumn)
	values["updated_at"] = time.Now()

	err = s.db.WithContext(ctx).Model(m).
		Where("id = ? AND "+TenantColumn+" = ?", id, string(tenant)).
		Updates(map[string]any(values)).Error
	if err != nil {
		return nil, Classify(err)
	}
	return s.findByID(ctx, tenant, collection, id)
}

func (s *GormStore) Delete(ctx context.Context, tenant Tenant, collection string, where Predicate) error {
	m, err := s.model(collection)
	if err != nil {
		return err
	}
	q := s.db.WithContext(ctx).Where(TenantColumn+" = ?", string(tenant))
	if len(where) > 0 {
		q = q.Where(map[string]any(where))
	}
	if err := q.Delete(m).Error; err != nil {
		return Classify(err)
	}
	return nil
}

func (s *GormStore) Select(ctx context.Context, tenant Tenant, collection string, where Predicate, opts ...SelectOption) ([]Row, error) {
	m, err := s.model(collection)
	if err != nil {
		return nil, err
	}
	o := buildSelectOptions(opts)

	q := s.db.WithContext(ctx).Model(m).Where(TenantColumn+" = ?", string(tenant))
	if len(where) > 0 {
		q = q.Where(map[string]any(where))
	}
	if o.orderBy != "" {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: o.orderBy}, Desc: o.desc})
	}
	if o.limit > 0 {
		q = q.Limit(o.limit)
	}

	var found []map[string]any
	if err := q.Find(&found).Error; err != nil {
		return nil, Classify(err)
	}
	rows := make([]Row, len(found))
	for i, f := range found {
		rows[i] = Row(f)
	}
	if err := expandRows(ctx, s, tenant, rows, o.expands); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *GormStore) Call(ctx context.Context, tenant Tenant, procedure string, args Args) (any, error) {
	fn, ok := s.procedures[procedure]
	if !ok {
		return nil, DependencyMissing("function " + procedure)
	}
	var out any
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = fn(tx, tenant, args)
		return err
	})
	if err != nil {
		return nil, Classify(err)
	}
	return out, nil
}

func (s *GormStore) findByID(ctx context.Context, tenant Tenant, collection, id string) (Row, error) {
	rows, err := s.Select(ctx, tenant, collection, Predicate{"id": id}, Limit(1))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, NotFound(collection, id)
	}
	return rows[0], nil
}

func prepareInsert(tenant Tenant, row Row) Row {
	values := row.Clone()
	if values.String("id") == "" {
		values["id"] = uuid.NewString()
	}
	values[TenantColumn] = string(tenant)
	now := time.Now()
	if _, ok := values["created_at"]; !ok {
		values["created_at"] = now
	}
	if _, ok := values["updated_at"]; !ok {
		values["updated_at"] = now
	}
	return values
}
