// Package datastore is the persistence boundary used by the document
// services: named collections of rows plus named procedures, always scoped
// to an explicit tenant.
package datastore

import (
	"context"
	"fmt"
	"strconv"
)

// Tenant identifies the company every call is scoped to.
type Tenant string

// TenantColumn is the column stamped on every row and used to scope reads.
const TenantColumn = "company_id"

// Row is a single record keyed by column name.
type Row map[string]any

// Predicate matches rows by column equality. A slice value matches any of
// its elements.
type Predicate map[string]any

// Args are the named arguments of a procedure call.
type Args map[string]any

// Procedure names understood by the stores.
const (
	ProcNextDocumentNumber  = "next_document_number"
	ProcAdjustStockQuantity = "adjust_stock_quantity"
)

// Store is the contract the services depend on.
type Store interface {
	Insert(ctx context.Context, tenant Tenant, collection string, row Row) (Row, error)
	InsertMany(ctx context.Context, tenant Tenant, collection string, rows []Row) error
	Update(ctx context.Context, tenant Tenant, collection, id string, patch Row) (Row, error)
	Delete(ctx context.Context, tenant Tenant, collection string, where Predicate) error
	Select(ctx context.Context, tenant Tenant, collection string, where Predicate, opts ...SelectOption) ([]Row, error)
	Call(ctx context.Context, tenant Tenant, procedure string, args Args) (any, error)
}

// SelectOption tweaks a Select.
type SelectOption func(*selectOptions)

type selectOptions struct {
	orderBy string
	desc    bool
	limit   int
	expands []expand
}

type expand struct {
	collection string
	foreignKey string
	as         string
}

// OrderBy sorts results by column, ascending unless desc is set.
func OrderBy(column string, desc bool) SelectOption {
	return func(o *selectOptions) {
		o.orderBy = column
		o.desc = desc
	}
}

// Limit caps the number of rows returned.
func Limit(n int) SelectOption {
	return func(o *selectOptions) { o.limit = n }
}

// Expand attaches child rows of collection whose foreignKey equals the
// parent's id, stored on the parent under as.
func Expand(collection, foreignKey, as string) SelectOption {
	return func(o *selectOptions) {
		o.expands = append(o.expands, expand{collection: collection, foreignKey: foreignKey, as: as})
	}
}

func buildSelectOptions(opts []SelectOption) selectOptions {
	var o selectOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// expandRows runs the child lookups for every parent row through s.
func expandRows(ctx context.Context, s Store, tenant Tenant, rows []Row, expands []expand) error {
	for _, e := range expands {
		ids := make([]any, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.String("id"))
		}
		if len(ids) == 0 {
			continue
		}
		children, err := s.Select(ctx, tenant, e.collection, Predicate{e.foreignKey: ids}, OrderBy("position", false))
		if err != nil {
			return err
		}
		byParent := make(map[string][]Row)
		for _, c := range children {
			key := c.String(e.foreignKey)
			byParent[key] = append(byParent[key], c)
		}
		for _, r := range rows {
			list := byParent[r.String("id")]
			if list == nil {
				list = []Row{}
			}
			r[e.as] = list
		}
	}
	return nil
}

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the column as a string, or "" when absent.
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case *string:
		if v == nil {
			return ""
		}
		return *v
	default:
		return fmt.Sprint(v)
	}
}

// Float returns the column as a float64; unparseable values read as 0.
func (r Row) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint64:
		return float64(v)
	case []byte:
		f, _ := strconv.ParseFloat(string(v), 64)
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

// Bool returns the column as a bool. Integers are true when non-zero.
func (r Row) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case []byte:
		b, _ := strconv.ParseBool(string(v))
		return b
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}
