package datastore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		kind       Kind
		constraint string
		column     string
	}{
		{
			name: "record not found",
			err:  fmt.Errorf("find: %w", gorm.ErrRecordNotFound),
			kind: KindNotFound,
		},
		{
			name: "postgres unique",
			err: &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint",
				ConstraintName: "idx_invoices_company_number", Detail: "Key (company_id, number)=(acme, INV-000001) already exists."},
			kind:       KindConflict,
			constraint: "idx_invoices_company_number",
			column:     "company_id, number",
		},
		{
			name: "postgres foreign key",
			err: &pgconn.PgError{Code: "23503", ConstraintName: "fk_invoices_quotation",
				Detail: `Key (quotation_id)=(q1) is not present in table "quotations".`},
			kind:       KindForeignKey,
			constraint: "fk_invoices_quotation",
			column:     "quotation_id",
		},
		{
			name: "postgres missing function",
			err:  &pgconn.PgError{Code: "42883", Message: "function next_document_number(text) does not exist"},
			kind: KindDependencyMissing,
		},
		{
			name: "postgres not null",
			err:  &pgconn.PgError{Code: "23502", ColumnName: "description"},
			kind: KindInvalid, column: "description",
		},
		{
			name: "mysql foreign key",
			err: &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row: a foreign key constraint fails " +
				"(`bizdesk`.`invoices`, CONSTRAINT `fk_invoices_quotation` FOREIGN KEY (`quotation_id`) REFERENCES `quotations` (`id`))"},
			kind:       KindForeignKey,
			constraint: "fk_invoices_quotation",
			column:     "quotation_id",
		},
		{
			name:       "mysql duplicate",
			err:        &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'acme-INV-000001' for key 'invoices.idx_invoices_company_number'"},
			kind:       KindConflict,
			constraint: "invoices.idx_invoices_company_number",
		},
		{
			name: "mysql missing table",
			err:  &mysql.MySQLError{Number: 1146, Message: "Table 'bizdesk.stock_movements' doesn't exist"},
			kind: KindDependencyMissing,
		},
		{
			name: "sqlite unique",
			err:  sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique},
			kind: KindConflict,
		},
		{
			name: "sqlite foreign key",
			err:  sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey},
			kind: KindForeignKey,
		},
		{
			name: "plain error",
			err:  errors.New("connection refused"),
			kind: KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(tt.err)
			var se *Error
			if assert.ErrorAs(t, err, &se) {
				assert.Equal(t, tt.kind, se.Kind)
				assert.Equal(t, tt.constraint, se.Constraint)
				assert.Equal(t, tt.column, se.Column)
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassifyKeepsStoreErrors(t *testing.T) {
	orig := DependencyMissing("relation invoices")
	assert.Same(t, orig, Classify(orig))
	assert.Nil(t, Classify(nil))
}

func TestNames(t *testing.T) {
	assert.True(t, (&Error{Column: "quotation_id"}).Names("quotation_id"))
	assert.True(t, (&Error{Constraint: "invoices_quotation_id_fkey"}).Names("quotation_id"))
	assert.True(t, (&Error{Constraint: "fk_invoices_quotation"}).Names("quotation_id"))
	assert.False(t, (&Error{Constraint: "idx_invoices_company_number"}).Names("quotation_id"))
	assert.False(t, (&Error{Column: "x"}).Names(""))
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("insert: %w", NotFound("products", "p1"))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, KindUnknown, KindOf(errors.New("x")))
	assert.Equal(t, "dependency_missing", KindDependencyMissing.String())
}
