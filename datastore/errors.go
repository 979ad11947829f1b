package datastore

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// Kind classifies a store failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindForeignKey
	KindDependencyMissing
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForeignKey:
		return "foreign_key"
	case KindDependencyMissing:
		return "dependency_missing"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Error is the shape of every failure returned by a Store.
type Error struct {
	Kind       Kind
	Code       string
	Message    string
	Details    string
	Hint       string
	Constraint string
	Column     string
	Err        error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Names reports whether the error's constraint or column refers to column.
func (e *Error) Names(column string) bool {
	if column == "" {
		return false
	}
	if e.Column == column {
		return true
	}
	if e.Constraint == "" {
		return false
	}
	// gorm names relation constraints fk_<table>_<relation>, without the _id suffix
	return strings.Contains(e.Constraint, column) ||
		strings.HasSuffix(e.Constraint, "_"+strings.TrimSuffix(column, "_id"))
}

// KindOf returns the Kind of err, or KindUnknown when err is not a store error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is a KindNotFound store error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// NotFound builds a KindNotFound error.
func NotFound(collection, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", collection, id)}
}

// DependencyMissing builds a KindDependencyMissing error for a collection or procedure.
func DependencyMissing(what string) *Error {
	return &Error{
		Kind:    KindDependencyMissing,
		Message: fmt.Sprintf("%s does not exist", what),
		Hint:    "run the database setup",
	}
}

var (
	sqliteColumnRe = regexp.MustCompile(`constraint failed: (\w+)\.(\w+)`)
	pgKeyRe        = regexp.MustCompile(`^Key \(([\w, ]+)\)=`)
	mysqlFKRe      = regexp.MustCompile("CONSTRAINT `(\\w+)` FOREIGN KEY \\(`(\\w+)`\\)")
	mysqlKeyRe     = regexp.MustCompile(`for key '([\w.]+)'`)
)

// Classify maps driver errors from postgres, mysql and sqlite onto Error.
// Errors that are already classified pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Error{Kind: KindNotFound, Message: err.Error(), Err: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPostgres(pgErr)
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return classifyMySQL(myErr)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return classifySQLite(liteErr)
	}
	return &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
}

func classifyPostgres(e *pgconn.PgError) *Error {
	out := &Error{
		Code:       e.Code,
		Message:    e.Message,
		Details:    e.Detail,
		Hint:       e.Hint,
		Constraint: e.ConstraintName,
		Column:     e.ColumnName,
		Err:        e,
	}
	if out.Column == "" {
		if m := pgKeyRe.FindStringSubmatch(e.Detail); m != nil {
			out.Column = m[1]
		}
	}
	switch e.Code {
	case "23505":
		out.Kind = KindConflict
	case "23503":
		out.Kind = KindForeignKey
	case "42P01", "42883", "3F000":
		out.Kind = KindDependencyMissing
	case "23502", "22P02", "23514":
		out.Kind = KindInvalid
	default:
		out.Kind = KindUnknown
	}
	return out
}

func classifyMySQL(e *mysql.MySQLError) *Error {
	out := &Error{Code: fmt.Sprint(e.Number), Message: e.Message, Err: e}
	if m := mysqlFKRe.FindStringSubmatch(e.Message); m != nil {
		out.Constraint, out.Column = m[1], m[2]
	} else if m := mysqlKeyRe.FindStringSubmatch(e.Message); m != nil {
		out.Constraint = m[1]
	}
	switch e.Number {
	case 1062:
		out.Kind = KindConflict
	case 1451, 1452:
		out.Kind = KindForeignKey
	case 1146, 1305:
		out.Kind = KindDependencyMissing
	case 1048, 1364:
		out.Kind = KindInvalid
	default:
		out.Kind = KindUnknown
	}
	return out
}

func classifySQLite(e sqlite3.Error) *Error {
	msg := e.Error()
	out := &Error{Code: fmt.Sprint(int(e.ExtendedCode)), Message: msg, Err: e}
	if m := sqliteColumnRe.FindStringSubmatch(msg); m != nil {
		out.Constraint = m[1] + "_" + m[2]
		out.Column = m[2]
	}
	switch {
	case e.ExtendedCode == sqlite3.ErrConstraintUnique || e.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
		out.Kind = KindConflict
	case e.ExtendedCode == sqlite3.ErrConstraintForeignKey:
		out.Kind = KindForeignKey
	case e.ExtendedCode == sqlite3.ErrConstraintNotNull || e.ExtendedCode == sqlite3.ErrConstraintCheck:
		out.Kind = KindInvalid
	case e.Code == sqlite3.ErrError && strings.HasPrefix(msg, "no such table"):
		// sqlite reports missing tables only through the generic error code
		out.Kind = KindDependencyMissing
	default:
		out.Kind = KindUnknown
	}
	return out
}
