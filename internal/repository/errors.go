// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors. For example, ErrForbidden
// indicates that the caller does not own the row, while ErrConflict
// signals that a unique column is already taken.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist (or is
// soft-deleted, or belongs to another owner where ownership is part of the
// lookup). Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert or update cannot be
// performed because of conflicting state, such as a second professional
// profile for the same account. Handlers should translate this
// into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// Unique-column violations on users and professionals.
var (
	ErrEmailExists    = errors.New("email already exists")
	ErrCPFExists      = errors.New("cpf already exists")
	ErrRegistryExists = errors.New("professional registry already exists")
)

// mysqlDuplicate is the server error number for a unique key violation.
const mysqlDuplicate = 1062

// duplicateKey reports whether err is a unique key violation and returns
// the lower-cased key part of the server message ("for key 'users.uq_users_cpf'"),
// leaving out the duplicated value itself.
func duplicateKey(err error) (string, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicate {
		msg := strings.ToLower(me.Message)
		if i := strings.LastIndex(msg, "for key "); i >= 0 {
			msg = msg[i:]
		}
		return msg, true
	}
	return "", false
}

// notFound maps sql.ErrNoRows to ErrNotFound and leaves other errors alone.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// affected returns ErrNotFound when res touched no rows.
func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
