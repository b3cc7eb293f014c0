// Package dberr maps driver errors onto the service error taxonomy.
package dberr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
)

// Postgres SQLSTATE codes we classify.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
	codeInvalidText         = "22P02"
	codeSerialization       = "40001"
	codeDeadlock            = "40P01"
)

// Classify wraps err with a kind when the driver reports something the
// caller can act on. Anything else is returned wrapped with op only.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != apperr.KindInternal {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.New(apperr.KindNotFound, op, err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict(op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return apperr.Conflict(op, fmt.Errorf("%s: %w", pgErr.ConstraintName, err))
		case codeForeignKeyViolation, codeCheckViolation, codeNotNullViolation, codeInvalidText:
			return apperr.New(apperr.KindValidation, op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	// sqlite reports constraint failures as plain text.
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return apperr.Conflict(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Transient reports whether the statement may succeed if simply retried.
func Transient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerialization || pgErr.Code == codeDeadlock
	}
	return false
}
