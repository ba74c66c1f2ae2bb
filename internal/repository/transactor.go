package repository

import (
	"context"
	"errors"
	"strings"

	domainRepo "go-clinic-queue/internal/domain/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Constraint names created by the schema migrations
const (
	constraintDateNumber  = "uq_queue_entries_date_number"
	constraintAttending   = "uq_queue_entries_attending"
	constraintOpenService = "uq_queue_entries_open_service"
)

type txKey struct{}

type gormTransactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) domainRepo.Transactor {
	return &gormTransactor{db: db}
}

func (t *gormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction carried by ctx, or db bound to ctx
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// isDuplicateKeyError checks if the error is a PostgreSQL unique constraint violation
// containing the specified constraint name
func isDuplicateKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL error code 23505 = unique_violation
		if pgErr.Code == "23505" && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName)) {
			return true
		}
	}
	return false
}

func classifyQueueError(err error) error {
	switch {
	case err == nil:
		return nil
	case isDuplicateKeyError(err, constraintDateNumber):
		return domainRepo.ErrDuplicateNumber
	case isDuplicateKeyError(err, constraintAttending):
		return domainRepo.ErrAttendingTaken
	case isDuplicateKeyError(err, constraintOpenService):
		return domainRepo.ErrServiceQueued
	}
	return err
}
