package dbctx

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// TxRunner is the shared transaction boundary for multi-repo writes.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return errors.New("dbctx: transaction runner has nil db")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(Context{Ctx: ctx, Tx: tx})
	})
}
