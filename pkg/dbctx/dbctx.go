// Package dbctx carries a request context together with an optional,
// already-open transaction. Repositories use Tx when it is set and fall back
// to their own pool otherwise; they never open or commit transactions.
package dbctx

import (
	"context"

	"gorm.io/gorm"
)

type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func New(ctx context.Context) Context {
	return Context{Ctx: ctx}
}

func WithTx(ctx context.Context, tx *gorm.DB) Context {
	return Context{Ctx: ctx, Tx: tx}
}

// DB picks the handle a repository should run against.
func (c Context) DB(fallback *gorm.DB) *gorm.DB {
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if c.Tx != nil {
		return c.Tx.WithContext(ctx)
	}
	return fallback.WithContext(ctx)
}

func (c Context) Context() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}
