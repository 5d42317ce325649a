package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with the transaction handle of the
// enclosing scope. Tx is nil outside a scope and inside a pass-through scope.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// Background is a Context with no scope attached.
func Background(ctx context.Context) Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return Context{Ctx: ctx}
}

// Resolve returns the scoped transaction when present and fallback otherwise,
// bound to the request context.
func (c Context) Resolve(fallback *gorm.DB) *gorm.DB {
	t := c.Tx
	if t == nil {
		t = fallback
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return t.WithContext(ctx)
}
