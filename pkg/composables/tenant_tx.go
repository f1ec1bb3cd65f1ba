package composables

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/timekeeper/pkg/constants"
)

// InTenantTx runs fn inside a transaction with the tenant RLS session
// variable applied. An existing transaction on the context is reused;
// otherwise a new one is started via InTx.
func InTenantTx(ctx context.Context, fn func(context.Context) error) error {
	if existing, ok := ctx.Value(constants.TxKey).(pgx.Tx); ok && existing != nil {
		if err := ApplyTenantRLS(ctx, existing); err != nil {
			return err
		}
		return fn(ctx)
	}
	return InTx(ctx, fn)
}

func InTenantTxResult[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := InTenantTx(ctx, func(txCtx context.Context) error {
		var innerErr error
		out, innerErr = fn(txCtx)
		return innerErr
	})
	return out, err
}
