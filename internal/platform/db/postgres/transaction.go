package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrReadOnlyTransaction は読み取り専用トランザクションの内側で書き込みトランザクションを要求した場合に返却されます。
var ErrReadOnlyTransaction = errors.New("postgres: read-write transaction requested inside read-only transaction")

type txContextKey struct{}

type txState struct {
	tx       pgx.Tx
	readOnly bool
}

type txStarter interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TransactionManager は pgx を用いたトランザクション制御を提供します。
// 作業記録の条件付き更新は READ COMMITTED で十分なため、分離レベルは固定です。
type TransactionManager struct {
	pool txStarter
}

// NewTransactionManager は TransactionManager を生成します。
func NewTransactionManager(pool txStarter) *TransactionManager {
	if pool == nil {
		return nil
	}
	return &TransactionManager{pool: pool}
}

// WithinReadOnly は読み取り専用トランザクションを開始し、fn を実行します。
func (m *TransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	return m.within(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadOnly}, fn)
}

// WithinReadWrite は読み書きトランザクションを開始し、fn を実行します。
func (m *TransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	return m.within(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}, fn)
}

func (m *TransactionManager) within(ctx context.Context, opts pgx.TxOptions, fn func(context.Context) error) error {
	if fn == nil {
		return errors.New("postgres: transaction function is required")
	}

	readOnly := opts.AccessMode == pgx.ReadOnly
	if state, ok := stateFromContext(ctx); ok {
		if state.readOnly && !readOnly {
			return ErrReadOnlyTransaction
		}
		return fn(ctx)
	}

	tx, err := m.pool.BeginTx(ctx, opts)
	if err != nil {
		return errors.Wrap(err, "postgres: begin tx")
	}

	finished := false
	defer func() {
		if !finished {
			_ = tx.Rollback(ctx)
		}
	}()

	txCtx := context.WithValue(ctx, txContextKey{}, txState{tx: tx, readOnly: readOnly})

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%w; postgres: rollback: %w", err, rbErr)
		}
		finished = true
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "postgres: commit")
	}

	finished = true
	return nil
}

func stateFromContext(ctx context.Context) (txState, bool) {
	if ctx == nil {
		return txState{}, false
	}
	state, ok := ctx.Value(txContextKey{}).(txState)
	return state, ok
}

func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	state, ok := stateFromContext(ctx)
	if !ok {
		return nil, false
	}
	return state.tx, true
}

// QueryerFromContext はコンテキスト内にトランザクションが存在すればそれを返し、存在しなければ fallback を返します。
func QueryerFromContext(ctx context.Context, fallback Queryer) Queryer {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return fallback
}

// Queryer は pgx.Tx および pgxpool.Pool と互換性のあるクエリ実行インターフェースです。
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
