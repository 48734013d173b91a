package repository

import (
	"context"
	"time"

	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/seonho/rest-security-jwt/internal/auth/domain"
	"github.com/seonho/rest-security-jwt/internal/common/constants"
	"github.com/seonho/rest-security-jwt/internal/common/db"
)

type RefreshTokenTx interface {
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
	Create(ctx context.Context, token domain.RefreshToken) error
}

type RefreshTokenTxManager struct {
	pool *pgxpool.Pool
}

func NewRefreshTokenTxManager(pool *pgxpool.Pool) *RefreshTokenTxManager {
	return &RefreshTokenTxManager{pool: pool}
}

func (m *RefreshTokenTxManager) WithTx(ctx context.Context, fn func(context.Context, RefreshTokenTx) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	refreshTokenTx := &pgRefreshTokenTx{tx: tx}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(ctx, refreshTokenTx)
	return err
}

type pgRefreshTokenTx struct {
	tx pgx.Tx
}

func (t *pgRefreshTokenTx) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	start := time.Now()
	res, err := t.tx.Exec(
		ctx,
		`DELETE FROM refresh_tokens WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return 0, db.HandleExecError(err, "delete refresh token by user in tx", start)
	}
	db.MeasureQueryDuration("delete refresh token by user in tx", start)
	return res.RowsAffected(), nil
}

func (t *pgRefreshTokenTx) Create(ctx context.Context, token domain.RefreshToken) error {
	start := time.Now()
	_, err := t.tx.Exec(
		ctx,
		`INSERT INTO refresh_tokens (id, token_hash, user_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		token.ID,
		token.TokenHash,
		token.UserID,
		token.ExpiresAt,
		token.CreatedAt,
	)
	if err != nil {
		// 23505 must reach ReplaceForUser unwrapped so the retry can see it
		return err
	}
	db.MeasureQueryDuration("create refresh token in tx", start)
	return nil
}
