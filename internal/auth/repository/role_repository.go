package repository

import (
	"context"
	"time"

	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/seonho/rest-security-jwt/internal/auth/domain"
	"github.com/seonho/rest-security-jwt/internal/common/db"
)

type RoleRepository interface {
	FindByName(ctx context.Context, name domain.RoleName) (domain.Role, error)
}

type PgRoleRepository struct {
	pool *pgxpool.Pool
}

func NewPgRoleRepository(pool *pgxpool.Pool) *PgRoleRepository {
	return &PgRoleRepository{pool: pool}
}

func (r *PgRoleRepository) FindByName(ctx context.Context, name domain.RoleName) (domain.Role, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, name FROM roles WHERE name = $1`,
		string(name),
	)

	var role domain.Role
	err := row.Scan(&role.ID, &role.Name)
	if err := db.HandleQueryError(err, ErrRoleNotFound, "find role by name", start); err != nil {
		return domain.Role{}, err
	}
	return role, nil
}

var ErrRoleNotFound = pgx.ErrNoRows
