package persistence

import (
	"context"
	"errors"
	"strconv"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/timekeeper/modules/core/domain/aggregates/user"
	"github.com/iota-uz/timekeeper/pkg/composables"
	"github.com/iota-uz/timekeeper/pkg/repo"
)

var (
	ErrUserNotFound = gerrors.New("user not found")
)

const userColumns = `id, tenant_id, organization_id, email, display_name, phone, roles, permissions, ui_language, created_at, updated_at`

type PgUserRepository struct{}

func NewUserRepository() user.Repository {
	return &PgUserRepository{}
}

func (r *PgUserRepository) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return user.User{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return user.User{}, err
	}

	row := tx.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)

	entity, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, err
	}
	return entity, nil
}

func (r *PgUserRepository) GetAll(ctx context.Context, params *user.FindParams) ([]user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	where, args := buildUserFilters(params, tenantID)
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE ` + repo.JoinWhere(where...) + `
		ORDER BY created_at
	`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []user.User
	for rows.Next() {
		entity, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *PgUserRepository) Count(ctx context.Context, params *user.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildUserFilters(params, tenantID)

	var count int64
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM users
		WHERE `+repo.JoinWhere(where...),
		args...,
	).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PgUserRepository) Create(ctx context.Context, u user.User) (user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return user.User{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return user.User{}, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO users (tenant_id, organization_id, email, display_name, phone, roles, permissions, ui_language)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+userColumns,
		tenantID,
		u.OrganizationID(),
		u.Email(),
		u.DisplayName(),
		u.Phone(),
		u.Roles(),
		u.Permissions(),
		string(u.UILanguage()),
	)
	return scanUser(row)
}

func buildUserFilters(params *user.FindParams, tenantID uuid.UUID) ([]string, []any) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	if params == nil {
		return where, args
	}
	if params.OrganizationID != uuid.Nil {
		args = append(args, params.OrganizationID)
		where = append(where, "organization_id = $"+strconv.Itoa(len(args)))
	}
	if params.Role != "" {
		args = append(args, params.Role)
		where = append(where, "$"+strconv.Itoa(len(args))+" = ANY(roles)")
	}
	return where, args
}

func scanUser(row pgx.Row) (user.User, error) {
	var (
		id             uuid.UUID
		tenantID       uuid.UUID
		organizationID uuid.UUID
		email          string
		displayName    string
		phone          string
		roles          []string
		permissions    []string
		uiLanguage     string
		createdAt      time.Time
		updatedAt      time.Time
	)
	if err := row.Scan(
		&id,
		&tenantID,
		&organizationID,
		&email,
		&displayName,
		&phone,
		&roles,
		&permissions,
		&uiLanguage,
		&createdAt,
		&updatedAt,
	); err != nil {
		return user.User{}, err
	}
	return user.Hydrate(
		id,
		tenantID,
		organizationID,
		email,
		displayName,
		phone,
		roles,
		permissions,
		user.UILanguage(uiLanguage),
		createdAt,
		updatedAt,
	), nil
}
