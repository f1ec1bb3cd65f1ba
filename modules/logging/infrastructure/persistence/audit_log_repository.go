package persistence

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/iota-uz/timekeeper/modules/logging/domain/entities/auditlog"
	"github.com/iota-uz/timekeeper/pkg/composables"
	"github.com/iota-uz/timekeeper/pkg/repo"
)

type PgAuditLogRepository struct{}

func NewAuditLogRepository() auditlog.Repository {
	return &PgAuditLogRepository{}
}

func (r *PgAuditLogRepository) List(ctx context.Context, params *auditlog.FindParams) ([]*auditlog.AuditLog, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	where, args := buildAuditLogFilters(params, tenantID)
	query := `
		SELECT id, tenant_id, event_type, actor_id, details, ip, user_agent, created_at
		FROM audit_logs
		WHERE ` + repo.JoinWhere(where...) + `
		ORDER BY created_at DESC
	`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*auditlog.AuditLog
	for rows.Next() {
		var row auditlog.AuditLog
		if err := rows.Scan(
			&row.ID,
			&row.TenantID,
			&row.EventType,
			&row.ActorID,
			&row.Details,
			&row.IP,
			&row.UserAgent,
			&row.CreatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *PgAuditLogRepository) Count(ctx context.Context, params *auditlog.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildAuditLogFilters(params, tenantID)

	var count int64
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM audit_logs
		WHERE `+repo.JoinWhere(where...),
		args...,
	).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PgAuditLogRepository) Create(ctx context.Context, log *auditlog.AuditLog) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	return tx.QueryRow(ctx, `
		INSERT INTO audit_logs (tenant_id, event_type, actor_id, details, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`,
		tenantID,
		log.EventType,
		log.ActorID,
		log.Details,
		log.IP,
		log.UserAgent,
	).Scan(&log.ID, &log.CreatedAt)
}

func buildAuditLogFilters(params *auditlog.FindParams, tenantID uuid.UUID) ([]string, []any) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	if params == nil {
		return where, args
	}
	if params.EventType != "" {
		args = append(args, params.EventType)
		where = append(where, "event_type = $"+strconv.Itoa(len(args)))
	}
	if params.ActorID != uuid.Nil {
		args = append(args, params.ActorID)
		where = append(where, "actor_id = $"+strconv.Itoa(len(args)))
	}
	if params.From != nil {
		args = append(args, *params.From)
		where = append(where, "created_at >= $"+strconv.Itoa(len(args)))
	}
	if params.To != nil {
		args = append(args, *params.To)
		where = append(where, "created_at <= $"+strconv.Itoa(len(args)))
	}
	return where, args
}
