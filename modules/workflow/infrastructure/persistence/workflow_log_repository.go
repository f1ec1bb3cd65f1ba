package persistence

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/iota-uz/timekeeper/modules/workflow/domain/workflowlog"
	"github.com/iota-uz/timekeeper/pkg/composables"
	"github.com/iota-uz/timekeeper/pkg/repo"
)

type PgWorkflowLogRepository struct{}

func NewWorkflowLogRepository() workflowlog.Repository {
	return &PgWorkflowLogRepository{}
}

func (r *PgWorkflowLogRepository) List(ctx context.Context, params *workflowlog.FindParams) ([]*workflowlog.Entry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	where, args := buildWorkflowLogFilters(params, tenantID)
	query := `
		SELECT id, tenant_id, related_entity_type, related_entity_id, old_status, new_status, user_id, comment, created_at
		FROM workflow_logs
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

	var results []*workflowlog.Entry
	for rows.Next() {
		var entry workflowlog.Entry
		if err := rows.Scan(
			&entry.ID,
			&entry.TenantID,
			&entry.RelatedEntityType,
			&entry.RelatedEntityID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.UserID,
			&entry.Comment,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *PgWorkflowLogRepository) Count(ctx context.Context, params *workflowlog.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildWorkflowLogFilters(params, tenantID)

	var count int64
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM workflow_logs
		WHERE `+repo.JoinWhere(where...),
		args...,
	).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PgWorkflowLogRepository) Create(ctx context.Context, entry *workflowlog.Entry) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	return tx.QueryRow(ctx, `
		INSERT INTO workflow_logs (tenant_id, related_entity_type, related_entity_id, old_status, new_status, user_id, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`,
		tenantID,
		entry.RelatedEntityType,
		entry.RelatedEntityID,
		entry.OldStatus,
		entry.NewStatus,
		entry.UserID,
		entry.Comment,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func buildWorkflowLogFilters(params *workflowlog.FindParams, tenantID uuid.UUID) ([]string, []any) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	if params == nil {
		return where, args
	}
	if params.RelatedEntityType != "" {
		args = append(args, params.RelatedEntityType)
		where = append(where, "related_entity_type = $"+strconv.Itoa(len(args)))
	}
	if params.RelatedEntityID != uuid.Nil {
		args = append(args, params.RelatedEntityID)
		where = append(where, "related_entity_id = $"+strconv.Itoa(len(args)))
	}
	return where, args
}
