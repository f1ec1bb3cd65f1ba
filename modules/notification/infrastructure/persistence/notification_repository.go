package persistence

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/timekeeper/modules/notification/domain/entities/notification"
	"github.com/iota-uz/timekeeper/pkg/composables"
	"github.com/iota-uz/timekeeper/pkg/repo"
)

type PgNotificationRepository struct{}

func NewNotificationRepository() notification.Repository {
	return &PgNotificationRepository{}
}

func (r *PgNotificationRepository) List(ctx context.Context, params *notification.FindParams) ([]*notification.Notification, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	if params != nil {
		if params.UserID != uuid.Nil {
			args = append(args, params.UserID)
			where = append(where, "user_id = $"+strconv.Itoa(len(args)))
		}
		if params.Status != "" {
			args = append(args, string(params.Status))
			where = append(where, "status = $"+strconv.Itoa(len(args)))
		}
	}

	query := `
		SELECT id, tenant_id, user_id, type, title, message, status, error, sent_at, created_at
		FROM notifications
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

	var results []*notification.Notification
	for rows.Next() {
		var row notification.Notification
		if err := rows.Scan(
			&row.ID,
			&row.TenantID,
			&row.UserID,
			&row.Type,
			&row.Title,
			&row.Message,
			&row.Status,
			&row.Error,
			&row.SentAt,
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

func (r *PgNotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	if n.Status == "" {
		n.Status = notification.StatusPending
	}
	return tx.QueryRow(ctx, `
		INSERT INTO notifications (tenant_id, user_id, type, title, message, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`,
		tenantID,
		n.UserID,
		n.Type,
		n.Title,
		n.Message,
		string(n.Status),
		n.Error,
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *PgNotificationRepository) UpdateStatus(ctx context.Context, id uint, status notification.Status, errMsg string, sentAt *time.Time) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE notifications
		SET status = $1, error = $2, sent_at = $3
		WHERE id = $4 AND tenant_id = $5
	`, string(status), errMsg, sentAt, id, tenantID)
	return err
}
