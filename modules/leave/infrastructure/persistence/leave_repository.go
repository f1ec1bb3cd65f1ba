package persistence

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/timekeeper/modules/leave/domain/aggregates/leaverequest"
	"github.com/iota-uz/timekeeper/pkg/composables"
	"github.com/iota-uz/timekeeper/pkg/repo"
)

var (
	ErrLeaveRequestNotFound = errors.New("leave request not found")
	ErrVersionConflict      = errors.New("leave request version conflict")
)

const leaveColumns = `
	id, tenant_id, organization_id, owner_id, leave_type, start_date, end_date,
	reason, status, approver_id, approved_at, notes, version, created_at, updated_at, deleted_at`

type PgLeaveRequestRepository struct{}

func NewLeaveRequestRepository() leaverequest.Repository {
	return &PgLeaveRequestRepository{}
}

func (r *PgLeaveRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (leaverequest.LeaveRequest, error) {
	return r.getByID(ctx, id, false)
}

func (r *PgLeaveRequestRepository) GetByIDIncludingDeleted(ctx context.Context, id uuid.UUID) (leaverequest.LeaveRequest, error) {
	return r.getByID(ctx, id, true)
}

func (r *PgLeaveRequestRepository) getByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (leaverequest.LeaveRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return leaverequest.LeaveRequest{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return leaverequest.LeaveRequest{}, err
	}
	query := `SELECT ` + leaveColumns + ` FROM leave_requests WHERE id = $1 AND tenant_id = $2`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	request, err := scanLeaveRequest(tx.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leaverequest.LeaveRequest{}, ErrLeaveRequestNotFound
		}
		return leaverequest.LeaveRequest{}, errors.Wrap(err, "failed to get leave request")
	}
	return request, nil
}

func (r *PgLeaveRequestRepository) GetPaginated(ctx context.Context, params *leaverequest.FindParams) ([]leaverequest.LeaveRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	where, args := buildLeaveFilters(tenantID, params)
	query := `SELECT ` + leaveColumns + ` FROM leave_requests WHERE ` + repo.JoinWhere(where...) +
		` ORDER BY start_date DESC, id ` + repo.FormatLimitOffset(params.Limit, params.Offset)
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query leave requests")
	}
	defer rows.Close()

	requests := make([]leaverequest.LeaveRequest, 0)
	for rows.Next() {
		request, err := scanLeaveRequest(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan leave request")
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

func (r *PgLeaveRequestRepository) Count(ctx context.Context, params *leaverequest.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildLeaveFilters(tenantID, params)
	var count int64
	if err := tx.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM leave_requests WHERE `+repo.JoinWhere(where...),
		args...,
	).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count leave requests")
	}
	return count, nil
}

func (r *PgLeaveRequestRepository) Create(ctx context.Context, request leaverequest.LeaveRequest) (leaverequest.LeaveRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return leaverequest.LeaveRequest{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return leaverequest.LeaveRequest{}, err
	}
	row := tx.QueryRow(
		ctx,
		`INSERT INTO leave_requests (
			tenant_id, organization_id, owner_id, leave_type, start_date, end_date,
			reason, status, notes, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
		RETURNING `+leaveColumns,
		tenantID,
		request.OrganizationID(),
		request.OwnerID(),
		request.LeaveType(),
		request.StartDate(),
		request.EndDate(),
		request.Reason(),
		request.Status(),
		request.Notes(),
	)
	created, err := scanLeaveRequest(row)
	if err != nil {
		return leaverequest.LeaveRequest{}, errors.Wrap(err, "failed to create leave request")
	}
	return created, nil
}

func (r *PgLeaveRequestRepository) Update(ctx context.Context, request leaverequest.LeaveRequest) (leaverequest.LeaveRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return leaverequest.LeaveRequest{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return leaverequest.LeaveRequest{}, err
	}
	row := tx.QueryRow(
		ctx,
		`UPDATE leave_requests SET
			leave_type = $1,
			start_date = $2,
			end_date = $3,
			reason = $4,
			status = $5,
			approver_id = $6,
			approved_at = $7,
			notes = $8,
			deleted_at = $9,
			updated_at = now(),
			version = version + 1
		WHERE id = $10 AND tenant_id = $11 AND version = $12
		RETURNING `+leaveColumns,
		request.LeaveType(),
		request.StartDate(),
		request.EndDate(),
		request.Reason(),
		request.Status(),
		nullableUUID(request.ApproverID()),
		request.ApprovedAt(),
		request.Notes(),
		request.DeletedAt(),
		request.ID(),
		tenantID,
		request.Version(),
	)
	updated, err := scanLeaveRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leaverequest.LeaveRequest{}, r.classifyUpdateMiss(ctx, tx, request.ID(), tenantID)
		}
		return leaverequest.LeaveRequest{}, errors.Wrap(err, "failed to update leave request")
	}
	return updated, nil
}

func (r *PgLeaveRequestRepository) classifyUpdateMiss(ctx context.Context, tx repo.Tx, id, tenantID uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM leave_requests WHERE id = $1 AND tenant_id = $2)`,
		id, tenantID,
	).Scan(&exists); err != nil {
		return errors.Wrap(err, "failed to classify leave update miss")
	}
	if exists {
		return ErrVersionConflict
	}
	return ErrLeaveRequestNotFound
}

func buildLeaveFilters(tenantID uuid.UUID, params *leaverequest.FindParams) ([]string, []interface{}) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}

	if params.OwnerID != uuid.Nil {
		args = append(args, params.OwnerID)
		where = append(where, "owner_id = $"+strconv.Itoa(len(args)))
	}
	if params.OrganizationID != uuid.Nil {
		args = append(args, params.OrganizationID)
		where = append(where, "organization_id = $"+strconv.Itoa(len(args)))
	}
	if params.LeaveType != "" {
		args = append(args, params.LeaveType)
		where = append(where, "upper(leave_type) = upper($"+strconv.Itoa(len(args))+")")
	}
	if params.Status != "" {
		args = append(args, params.Status)
		where = append(where, "upper(status) = upper($"+strconv.Itoa(len(args))+")")
	}
	if !params.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}
	return where, args
}

func scanLeaveRequest(row pgx.Row) (leaverequest.LeaveRequest, error) {
	var (
		id             uuid.UUID
		tenantID       uuid.UUID
		organizationID uuid.UUID
		ownerID        uuid.UUID
		leaveType      string
		startDate      time.Time
		endDate        time.Time
		reason         string
		requestStatus  string
		approverID     *uuid.UUID
		approvedAt     *time.Time
		notes          string
		version        int64
		createdAt      time.Time
		updatedAt      time.Time
		deletedAt      *time.Time
	)
	if err := row.Scan(
		&id, &tenantID, &organizationID, &ownerID, &leaveType, &startDate, &endDate,
		&reason, &requestStatus, &approverID, &approvedAt, &notes, &version, &createdAt, &updatedAt, &deletedAt,
	); err != nil {
		return leaverequest.LeaveRequest{}, err
	}
	approver := uuid.Nil
	if approverID != nil {
		approver = *approverID
	}
	return leaverequest.Hydrate(
		id, tenantID, organizationID, ownerID, leaveType, startDate, endDate,
		reason, requestStatus, approver, approvedAt, notes, version, createdAt, updatedAt, deletedAt,
	), nil
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
