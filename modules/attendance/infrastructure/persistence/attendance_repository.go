package persistence

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/timekeeper/modules/attendance/domain/aggregates/attendancerecord"
	"github.com/iota-uz/timekeeper/pkg/composables"
	"github.com/iota-uz/timekeeper/pkg/repo"
)

var (
	ErrAttendanceRecordNotFound = errors.New("attendance record not found")
	// ErrVersionConflict reports a concurrent update: the row exists but
	// its version no longer matches the one the caller loaded.
	ErrVersionConflict = errors.New("attendance record version conflict")
)

const attendanceColumns = `
	id, tenant_id, organization_id, owner_id, work_date, check_in, check_out,
	status, approver_id, approved_at, notes, version, created_at, updated_at, deleted_at`

type PgAttendanceRepository struct{}

func NewAttendanceRepository() attendancerecord.Repository {
	return &PgAttendanceRepository{}
}

func (r *PgAttendanceRepository) GetByID(ctx context.Context, id uuid.UUID) (attendancerecord.AttendanceRecord, error) {
	return r.getByID(ctx, id, false)
}

func (r *PgAttendanceRepository) GetByIDIncludingDeleted(ctx context.Context, id uuid.UUID) (attendancerecord.AttendanceRecord, error) {
	return r.getByID(ctx, id, true)
}

func (r *PgAttendanceRepository) getByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (attendancerecord.AttendanceRecord, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return attendancerecord.AttendanceRecord{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return attendancerecord.AttendanceRecord{}, err
	}
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE id = $1 AND tenant_id = $2`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	record, err := scanAttendanceRecord(tx.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendancerecord.AttendanceRecord{}, ErrAttendanceRecordNotFound
		}
		return attendancerecord.AttendanceRecord{}, errors.Wrap(err, "failed to get attendance record")
	}
	return record, nil
}

func (r *PgAttendanceRepository) GetPaginated(ctx context.Context, params *attendancerecord.FindParams) ([]attendancerecord.AttendanceRecord, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	where, args := buildAttendanceFilters(tenantID, params)
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE ` + repo.JoinWhere(where...) +
		` ORDER BY work_date DESC, id ` + repo.FormatLimitOffset(params.Limit, params.Offset)
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query attendance records")
	}
	defer rows.Close()

	records := make([]attendancerecord.AttendanceRecord, 0)
	for rows.Next() {
		record, err := scanAttendanceRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan attendance record")
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *PgAttendanceRepository) Count(ctx context.Context, params *attendancerecord.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildAttendanceFilters(tenantID, params)
	var count int64
	if err := tx.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM attendance_records WHERE `+repo.JoinWhere(where...),
		args...,
	).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count attendance records")
	}
	return count, nil
}

func (r *PgAttendanceRepository) Create(ctx context.Context, record attendancerecord.AttendanceRecord) (attendancerecord.AttendanceRecord, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return attendancerecord.AttendanceRecord{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return attendancerecord.AttendanceRecord{}, err
	}
	row := tx.QueryRow(
		ctx,
		`INSERT INTO attendance_records (
			tenant_id, organization_id, owner_id, work_date, check_in, check_out,
			status, notes, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)
		RETURNING `+attendanceColumns,
		tenantID,
		record.OrganizationID(),
		record.OwnerID(),
		record.WorkDate(),
		record.CheckIn(),
		record.CheckOut(),
		record.Status(),
		record.Notes(),
	)
	created, err := scanAttendanceRecord(row)
	if err != nil {
		return attendancerecord.AttendanceRecord{}, errors.Wrap(err, "failed to create attendance record")
	}
	return created, nil
}

func (r *PgAttendanceRepository) Update(ctx context.Context, record attendancerecord.AttendanceRecord) (attendancerecord.AttendanceRecord, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return attendancerecord.AttendanceRecord{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return attendancerecord.AttendanceRecord{}, err
	}
	row := tx.QueryRow(
		ctx,
		`UPDATE attendance_records SET
			check_in = $1,
			check_out = $2,
			status = $3,
			approver_id = $4,
			approved_at = $5,
			notes = $6,
			deleted_at = $7,
			updated_at = now(),
			version = version + 1
		WHERE id = $8 AND tenant_id = $9 AND version = $10
		RETURNING `+attendanceColumns,
		record.CheckIn(),
		record.CheckOut(),
		record.Status(),
		nullableUUID(record.ApproverID()),
		record.ApprovedAt(),
		record.Notes(),
		record.DeletedAt(),
		record.ID(),
		tenantID,
		record.Version(),
	)
	updated, err := scanAttendanceRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendancerecord.AttendanceRecord{}, r.classifyUpdateMiss(ctx, tx, record.ID(), tenantID)
		}
		return attendancerecord.AttendanceRecord{}, errors.Wrap(err, "failed to update attendance record")
	}
	return updated, nil
}

// classifyUpdateMiss distinguishes a vanished row from a stale version.
func (r *PgAttendanceRepository) classifyUpdateMiss(ctx context.Context, tx repo.Tx, id, tenantID uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM attendance_records WHERE id = $1 AND tenant_id = $2)`,
		id, tenantID,
	).Scan(&exists); err != nil {
		return errors.Wrap(err, "failed to classify attendance update miss")
	}
	if exists {
		return ErrVersionConflict
	}
	return ErrAttendanceRecordNotFound
}

func buildAttendanceFilters(tenantID uuid.UUID, params *attendancerecord.FindParams) ([]string, []interface{}) {
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
	if params.Status != "" {
		args = append(args, params.Status)
		where = append(where, "upper(status) = upper($"+strconv.Itoa(len(args))+")")
	}
	if !params.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}
	return where, args
}

func scanAttendanceRecord(row pgx.Row) (attendancerecord.AttendanceRecord, error) {
	var (
		id             uuid.UUID
		tenantID       uuid.UUID
		organizationID uuid.UUID
		ownerID        uuid.UUID
		workDate       time.Time
		checkIn        *time.Time
		checkOut       *time.Time
		recordStatus   string
		approverID     *uuid.UUID
		approvedAt     *time.Time
		notes          string
		version        int64
		createdAt      time.Time
		updatedAt      time.Time
		deletedAt      *time.Time
	)
	if err := row.Scan(
		&id, &tenantID, &organizationID, &ownerID, &workDate, &checkIn, &checkOut,
		&recordStatus, &approverID, &approvedAt, &notes, &version, &createdAt, &updatedAt, &deletedAt,
	); err != nil {
		return attendancerecord.AttendanceRecord{}, err
	}
	approver := uuid.Nil
	if approverID != nil {
		approver = *approverID
	}
	return attendancerecord.Hydrate(
		id, tenantID, organizationID, ownerID, workDate, checkIn, checkOut,
		recordStatus, approver, approvedAt, notes, version, createdAt, updatedAt, deletedAt,
	), nil
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
