package attendancerecord

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/timekeeper/modules/workflow/domain/status"
)

// EntityType keys the workflow definition governing attendance records.
const EntityType = "AttendanceRecord"

// AttendanceRecord is a workflow-governed subject entity. Its status is
// mutated only by the transition handlers in services; deletedAt marks
// soft deletion, which runs outside the declared step graph.
type AttendanceRecord struct {
	id             uuid.UUID
	tenantID       uuid.UUID
	organizationID uuid.UUID
	ownerID        uuid.UUID
	workDate       time.Time
	checkIn        *time.Time
	checkOut       *time.Time
	status         string
	approverID     uuid.UUID
	approvedAt     *time.Time
	notes          string
	version        int64
	createdAt      time.Time
	updatedAt      time.Time
	deletedAt      *time.Time
}

func New(tenantID, organizationID, ownerID uuid.UUID, workDate time.Time) AttendanceRecord {
	return AttendanceRecord{
		tenantID:       tenantID,
		organizationID: organizationID,
		ownerID:        ownerID,
		workDate:       workDate,
		status:         status.Draft,
	}
}

func Hydrate(
	id uuid.UUID,
	tenantID uuid.UUID,
	organizationID uuid.UUID,
	ownerID uuid.UUID,
	workDate time.Time,
	checkIn *time.Time,
	checkOut *time.Time,
	recordStatus string,
	approverID uuid.UUID,
	approvedAt *time.Time,
	notes string,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
	deletedAt *time.Time,
) AttendanceRecord {
	return AttendanceRecord{
		id:             id,
		tenantID:       tenantID,
		organizationID: organizationID,
		ownerID:        ownerID,
		workDate:       workDate,
		checkIn:        checkIn,
		checkOut:       checkOut,
		status:         strings.TrimSpace(recordStatus),
		approverID:     approverID,
		approvedAt:     approvedAt,
		notes:          notes,
		version:        version,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
		deletedAt:      deletedAt,
	}
}

func (r AttendanceRecord) ID() uuid.UUID             { return r.id }
func (r AttendanceRecord) TenantID() uuid.UUID       { return r.tenantID }
func (r AttendanceRecord) OrganizationID() uuid.UUID { return r.organizationID }
func (r AttendanceRecord) OwnerID() uuid.UUID        { return r.ownerID }
func (r AttendanceRecord) WorkDate() time.Time       { return r.workDate }
func (r AttendanceRecord) CheckIn() *time.Time       { return r.checkIn }
func (r AttendanceRecord) CheckOut() *time.Time      { return r.checkOut }
func (r AttendanceRecord) Status() string            { return r.status }
func (r AttendanceRecord) ApproverID() uuid.UUID     { return r.approverID }
func (r AttendanceRecord) ApprovedAt() *time.Time    { return r.approvedAt }
func (r AttendanceRecord) Notes() string             { return r.notes }
func (r AttendanceRecord) Version() int64            { return r.version }
func (r AttendanceRecord) CreatedAt() time.Time      { return r.createdAt }
func (r AttendanceRecord) UpdatedAt() time.Time      { return r.updatedAt }
func (r AttendanceRecord) DeletedAt() *time.Time     { return r.deletedAt }
func (r AttendanceRecord) IsZero() bool              { return r.id == uuid.Nil }
func (r AttendanceRecord) IsDeleted() bool           { return r.deletedAt != nil }

func (r AttendanceRecord) WithCheckIn(t *time.Time) AttendanceRecord {
	r.checkIn = t
	return r
}

func (r AttendanceRecord) WithCheckOut(t *time.Time) AttendanceRecord {
	r.checkOut = t
	return r
}

func (r AttendanceRecord) WithNotes(notes string) AttendanceRecord {
	r.notes = notes
	return r
}

// Submit moves the record into review.
func (r AttendanceRecord) Submit(now time.Time) AttendanceRecord {
	r.status = status.Submitted
	r.updatedAt = now
	return r
}

// Approve records the approver and approval time.
func (r AttendanceRecord) Approve(approverID uuid.UUID, now time.Time) AttendanceRecord {
	r.status = status.Approved
	r.approverID = approverID
	r.approvedAt = &now
	r.updatedAt = now
	return r
}

// Reject records the approver and the rejection reason in notes.
func (r AttendanceRecord) Reject(approverID uuid.UUID, reason string, now time.Time) AttendanceRecord {
	r.status = status.Rejected
	r.approverID = approverID
	r.notes = reason
	r.updatedAt = now
	return r
}

// SoftDelete stamps deletedAt; DELETED is not part of the declared graph.
func (r AttendanceRecord) SoftDelete(now time.Time) AttendanceRecord {
	r.status = status.Deleted
	r.deletedAt = &now
	r.updatedAt = now
	return r
}

// Restore clears deletedAt and returns the record to draft.
func (r AttendanceRecord) Restore(now time.Time) AttendanceRecord {
	r.status = status.Draft
	r.deletedAt = nil
	r.updatedAt = now
	return r
}
