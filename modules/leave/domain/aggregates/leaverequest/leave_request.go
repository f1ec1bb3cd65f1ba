package leaverequest

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/timekeeper/modules/workflow/domain/status"
)

// EntityType keys the workflow definition governing leave requests.
const EntityType = "LeaveRequest"

// PermissionSubmit lets a non-owner without the ADMIN role submit a leave
// request on the owner's behalf.
const PermissionSubmit = "leave_request.submit"

// Leave types accepted on creation.
const (
	TypeVacation = "VACATION"
	TypeSick     = "SICK"
	TypeUnpaid   = "UNPAID"
)

func IsValidType(leaveType string) bool {
	switch strings.ToUpper(leaveType) {
	case TypeVacation, TypeSick, TypeUnpaid:
		return true
	default:
		return false
	}
}

// LeaveRequest is the second workflow-governed subject entity. Unlike
// attendance records it can be submitted on the owner's behalf.
type LeaveRequest struct {
	id             uuid.UUID
	tenantID       uuid.UUID
	organizationID uuid.UUID
	ownerID        uuid.UUID
	leaveType      string
	startDate      time.Time
	endDate        time.Time
	reason         string
	status         string
	approverID     uuid.UUID
	approvedAt     *time.Time
	notes          string
	version        int64
	createdAt      time.Time
	updatedAt      time.Time
	deletedAt      *time.Time
}

func New(tenantID, organizationID, ownerID uuid.UUID, leaveType string, startDate, endDate time.Time, reason string) LeaveRequest {
	return LeaveRequest{
		tenantID:       tenantID,
		organizationID: organizationID,
		ownerID:        ownerID,
		leaveType:      strings.ToUpper(strings.TrimSpace(leaveType)),
		startDate:      startDate,
		endDate:        endDate,
		reason:         strings.TrimSpace(reason),
		status:         status.Draft,
	}
}

func Hydrate(
	id uuid.UUID,
	tenantID uuid.UUID,
	organizationID uuid.UUID,
	ownerID uuid.UUID,
	leaveType string,
	startDate time.Time,
	endDate time.Time,
	reason string,
	requestStatus string,
	approverID uuid.UUID,
	approvedAt *time.Time,
	notes string,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
	deletedAt *time.Time,
) LeaveRequest {
	return LeaveRequest{
		id:             id,
		tenantID:       tenantID,
		organizationID: organizationID,
		ownerID:        ownerID,
		leaveType:      strings.ToUpper(strings.TrimSpace(leaveType)),
		startDate:      startDate,
		endDate:        endDate,
		reason:         reason,
		status:         strings.TrimSpace(requestStatus),
		approverID:     approverID,
		approvedAt:     approvedAt,
		notes:          notes,
		version:        version,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
		deletedAt:      deletedAt,
	}
}

func (r LeaveRequest) ID() uuid.UUID             { return r.id }
func (r LeaveRequest) TenantID() uuid.UUID       { return r.tenantID }
func (r LeaveRequest) OrganizationID() uuid.UUID { return r.organizationID }
func (r LeaveRequest) OwnerID() uuid.UUID        { return r.ownerID }
func (r LeaveRequest) LeaveType() string         { return r.leaveType }
func (r LeaveRequest) StartDate() time.Time      { return r.startDate }
func (r LeaveRequest) EndDate() time.Time        { return r.endDate }
func (r LeaveRequest) Reason() string            { return r.reason }
func (r LeaveRequest) Status() string            { return r.status }
func (r LeaveRequest) ApproverID() uuid.UUID     { return r.approverID }
func (r LeaveRequest) ApprovedAt() *time.Time    { return r.approvedAt }
func (r LeaveRequest) Notes() string             { return r.notes }
func (r LeaveRequest) Version() int64            { return r.version }
func (r LeaveRequest) CreatedAt() time.Time      { return r.createdAt }
func (r LeaveRequest) UpdatedAt() time.Time      { return r.updatedAt }
func (r LeaveRequest) DeletedAt() *time.Time     { return r.deletedAt }
func (r LeaveRequest) IsZero() bool              { return r.id == uuid.Nil }
func (r LeaveRequest) IsDeleted() bool           { return r.deletedAt != nil }

func (r LeaveRequest) Submit(now time.Time) LeaveRequest {
	r.status = status.Submitted
	r.updatedAt = now
	return r
}

func (r LeaveRequest) Approve(approverID uuid.UUID, now time.Time) LeaveRequest {
	r.status = status.Approved
	r.approverID = approverID
	r.approvedAt = &now
	r.updatedAt = now
	return r
}

func (r LeaveRequest) Reject(approverID uuid.UUID, reason string, now time.Time) LeaveRequest {
	r.status = status.Rejected
	r.approverID = approverID
	r.notes = reason
	r.updatedAt = now
	return r
}

func (r LeaveRequest) SoftDelete(now time.Time) LeaveRequest {
	r.status = status.Deleted
	r.deletedAt = &now
	r.updatedAt = now
	return r
}

// Restore clears the soft delete and resets the request to draft, so it
// re-enters the declared graph at its entry status.
func (r LeaveRequest) Restore(now time.Time) LeaveRequest {
	r.status = status.Draft
	r.deletedAt = nil
	r.updatedAt = now
	return r
}
