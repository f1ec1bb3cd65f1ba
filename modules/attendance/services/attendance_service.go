package services

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/iota-uz/timekeeper/modules/attendance/domain/aggregates/attendancerecord"
	"github.com/iota-uz/timekeeper/modules/attendance/infrastructure/persistence"
	"github.com/iota-uz/timekeeper/modules/core/domain/aggregates/user"
	"github.com/iota-uz/timekeeper/modules/workflow/domain/status"
	workflowservices "github.com/iota-uz/timekeeper/modules/workflow/services"
	"github.com/iota-uz/timekeeper/pkg/composables"
	"github.com/iota-uz/timekeeper/pkg/eventbus"
	"github.com/iota-uz/timekeeper/pkg/serrors"
)

// CreateDTO carries the attributes of a new attendance record. OwnerID
// defaults to the acting user, OrganizationID to the owner's organization
// and then to the ambient tenant.
type CreateDTO struct {
	OwnerID        uuid.UUID
	OrganizationID uuid.UUID
	WorkDate       time.Time
	CheckIn        *time.Time
	CheckOut       *time.Time
	Notes          string
}

// AttendanceService owns every status mutation of attendance records.
// Each handler runs load, precondition, engine check and persist inside
// one tenant transaction, then publishes the domain event after commit.
type AttendanceService struct {
	repo      attendancerecord.Repository
	users     user.Repository
	engine    *workflowservices.WorkflowEngine
	publisher eventbus.EventBus
}

func NewAttendanceService(
	repo attendancerecord.Repository,
	users user.Repository,
	engine *workflowservices.WorkflowEngine,
	publisher eventbus.EventBus,
) *AttendanceService {
	return &AttendanceService{
		repo:      repo,
		users:     users,
		engine:    engine,
		publisher: publisher,
	}
}

func (s *AttendanceService) GetByID(ctx context.Context, id uuid.UUID) (attendancerecord.AttendanceRecord, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (attendancerecord.AttendanceRecord, error) {
		return s.repo.GetByID(txCtx, id)
	})
}

func (s *AttendanceService) GetPaginated(ctx context.Context, params *attendancerecord.FindParams) ([]attendancerecord.AttendanceRecord, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) ([]attendancerecord.AttendanceRecord, error) {
		return s.repo.GetPaginated(txCtx, params)
	})
}

func (s *AttendanceService) Count(ctx context.Context, params *attendancerecord.FindParams) (int64, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (int64, error) {
		return s.repo.Count(txCtx, params)
	})
}

// Create persists a new record in DRAFT. No engine check applies.
func (s *AttendanceService) Create(ctx context.Context, dto CreateDTO) (attendancerecord.AttendanceRecord, error) {
	actor, err := composables.UseUser(ctx)
	if err != nil {
		return attendancerecord.AttendanceRecord{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return attendancerecord.AttendanceRecord{}, err
	}
	if dto.WorkDate.IsZero() {
		return attendancerecord.AttendanceRecord{}, serrors.NewFieldRequiredError("workDate", "Errors.FieldRequired")
	}

	ownerID := dto.OwnerID
	if ownerID == uuid.Nil {
		ownerID = actor.ID()
	}

	created, err := composables.InTenantTxResult(ctx, func(txCtx context.Context) (attendancerecord.AttendanceRecord, error) {
		owner, err := s.users.GetByID(txCtx, ownerID)
		if err != nil {
			return attendancerecord.AttendanceRecord{}, err
		}
		orgID := dto.OrganizationID
		if orgID == uuid.Nil {
			orgID = owner.OrganizationID()
		}
		if orgID == uuid.Nil {
			orgID = tenantID
		}
		entity := attendancerecord.New(tenantID, orgID, owner.ID(), dto.WorkDate).
			WithCheckIn(dto.CheckIn).
			WithCheckOut(dto.CheckOut).
			WithNotes(dto.Notes)
		return s.repo.Create(txCtx, entity)
	})
	if err != nil {
		return attendancerecord.AttendanceRecord{}, err
	}
	s.publisher.Publish(attendancerecord.NewCreatedEvent(created))
	return created, nil
}

// Submit is owner-only: no role overrides the ownership check.
func (s *AttendanceService) Submit(ctx context.Context, id uuid.UUID) (attendancerecord.AttendanceRecord, error) {
	actor, err := composables.UseUser(ctx)
	if err != nil {
		return attendancerecord.AttendanceRecord{}, err
	}
	return s.transition(ctx, id, func(record attendancerecord.AttendanceRecord, now time.Time) (attendancerecord.AttendanceRecord, string, error) {
		if record.OwnerID() != actor.ID() {
			return record, "", workflowservices.NewNotOwnerError()
		}
		if err := s.authorize(record, record.Status(), status.Submitted, actor.Roles()); err != nil {
			return record, "", err
		}
		return record.Submit(now), "", nil
	})
}

func (s *AttendanceService) Approve(ctx context.Context, id uuid.UUID) (attendancerecord.AttendanceRecord, error) {
	actor, err := composables.UseUser(ctx)
	if err != nil {
		return attendancerecord.AttendanceRecord{}, err
	}
	return s.transition(ctx, id, func(record attendancerecord.AttendanceRecord, now time.Time) (attendancerecord.AttendanceRecord, string, error) {
		if record.OwnerID() == actor.ID() {
			return record, "", workflowservices.NewSelfApprovalError()
		}
		if err := s.authorize(record, record.Status(), status.Approved, actor.Roles()); err != nil {
			return record, "", err
		}
		return record.Approve(actor.ID(), now), "", nil
	})
}

func (s *AttendanceService) Reject(ctx context.Context, id uuid.UUID, reason string) (attendancerecord.AttendanceRecord, error) {
	actor, err := composables.UseUser(ctx)
	if err != nil {
		return attendancerecord.AttendanceRecord{}, err
	}
	if strings.TrimSpace(reason) == "" {
		return attendancerecord.AttendanceRecord{}, serrors.NewFieldRequiredError("reason", "Errors.FieldRequired")
	}
	return s.transition(ctx, id, func(record attendancerecord.AttendanceRecord, now time.Time) (attendancerecord.AttendanceRecord, string, error) {
		if record.OwnerID() == actor.ID() {
			return record, "", workflowservices.NewSelfApprovalError()
		}
		if err := s.authorize(record, record.Status(), status.Rejected, actor.Roles()); err != nil {
			return record, "", err
		}
		return record.Reject(actor.ID(), reason, now), reason, nil
	})
}

// SoftDelete bypasses the step graph; DELETED is not a declared status.
func (s *AttendanceService) SoftDelete(ctx context.Context, id uuid.UUID) (attendancerecord.AttendanceRecord, error) {
	return s.transitionIncludingDeleted(ctx, id, func(record attendancerecord.AttendanceRecord, now time.Time) (attendancerecord.AttendanceRecord, string, error) {
		if record.IsDeleted() {
			return record, "", workflowservices.NewAlreadyDeletedError()
		}
		return record.SoftDelete(now), "", nil
	})
}

// Restore clears the soft delete and returns the record to DRAFT, again
// without consulting the step graph.
func (s *AttendanceService) Restore(ctx context.Context, id uuid.UUID) (attendancerecord.AttendanceRecord, error) {
	return s.transitionIncludingDeleted(ctx, id, func(record attendancerecord.AttendanceRecord, now time.Time) (attendancerecord.AttendanceRecord, string, error) {
		if !record.IsDeleted() {
			return record, "", workflowservices.NewNotDeletedError()
		}
		return record.Restore(now), "", nil
	})
}

func (s *AttendanceService) authorize(record attendancerecord.AttendanceRecord, current, target string, actingRoles []string) error {
	ok, err := s.engine.CanTransition(attendancerecord.EntityType, current, target, actingRoles)
	if err != nil {
		return err
	}
	if !ok {
		return workflowservices.NewTransitionDeniedError(attendancerecord.EntityType, current, target)
	}
	return nil
}

type mutateFn func(record attendancerecord.AttendanceRecord, now time.Time) (attendancerecord.AttendanceRecord, string, error)

func (s *AttendanceService) transition(ctx context.Context, id uuid.UUID, mutate mutateFn) (attendancerecord.AttendanceRecord, error) {
	return s.run(ctx, id, mutate, false)
}

func (s *AttendanceService) transitionIncludingDeleted(ctx context.Context, id uuid.UUID, mutate mutateFn) (attendancerecord.AttendanceRecord, error) {
	return s.run(ctx, id, mutate, true)
}

// run executes one transition: everything up to and including persist
// happens inside the tenant transaction; the event publishes only after a
// successful commit, so listeners never observe an uncommitted mutation.
func (s *AttendanceService) run(ctx context.Context, id uuid.UUID, mutate mutateFn, includeDeleted bool) (attendancerecord.AttendanceRecord, error) {
	actor, err := composables.UseUser(ctx)
	if err != nil {
		return attendancerecord.AttendanceRecord{}, err
	}
	now := time.Now()

	var (
		oldStatus string
		reason    string
	)
	updated, err := composables.InTenantTxResult(ctx, func(txCtx context.Context) (attendancerecord.AttendanceRecord, error) {
		var record attendancerecord.AttendanceRecord
		var err error
		if includeDeleted {
			record, err = s.repo.GetByIDIncludingDeleted(txCtx, id)
		} else {
			record, err = s.repo.GetByID(txCtx, id)
		}
		if err != nil {
			return attendancerecord.AttendanceRecord{}, err
		}
		oldStatus = record.Status()

		mutated, mutateReason, err := mutate(record, now)
		if err != nil {
			return attendancerecord.AttendanceRecord{}, err
		}
		reason = mutateReason

		persisted, err := s.repo.Update(txCtx, mutated)
		if err != nil {
			if errors.Is(err, persistence.ErrVersionConflict) {
				return attendancerecord.AttendanceRecord{}, workflowservices.NewConflictError(attendancerecord.EntityType)
			}
			return attendancerecord.AttendanceRecord{}, err
		}
		return persisted, nil
	})
	if err != nil {
		return attendancerecord.AttendanceRecord{}, err
	}

	s.publisher.Publish(attendancerecord.NewStatusChangedEvent(updated, actor.ID(), oldStatus, reason, now))
	return updated, nil
}
