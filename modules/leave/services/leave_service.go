package services

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/iota-uz/timekeeper/modules/core/domain/aggregates/user"
	"github.com/iota-uz/timekeeper/modules/leave/domain/aggregates/leaverequest"
	"github.com/iota-uz/timekeeper/modules/leave/infrastructure/persistence"
	"github.com/iota-uz/timekeeper/modules/workflow/domain/status"
	workflowservices "github.com/iota-uz/timekeeper/modules/workflow/services"
	"github.com/iota-uz/timekeeper/pkg/composables"
	"github.com/iota-uz/timekeeper/pkg/eventbus"
	"github.com/iota-uz/timekeeper/pkg/serrors"
)

type CreateDTO struct {
	OwnerID        uuid.UUID
	OrganizationID uuid.UUID
	LeaveType      string
	StartDate      time.Time
	EndDate        time.Time
	Reason         string
}

// LeaveRequestService owns every status mutation of leave requests. The
// shape matches attendance, with one deliberate difference: submit accepts
// the owner, an admin, or a holder of the explicit submit permission.
type LeaveRequestService struct {
	repo      leaverequest.Repository
	users     user.Repository
	engine    *workflowservices.WorkflowEngine
	publisher eventbus.EventBus
}

func NewLeaveRequestService(
	repo leaverequest.Repository,
	users user.Repository,
	engine *workflowservices.WorkflowEngine,
	publisher eventbus.EventBus,
) *LeaveRequestService {
	return &LeaveRequestService{
		repo:      repo,
		users:     users,
		engine:    engine,
		publisher: publisher,
	}
}

func (s *LeaveRequestService) GetByID(ctx context.Context, id uuid.UUID) (leaverequest.LeaveRequest, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (leaverequest.LeaveRequest, error) {
		return s.repo.GetByID(txCtx, id)
	})
}

func (s *LeaveRequestService) GetPaginated(ctx context.Context, params *leaverequest.FindParams) ([]leaverequest.LeaveRequest, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) ([]leaverequest.LeaveRequest, error) {
		return s.repo.GetPaginated(txCtx, params)
	})
}

func (s *LeaveRequestService) Count(ctx context.Context, params *leaverequest.FindParams) (int64, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (int64, error) {
		return s.repo.Count(txCtx, params)
	})
}

func (s *LeaveRequestService) Create(ctx context.Context, dto CreateDTO) (leaverequest.LeaveRequest, error) {
	actor, err := composables.UseUser(ctx)
	if err != nil {
		return leaverequest.LeaveRequest{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return leaverequest.LeaveRequest{}, err
	}
	if !leaverequest.IsValidType(dto.LeaveType) {
		return leaverequest.LeaveRequest{}, serrors.NewFieldRequiredError("leaveType", "Errors.FieldRequired")
	}
	if dto.StartDate.IsZero() || dto.EndDate.IsZero() {
		return leaverequest.LeaveRequest{}, serrors.NewFieldRequiredError("startDate", "Errors.FieldRequired")
	}
	if dto.EndDate.Before(dto.StartDate) {
		return leaverequest.LeaveRequest{}, serrors.NewError(
			"LEAVE_INVALID_RANGE",
			"end date precedes start date",
			"Errors.InvalidDateRange",
		)
	}

	ownerID := dto.OwnerID
	if ownerID == uuid.Nil {
		ownerID = actor.ID()
	}

	created, err := composables.InTenantTxResult(ctx, func(txCtx context.Context) (leaverequest.LeaveRequest, error) {
		owner, err := s.users.GetByID(txCtx, ownerID)
		if err != nil {
			return leaverequest.LeaveRequest{}, err
		}
		orgID := dto.OrganizationID
		if orgID == uuid.Nil {
			orgID = owner.OrganizationID()
		}
		if orgID == uuid.Nil {
			orgID = tenantID
		}
		entity := leaverequest.New(tenantID, orgID, owner.ID(), dto.LeaveType, dto.StartDate, dto.EndDate, dto.Reason)
		return s.repo.Create(txCtx, entity)
	})
	if err != nil {
		return leaverequest.LeaveRequest{}, err
	}
	s.publisher.Publish(leaverequest.NewCreatedEvent(created))
	return created, nil
}

// Submit accepts the owner, an admin, or a holder of the explicit submit
// permission. On the override path the engine check runs against the
// actor's own roles, not the owner's.
func (s *LeaveRequestService) Submit(ctx context.Context, id uuid.UUID) (leaverequest.LeaveRequest, error) {
	actor, err := composables.UseUser(ctx)
	if err != nil {
		return leaverequest.LeaveRequest{}, err
	}
	return s.transition(ctx, id, func(request leaverequest.LeaveRequest, now time.Time) (leaverequest.LeaveRequest, string, error) {
		if request.OwnerID() != actor.ID() &&
			!actor.HasRole(user.RoleAdmin) &&
			!actor.HasPermission(leaverequest.PermissionSubmit) {
			return request, "", workflowservices.NewNotOwnerError()
		}
		if err := s.authorize(request, request.Status(), status.Submitted, actor.Roles()); err != nil {
			return request, "", err
		}
		return request.Submit(now), "", nil
	})
}

func (s *LeaveRequestService) Approve(ctx context.Context, id uuid.UUID) (leaverequest.LeaveRequest, error) {
	actor, err := composables.UseUser(ctx)
	if err != nil {
		return leaverequest.LeaveRequest{}, err
	}
	return s.transition(ctx, id, func(request leaverequest.LeaveRequest, now time.Time) (leaverequest.LeaveRequest, string, error) {
		if request.OwnerID() == actor.ID() {
			return request, "", workflowservices.NewSelfApprovalError()
		}
		if err := s.authorize(request, request.Status(), status.Approved, actor.Roles()); err != nil {
			return request, "", err
		}
		return request.Approve(actor.ID(), now), "", nil
	})
}

func (s *LeaveRequestService) Reject(ctx context.Context, id uuid.UUID, reason string) (leaverequest.LeaveRequest, error) {
	actor, err := composables.UseUser(ctx)
	if err != nil {
		return leaverequest.LeaveRequest{}, err
	}
	if strings.TrimSpace(reason) == "" {
		return leaverequest.LeaveRequest{}, serrors.NewFieldRequiredError("reason", "Errors.FieldRequired")
	}
	return s.transition(ctx, id, func(request leaverequest.LeaveRequest, now time.Time) (leaverequest.LeaveRequest, string, error) {
		if request.OwnerID() == actor.ID() {
			return request, "", workflowservices.NewSelfApprovalError()
		}
		if err := s.authorize(request, request.Status(), status.Rejected, actor.Roles()); err != nil {
			return request, "", err
		}
		return request.Reject(actor.ID(), reason, now), reason, nil
	})
}

func (s *LeaveRequestService) SoftDelete(ctx context.Context, id uuid.UUID) (leaverequest.LeaveRequest, error) {
	return s.transitionIncludingDeleted(ctx, id, func(request leaverequest.LeaveRequest, now time.Time) (leaverequest.LeaveRequest, string, error) {
		if request.IsDeleted() {
			return request, "", workflowservices.NewAlreadyDeletedError()
		}
		return request.SoftDelete(now), "", nil
	})
}

func (s *LeaveRequestService) Restore(ctx context.Context, id uuid.UUID) (leaverequest.LeaveRequest, error) {
	return s.transitionIncludingDeleted(ctx, id, func(request leaverequest.LeaveRequest, now time.Time) (leaverequest.LeaveRequest, string, error) {
		if !request.IsDeleted() {
			return request, "", workflowservices.NewNotDeletedError()
		}
		return request.Restore(now), "", nil
	})
}

func (s *LeaveRequestService) authorize(request leaverequest.LeaveRequest, current, target string, actingRoles []string) error {
	ok, err := s.engine.CanTransition(leaverequest.EntityType, current, target, actingRoles)
	if err != nil {
		return err
	}
	if !ok {
		return workflowservices.NewTransitionDeniedError(leaverequest.EntityType, current, target)
	}
	return nil
}

type mutateFn func(request leaverequest.LeaveRequest, now time.Time) (leaverequest.LeaveRequest, string, error)

func (s *LeaveRequestService) transition(ctx context.Context, id uuid.UUID, mutate mutateFn) (leaverequest.LeaveRequest, error) {
	return s.run(ctx, id, mutate, false)
}

func (s *LeaveRequestService) transitionIncludingDeleted(ctx context.Context, id uuid.UUID, mutate mutateFn) (leaverequest.LeaveRequest, error) {
	return s.run(ctx, id, mutate, true)
}

// run mirrors the attendance flow: persist inside the tenant transaction,
// publish only after commit.
func (s *LeaveRequestService) run(ctx context.Context, id uuid.UUID, mutate mutateFn, includeDeleted bool) (leaverequest.LeaveRequest, error) {
	actor, err := composables.UseUser(ctx)
	if err != nil {
		return leaverequest.LeaveRequest{}, err
	}
	now := time.Now()

	var (
		oldStatus string
		reason    string
	)
	updated, err := composables.InTenantTxResult(ctx, func(txCtx context.Context) (leaverequest.LeaveRequest, error) {
		var request leaverequest.LeaveRequest
		var err error
		if includeDeleted {
			request, err = s.repo.GetByIDIncludingDeleted(txCtx, id)
		} else {
			request, err = s.repo.GetByID(txCtx, id)
		}
		if err != nil {
			return leaverequest.LeaveRequest{}, err
		}
		oldStatus = request.Status()

		mutated, mutateReason, err := mutate(request, now)
		if err != nil {
			return leaverequest.LeaveRequest{}, err
		}
		reason = mutateReason

		persisted, err := s.repo.Update(txCtx, mutated)
		if err != nil {
			if errors.Is(err, persistence.ErrVersionConflict) {
				return leaverequest.LeaveRequest{}, workflowservices.NewConflictError(leaverequest.EntityType)
			}
			return leaverequest.LeaveRequest{}, err
		}
		return persisted, nil
	})
	if err != nil {
		return leaverequest.LeaveRequest{}, err
	}

	s.publisher.Publish(leaverequest.NewStatusChangedEvent(updated, actor.ID(), oldStatus, reason, now))
	return updated, nil
}
