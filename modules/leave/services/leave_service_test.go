package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/timekeeper/modules/core/domain/aggregates/user"
	corepersistence "github.com/iota-uz/timekeeper/modules/core/infrastructure/persistence"
	"github.com/iota-uz/timekeeper/modules/leave/domain/aggregates/leaverequest"
	"github.com/iota-uz/timekeeper/modules/leave/infrastructure/persistence"
	"github.com/iota-uz/timekeeper/modules/workflow/domain/definition"
	"github.com/iota-uz/timekeeper/modules/workflow/domain/status"
	workflowservices "github.com/iota-uz/timekeeper/modules/workflow/services"
	"github.com/iota-uz/timekeeper/pkg/composables"
	"github.com/iota-uz/timekeeper/pkg/constants"
	"github.com/iota-uz/timekeeper/pkg/eventbus"
	"github.com/iota-uz/timekeeper/pkg/serrors"
)

var testTenantID = uuid.MustParse("22222222-2222-2222-2222-222222222222")

type fakeTx struct {
	pgx.Tx
}

type mockLeaveRepo struct {
	requests map[uuid.UUID]leaverequest.LeaveRequest
}

func newMockLeaveRepo() *mockLeaveRepo {
	return &mockLeaveRepo{requests: map[uuid.UUID]leaverequest.LeaveRequest{}}
}

func (m *mockLeaveRepo) GetByID(_ context.Context, id uuid.UUID) (leaverequest.LeaveRequest, error) {
	request, ok := m.requests[id]
	if !ok || request.IsDeleted() {
		return leaverequest.LeaveRequest{}, persistence.ErrLeaveRequestNotFound
	}
	return request, nil
}

func (m *mockLeaveRepo) GetByIDIncludingDeleted(_ context.Context, id uuid.UUID) (leaverequest.LeaveRequest, error) {
	request, ok := m.requests[id]
	if !ok {
		return leaverequest.LeaveRequest{}, persistence.ErrLeaveRequestNotFound
	}
	return request, nil
}

func (m *mockLeaveRepo) GetPaginated(_ context.Context, _ *leaverequest.FindParams) ([]leaverequest.LeaveRequest, error) {
	out := make([]leaverequest.LeaveRequest, 0, len(m.requests))
	for _, request := range m.requests {
		out = append(out, request)
	}
	return out, nil
}

func (m *mockLeaveRepo) Count(_ context.Context, _ *leaverequest.FindParams) (int64, error) {
	return int64(len(m.requests)), nil
}

func (m *mockLeaveRepo) Create(_ context.Context, request leaverequest.LeaveRequest) (leaverequest.LeaveRequest, error) {
	created := leaverequest.Hydrate(
		uuid.New(), request.TenantID(), request.OrganizationID(), request.OwnerID(),
		request.LeaveType(), request.StartDate(), request.EndDate(), request.Reason(),
		request.Status(), request.ApproverID(), request.ApprovedAt(), request.Notes(), 1,
		time.Now(), time.Now(), request.DeletedAt(),
	)
	m.requests[created.ID()] = created
	return created, nil
}

func (m *mockLeaveRepo) Update(_ context.Context, request leaverequest.LeaveRequest) (leaverequest.LeaveRequest, error) {
	stored, ok := m.requests[request.ID()]
	if !ok {
		return leaverequest.LeaveRequest{}, persistence.ErrLeaveRequestNotFound
	}
	if stored.Version() != request.Version() {
		return leaverequest.LeaveRequest{}, persistence.ErrVersionConflict
	}
	updated := leaverequest.Hydrate(
		request.ID(), request.TenantID(), request.OrganizationID(), request.OwnerID(),
		request.LeaveType(), request.StartDate(), request.EndDate(), request.Reason(),
		request.Status(), request.ApproverID(), request.ApprovedAt(), request.Notes(), request.Version()+1,
		stored.CreatedAt(), time.Now(), request.DeletedAt(),
	)
	m.requests[request.ID()] = updated
	return updated, nil
}

type mockUserRepo struct {
	users map[uuid.UUID]user.User
}

func newMockUserRepo(users ...user.User) *mockUserRepo {
	m := &mockUserRepo{users: map[uuid.UUID]user.User{}}
	for _, u := range users {
		m.users[u.ID()] = u
	}
	return m
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return user.User{}, corepersistence.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetAll(_ context.Context, _ *user.FindParams) ([]user.User, error) {
	out := make([]user.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *mockUserRepo) Count(_ context.Context, _ *user.FindParams) (int64, error) {
	return int64(len(m.users)), nil
}

func (m *mockUserRepo) Create(_ context.Context, u user.User) (user.User, error) {
	m.users[u.ID()] = u
	return u, nil
}

type stubPublisher struct {
	events []interface{}
}

var _ eventbus.EventBus = (*stubPublisher)(nil)

func (p *stubPublisher) Publish(args ...interface{}) { p.events = append(p.events, args...) }
func (p *stubPublisher) Subscribe(interface{})       {}
func (p *stubPublisher) Unsubscribe(interface{})     {}
func (p *stubPublisher) Clear()                      { p.events = nil }
func (p *stubPublisher) SubscribersCount() int       { return 0 }

func (p *stubPublisher) statusChanges() []leaverequest.StatusChangedEvent {
	var out []leaverequest.StatusChangedEvent
	for _, e := range p.events {
		if ev, ok := e.(leaverequest.StatusChangedEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

func testEngine() *workflowservices.WorkflowEngine {
	registry := definition.NewRegistry([]definition.Definition{
		definition.New(leaverequest.EntityType, "leave flow", []definition.Step{
			definition.NewStep(status.Draft, []string{status.Submitted}, []string{user.RoleEmployee, user.RoleManager, user.RoleHR}),
			definition.NewStep(status.Submitted, []string{status.Approved, status.Rejected, status.Draft}, []string{user.RoleManager, user.RoleHR}),
			definition.NewStep(status.Approved, nil, nil),
			definition.NewStep(status.Rejected, []string{status.Draft, status.Submitted}, []string{user.RoleEmployee, user.RoleManager, user.RoleHR}),
		}),
	})
	return workflowservices.NewWorkflowEngine(registry)
}

func testUser(roles []string, permissions []string) user.User {
	return user.Hydrate(
		uuid.New(), testTenantID, uuid.New(), "worker@example.com", "Worker", "",
		roles, permissions, user.UILanguageEN, time.Now(), time.Now(),
	)
}

func testContext(actor user.User) context.Context {
	ctx := context.WithValue(context.Background(), constants.TxKey, fakeTx{})
	ctx = composables.WithTenantID(ctx, testTenantID)
	return composables.WithUser(ctx, actor)
}

type fixture struct {
	repo      *mockLeaveRepo
	users     *mockUserRepo
	publisher *stubPublisher
	service   *LeaveRequestService
}

func setup(users ...user.User) *fixture {
	repo := newMockLeaveRepo()
	userRepo := newMockUserRepo(users...)
	publisher := &stubPublisher{}
	return &fixture{
		repo:      repo,
		users:     userRepo,
		publisher: publisher,
		service:   NewLeaveRequestService(repo, userRepo, testEngine(), publisher),
	}
}

func requireErrCode(t *testing.T, err error, code string) {
	t.Helper()
	var base *serrors.BaseError
	require.ErrorAs(t, err, &base)
	require.Equal(t, code, base.Code)
}

func validDTO(ownerID uuid.UUID) CreateDTO {
	return CreateDTO{
		OwnerID:   ownerID,
		LeaveType: leaverequest.TypeVacation,
		StartDate: time.Now(),
		EndDate:   time.Now().Add(72 * time.Hour),
		Reason:    "family trip",
	}
}

func TestLeaveService_Create(t *testing.T) {
	owner := testUser([]string{user.RoleEmployee}, nil)
	f := setup(owner)

	request, err := f.service.Create(testContext(owner), validDTO(uuid.Nil))
	require.NoError(t, err)
	require.Equal(t, status.Draft, request.Status())
	require.Equal(t, owner.ID(), request.OwnerID())
	require.Equal(t, leaverequest.TypeVacation, request.LeaveType())
}

func TestLeaveService_Create_Validation(t *testing.T) {
	owner := testUser([]string{user.RoleEmployee}, nil)
	f := setup(owner)
	ctx := testContext(owner)

	dto := validDTO(uuid.Nil)
	dto.LeaveType = "SABBATICAL"
	_, err := f.service.Create(ctx, dto)
	requireErrCode(t, err, "FIELD_REQUIRED")

	dto = validDTO(uuid.Nil)
	dto.EndDate = dto.StartDate.Add(-time.Hour)
	_, err = f.service.Create(ctx, dto)
	requireErrCode(t, err, "LEAVE_INVALID_RANGE")
}

func TestLeaveService_Submit_Owner(t *testing.T) {
	owner := testUser([]string{user.RoleEmployee}, nil)
	f := setup(owner)
	ctx := testContext(owner)

	request, err := f.service.Create(ctx, validDTO(uuid.Nil))
	require.NoError(t, err)

	submitted, err := f.service.Submit(ctx, request.ID())
	require.NoError(t, err)
	require.Equal(t, status.Submitted, submitted.Status())
}

func TestLeaveService_Submit_AdminOverride(t *testing.T) {
	owner := testUser([]string{user.RoleEmployee}, nil)
	admin := testUser([]string{user.RoleAdmin}, nil)
	f := setup(owner, admin)

	request, err := f.service.Create(testContext(owner), validDTO(uuid.Nil))
	require.NoError(t, err)

	submitted, err := f.service.Submit(testContext(admin), request.ID())
	require.NoError(t, err)
	require.Equal(t, status.Submitted, submitted.Status())

	changes := f.publisher.statusChanges()
	require.Len(t, changes, 1)
	require.Equal(t, admin.ID(), changes[0].ActorID)
	require.Equal(t, owner.ID(), changes[0].OwnerID)
}

func TestLeaveService_Submit_PermissionOverrideUsesActorRoles(t *testing.T) {
	owner := testUser([]string{user.RoleEmployee}, nil)
	// Delegate holds the submit permission and a role the DRAFT step
	// allows, so the engine check passes on the delegate's own roles.
	delegate := testUser([]string{user.RoleHR}, []string{leaverequest.PermissionSubmit})
	f := setup(owner, delegate)

	request, err := f.service.Create(testContext(owner), validDTO(uuid.Nil))
	require.NoError(t, err)

	submitted, err := f.service.Submit(testContext(delegate), request.ID())
	require.NoError(t, err)
	require.Equal(t, status.Submitted, submitted.Status())
}

func TestLeaveService_Submit_PermissionOverrideDeniedByRoles(t *testing.T) {
	owner := testUser([]string{user.RoleEmployee}, nil)
	// Holder of the permission but with no role the DRAFT step allows:
	// the override gate passes, the engine check still denies.
	delegate := testUser([]string{"CONTRACTOR"}, []string{leaverequest.PermissionSubmit})
	f := setup(owner, delegate)

	request, err := f.service.Create(testContext(owner), validDTO(uuid.Nil))
	require.NoError(t, err)

	_, err = f.service.Submit(testContext(delegate), request.ID())
	requireErrCode(t, err, workflowservices.ErrCodeTransitionDenied)
}

func TestLeaveService_Submit_StrangerDenied(t *testing.T) {
	owner := testUser([]string{user.RoleEmployee}, nil)
	stranger := testUser([]string{user.RoleManager}, nil)
	f := setup(owner, stranger)

	request, err := f.service.Create(testContext(owner), validDTO(uuid.Nil))
	require.NoError(t, err)

	_, err = f.service.Submit(testContext(stranger), request.ID())
	requireErrCode(t, err, workflowservices.ErrCodeNotOwner)
}

func TestLeaveService_ApproveRejectFlow(t *testing.T) {
	owner := testUser([]string{user.RoleEmployee}, nil)
	manager := testUser([]string{user.RoleManager}, nil)
	f := setup(owner, manager)

	request, err := f.service.Create(testContext(owner), validDTO(uuid.Nil))
	require.NoError(t, err)
	_, err = f.service.Submit(testContext(owner), request.ID())
	require.NoError(t, err)

	_, err = f.service.Approve(testContext(owner), request.ID())
	requireErrCode(t, err, workflowservices.ErrCodeSelfApproval)

	rejected, err := f.service.Reject(testContext(manager), request.ID(), "overlapping leave")
	require.NoError(t, err)
	require.Equal(t, status.Rejected, rejected.Status())
	require.Equal(t, "overlapping leave", rejected.Notes())
	require.Equal(t, manager.ID(), rejected.ApproverID())
}

func TestLeaveService_RestoreResetsToDraft(t *testing.T) {
	owner := testUser([]string{user.RoleEmployee}, nil)
	manager := testUser([]string{user.RoleManager}, nil)
	f := setup(owner, manager)

	request, err := f.service.Create(testContext(owner), validDTO(uuid.Nil))
	require.NoError(t, err)
	_, err = f.service.Submit(testContext(owner), request.ID())
	require.NoError(t, err)
	_, err = f.service.Approve(testContext(manager), request.ID())
	require.NoError(t, err)

	deleted, err := f.service.SoftDelete(testContext(owner), request.ID())
	require.NoError(t, err)
	require.Equal(t, status.Deleted, deleted.Status())

	// Restore lands in DRAFT even though the request was APPROVED when
	// deleted, so it re-enters the graph at its entry status.
	restored, err := f.service.Restore(testContext(owner), request.ID())
	require.NoError(t, err)
	require.Equal(t, status.Draft, restored.Status())
	require.Nil(t, restored.DeletedAt())
}

func TestLeaveService_DeleteStateGuards(t *testing.T) {
	owner := testUser([]string{user.RoleEmployee}, nil)
	f := setup(owner)
	ctx := testContext(owner)

	request, err := f.service.Create(ctx, validDTO(uuid.Nil))
	require.NoError(t, err)

	_, err = f.service.Restore(ctx, request.ID())
	requireErrCode(t, err, workflowservices.ErrCodeNotDeleted)

	_, err = f.service.SoftDelete(ctx, request.ID())
	require.NoError(t, err)
	_, err = f.service.SoftDelete(ctx, request.ID())
	requireErrCode(t, err, workflowservices.ErrCodeAlreadyDeleted)
}
