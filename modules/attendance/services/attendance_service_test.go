package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/timekeeper/modules/attendance/domain/aggregates/attendancerecord"
	"github.com/iota-uz/timekeeper/modules/attendance/infrastructure/persistence"
	"github.com/iota-uz/timekeeper/modules/core/domain/aggregates/user"
	corepersistence "github.com/iota-uz/timekeeper/modules/core/infrastructure/persistence"
	"github.com/iota-uz/timekeeper/modules/workflow/domain/definition"
	"github.com/iota-uz/timekeeper/modules/workflow/domain/status"
	workflowservices "github.com/iota-uz/timekeeper/modules/workflow/services"
	"github.com/iota-uz/timekeeper/pkg/composables"
	"github.com/iota-uz/timekeeper/pkg/constants"
	"github.com/iota-uz/timekeeper/pkg/eventbus"
	"github.com/iota-uz/timekeeper/pkg/serrors"
)

var testTenantID = uuid.MustParse("11111111-1111-1111-1111-111111111111")

type fakeTx struct {
	pgx.Tx
}

type mockAttendanceRepo struct {
	records       map[uuid.UUID]attendancerecord.AttendanceRecord
	staleVersions bool
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{records: map[uuid.UUID]attendancerecord.AttendanceRecord{}}
}

func (m *mockAttendanceRepo) GetByID(_ context.Context, id uuid.UUID) (attendancerecord.AttendanceRecord, error) {
	record, ok := m.records[id]
	if !ok || record.IsDeleted() {
		return attendancerecord.AttendanceRecord{}, persistence.ErrAttendanceRecordNotFound
	}
	return record, nil
}

func (m *mockAttendanceRepo) GetByIDIncludingDeleted(_ context.Context, id uuid.UUID) (attendancerecord.AttendanceRecord, error) {
	record, ok := m.records[id]
	if !ok {
		return attendancerecord.AttendanceRecord{}, persistence.ErrAttendanceRecordNotFound
	}
	return record, nil
}

func (m *mockAttendanceRepo) GetPaginated(_ context.Context, _ *attendancerecord.FindParams) ([]attendancerecord.AttendanceRecord, error) {
	out := make([]attendancerecord.AttendanceRecord, 0, len(m.records))
	for _, record := range m.records {
		out = append(out, record)
	}
	return out, nil
}

func (m *mockAttendanceRepo) Count(_ context.Context, _ *attendancerecord.FindParams) (int64, error) {
	return int64(len(m.records)), nil
}

func (m *mockAttendanceRepo) Create(_ context.Context, record attendancerecord.AttendanceRecord) (attendancerecord.AttendanceRecord, error) {
	created := attendancerecord.Hydrate(
		uuid.New(), record.TenantID(), record.OrganizationID(), record.OwnerID(),
		record.WorkDate(), record.CheckIn(), record.CheckOut(), record.Status(),
		record.ApproverID(), record.ApprovedAt(), record.Notes(), 1,
		time.Now(), time.Now(), record.DeletedAt(),
	)
	m.records[created.ID()] = created
	return created, nil
}

func (m *mockAttendanceRepo) Update(_ context.Context, record attendancerecord.AttendanceRecord) (attendancerecord.AttendanceRecord, error) {
	stored, ok := m.records[record.ID()]
	if !ok {
		return attendancerecord.AttendanceRecord{}, persistence.ErrAttendanceRecordNotFound
	}
	if m.staleVersions || stored.Version() != record.Version() {
		return attendancerecord.AttendanceRecord{}, persistence.ErrVersionConflict
	}
	updated := attendancerecord.Hydrate(
		record.ID(), record.TenantID(), record.OrganizationID(), record.OwnerID(),
		record.WorkDate(), record.CheckIn(), record.CheckOut(), record.Status(),
		record.ApproverID(), record.ApprovedAt(), record.Notes(), record.Version()+1,
		stored.CreatedAt(), time.Now(), record.DeletedAt(),
	)
	m.records[record.ID()] = updated
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

func (p *stubPublisher) statusChanges() []attendancerecord.StatusChangedEvent {
	var out []attendancerecord.StatusChangedEvent
	for _, e := range p.events {
		if ev, ok := e.(attendancerecord.StatusChangedEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

func testEngine() *workflowservices.WorkflowEngine {
	registry := definition.NewRegistry([]definition.Definition{
		definition.New(attendancerecord.EntityType, "attendance flow", []definition.Step{
			definition.NewStep(status.Draft, []string{status.Submitted}, []string{user.RoleEmployee, user.RoleManager, user.RoleHR}),
			definition.NewStep(status.Submitted, []string{status.Approved, status.Rejected, status.Draft}, []string{user.RoleManager, user.RoleHR}),
			definition.NewStep(status.Approved, nil, nil),
			definition.NewStep(status.Rejected, []string{status.Draft, status.Submitted}, []string{user.RoleEmployee, user.RoleManager, user.RoleHR}),
		}),
	})
	return workflowservices.NewWorkflowEngine(registry)
}

func testUser(roles ...string) user.User {
	return user.Hydrate(
		uuid.New(), testTenantID, uuid.New(), "worker@example.com", "Worker", "",
		roles, nil, user.UILanguageEN, time.Now(), time.Now(),
	)
}

func testContext(actor user.User) context.Context {
	ctx := context.WithValue(context.Background(), constants.TxKey, fakeTx{})
	ctx = composables.WithTenantID(ctx, testTenantID)
	return composables.WithUser(ctx, actor)
}

type fixture struct {
	repo      *mockAttendanceRepo
	users     *mockUserRepo
	publisher *stubPublisher
	service   *AttendanceService
}

func setup(users ...user.User) *fixture {
	repo := newMockAttendanceRepo()
	userRepo := newMockUserRepo(users...)
	publisher := &stubPublisher{}
	return &fixture{
		repo:      repo,
		users:     userRepo,
		publisher: publisher,
		service:   NewAttendanceService(repo, userRepo, testEngine(), publisher),
	}
}

func requireErrCode(t *testing.T, err error, code string) {
	t.Helper()
	var base *serrors.BaseError
	require.ErrorAs(t, err, &base)
	require.Equal(t, code, base.Code)
}

func TestAttendanceService_Create(t *testing.T) {
	owner := testUser(user.RoleEmployee)
	f := setup(owner)
	ctx := testContext(owner)

	record, err := f.service.Create(ctx, CreateDTO{WorkDate: time.Now()})
	require.NoError(t, err)
	require.Equal(t, status.Draft, record.Status())
	require.Equal(t, owner.ID(), record.OwnerID())
	require.Equal(t, owner.OrganizationID(), record.OrganizationID())
	require.EqualValues(t, 1, record.Version())

	require.Len(t, f.publisher.events, 1)
	_, ok := f.publisher.events[0].(attendancerecord.CreatedEvent)
	require.True(t, ok)
	require.Empty(t, f.publisher.statusChanges())
}

func TestAttendanceService_Create_RequiresWorkDate(t *testing.T) {
	owner := testUser(user.RoleEmployee)
	f := setup(owner)

	_, err := f.service.Create(testContext(owner), CreateDTO{})
	requireErrCode(t, err, "FIELD_REQUIRED")
}

func TestAttendanceService_Submit_Owner(t *testing.T) {
	owner := testUser(user.RoleEmployee)
	f := setup(owner)
	ctx := testContext(owner)

	record, err := f.service.Create(ctx, CreateDTO{WorkDate: time.Now()})
	require.NoError(t, err)

	submitted, err := f.service.Submit(ctx, record.ID())
	require.NoError(t, err)
	require.Equal(t, status.Submitted, submitted.Status())

	changes := f.publisher.statusChanges()
	require.Len(t, changes, 1)
	require.Equal(t, status.Draft, changes[0].OldStatus)
	require.Equal(t, status.Submitted, changes[0].NewStatus)
	require.Equal(t, owner.ID(), changes[0].ActorID)
	require.Equal(t, owner.ID(), changes[0].OwnerID)
}

func TestAttendanceService_Submit_RejectsNonOwnerEvenAdmin(t *testing.T) {
	owner := testUser(user.RoleEmployee)
	admin := testUser(user.RoleAdmin)
	f := setup(owner, admin)

	record, err := f.service.Create(testContext(owner), CreateDTO{WorkDate: time.Now()})
	require.NoError(t, err)
	eventsBefore := len(f.publisher.events)

	_, err = f.service.Submit(testContext(admin), record.ID())
	requireErrCode(t, err, workflowservices.ErrCodeNotOwner)

	unchanged, err := f.repo.GetByID(context.Background(), record.ID())
	require.NoError(t, err)
	require.Equal(t, status.Draft, unchanged.Status())
	require.Len(t, f.publisher.events, eventsBefore)
}

func TestAttendanceService_Approve(t *testing.T) {
	owner := testUser(user.RoleEmployee)
	manager := testUser(user.RoleManager)
	f := setup(owner, manager)

	record, err := f.service.Create(testContext(owner), CreateDTO{WorkDate: time.Now()})
	require.NoError(t, err)
	_, err = f.service.Submit(testContext(owner), record.ID())
	require.NoError(t, err)

	approved, err := f.service.Approve(testContext(manager), record.ID())
	require.NoError(t, err)
	require.Equal(t, status.Approved, approved.Status())
	require.Equal(t, manager.ID(), approved.ApproverID())
	require.NotNil(t, approved.ApprovedAt())
}

func TestAttendanceService_Approve_SelfForbidden(t *testing.T) {
	owner := testUser(user.RoleManager)
	f := setup(owner)
	ctx := testContext(owner)

	record, err := f.service.Create(ctx, CreateDTO{WorkDate: time.Now()})
	require.NoError(t, err)
	_, err = f.service.Submit(ctx, record.ID())
	require.NoError(t, err)

	_, err = f.service.Approve(ctx, record.ID())
	requireErrCode(t, err, workflowservices.ErrCodeSelfApproval)
}

func TestAttendanceService_Approve_DeniedForEmployee(t *testing.T) {
	owner := testUser(user.RoleEmployee)
	peer := testUser(user.RoleEmployee)
	f := setup(owner, peer)

	record, err := f.service.Create(testContext(owner), CreateDTO{WorkDate: time.Now()})
	require.NoError(t, err)
	_, err = f.service.Submit(testContext(owner), record.ID())
	require.NoError(t, err)
	changesBefore := len(f.publisher.statusChanges())

	_, err = f.service.Approve(testContext(peer), record.ID())
	requireErrCode(t, err, workflowservices.ErrCodeTransitionDenied)

	unchanged, err := f.repo.GetByID(context.Background(), record.ID())
	require.NoError(t, err)
	require.Equal(t, status.Submitted, unchanged.Status())
	require.Len(t, f.publisher.statusChanges(), changesBefore)
}

func TestAttendanceService_Reject(t *testing.T) {
	owner := testUser(user.RoleEmployee)
	manager := testUser(user.RoleManager)
	f := setup(owner, manager)

	record, err := f.service.Create(testContext(owner), CreateDTO{WorkDate: time.Now()})
	require.NoError(t, err)
	_, err = f.service.Submit(testContext(owner), record.ID())
	require.NoError(t, err)

	_, err = f.service.Reject(testContext(manager), record.ID(), "  ")
	requireErrCode(t, err, "FIELD_REQUIRED")

	rejected, err := f.service.Reject(testContext(manager), record.ID(), "timesheet mismatch")
	require.NoError(t, err)
	require.Equal(t, status.Rejected, rejected.Status())
	require.Equal(t, "timesheet mismatch", rejected.Notes())
	require.Equal(t, manager.ID(), rejected.ApproverID())

	changes := f.publisher.statusChanges()
	require.Equal(t, "timesheet mismatch", changes[len(changes)-1].Reason)
}

func TestAttendanceService_SoftDeleteAndRestore(t *testing.T) {
	owner := testUser(user.RoleEmployee)
	f := setup(owner)
	ctx := testContext(owner)

	record, err := f.service.Create(ctx, CreateDTO{WorkDate: time.Now()})
	require.NoError(t, err)

	deleted, err := f.service.SoftDelete(ctx, record.ID())
	require.NoError(t, err)
	require.Equal(t, status.Deleted, deleted.Status())
	require.NotNil(t, deleted.DeletedAt())

	_, err = f.service.SoftDelete(ctx, record.ID())
	requireErrCode(t, err, workflowservices.ErrCodeAlreadyDeleted)

	restored, err := f.service.Restore(ctx, record.ID())
	require.NoError(t, err)
	require.Equal(t, status.Draft, restored.Status())
	require.Nil(t, restored.DeletedAt())

	_, err = f.service.Restore(ctx, record.ID())
	requireErrCode(t, err, workflowservices.ErrCodeNotDeleted)

	changes := f.publisher.statusChanges()
	require.Len(t, changes, 2)
	require.Equal(t, status.Deleted, changes[0].NewStatus)
	require.Equal(t, status.Draft, changes[1].NewStatus)
	require.Equal(t, status.Deleted, changes[1].OldStatus)
}

func TestAttendanceService_ConcurrentUpdateConflict(t *testing.T) {
	owner := testUser(user.RoleEmployee)
	f := setup(owner)
	ctx := testContext(owner)

	record, err := f.service.Create(ctx, CreateDTO{WorkDate: time.Now()})
	require.NoError(t, err)

	f.repo.staleVersions = true
	_, err = f.service.Submit(ctx, record.ID())
	requireErrCode(t, err, workflowservices.ErrCodeConflict)
	require.Empty(t, f.publisher.statusChanges())
}

func TestAttendanceService_FullFlowEventCount(t *testing.T) {
	owner := testUser(user.RoleEmployee)
	manager := testUser(user.RoleManager)
	f := setup(owner, manager)

	record, err := f.service.Create(testContext(owner), CreateDTO{WorkDate: time.Now()})
	require.NoError(t, err)
	_, err = f.service.Submit(testContext(owner), record.ID())
	require.NoError(t, err)
	_, err = f.service.Approve(testContext(manager), record.ID())
	require.NoError(t, err)

	require.Len(t, f.publisher.statusChanges(), 2)
}
