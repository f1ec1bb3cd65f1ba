package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/timekeeper/modules/workflow/domain/definition"
	"github.com/iota-uz/timekeeper/pkg/serrors"
)

func testRegistry() *definition.Registry {
	attendance := definition.New(definition.EntityTypeAttendanceRecord, "attendance approvals", []definition.Step{
		definition.NewStep("DRAFT", []string{"SUBMITTED"}, []string{"EMPLOYEE", "MANAGER", "HR"}),
		definition.NewStep("SUBMITTED", []string{"APPROVED", "REJECTED", "DRAFT"}, []string{"MANAGER", "HR"}),
		definition.NewStep("APPROVED", nil, nil),
		definition.NewStep("REJECTED", []string{"DRAFT", "SUBMITTED"}, []string{"EMPLOYEE", "MANAGER", "HR"}),
	})
	return definition.NewRegistry([]definition.Definition{attendance})
}

func TestWorkflowEngine_PrivilegedRoleBypassesEverything(t *testing.T) {
	engine := NewWorkflowEngine(testRegistry())

	// Even an unregistered entity type passes for privileged actors.
	for _, role := range []string{"ADMIN", "SUPERADMIN", "SYSTEM", "admin"} {
		ok, err := engine.CanTransition("UnregisteredType", "DRAFT", "APPROVED", []string{role})
		require.NoError(t, err)
		require.True(t, ok, "role %s should bypass the graph", role)
	}
}

func TestWorkflowEngine_UnknownEntityTypeIsErrorForNonPrivileged(t *testing.T) {
	engine := NewWorkflowEngine(testRegistry())

	ok, err := engine.CanTransition("UnregisteredType", "DRAFT", "SUBMITTED", []string{"EMPLOYEE"})
	require.False(t, ok)
	require.Error(t, err)

	var serr *serrors.BaseError
	require.True(t, errors.As(err, &serr))
	require.Equal(t, ErrCodeDefinitionNotFound, serr.Code)
}

func TestWorkflowEngine_UnknownCurrentStatusIsError(t *testing.T) {
	engine := NewWorkflowEngine(testRegistry())

	// DELETED has no declared step.
	ok, err := engine.CanTransition(definition.EntityTypeAttendanceRecord, "DELETED", "DRAFT", []string{"EMPLOYEE"})
	require.False(t, ok)

	var serr *serrors.BaseError
	require.True(t, errors.As(err, &serr))
	require.Equal(t, ErrCodeUnknownStatus, serr.Code)
}

func TestWorkflowEngine_UndeclaredTargetIsDenied(t *testing.T) {
	engine := NewWorkflowEngine(testRegistry())

	for _, target := range []string{"APPROVED", "REJECTED", "DELETED", "DRAFT"} {
		ok, err := engine.CanTransition(definition.EntityTypeAttendanceRecord, "DRAFT", target, []string{"EMPLOYEE", "MANAGER", "HR"})
		require.NoError(t, err)
		require.False(t, ok, "DRAFT -> %s is not declared", target)
	}
}

func TestWorkflowEngine_DeclaredTransitionWithAllowedRole(t *testing.T) {
	engine := NewWorkflowEngine(testRegistry())

	ok, err := engine.CanTransition(definition.EntityTypeAttendanceRecord, "DRAFT", "SUBMITTED", []string{"EMPLOYEE"})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = engine.CanTransition(definition.EntityTypeAttendanceRecord, "SUBMITTED", "APPROVED", []string{"MANAGER"})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestWorkflowEngine_DeclaredTransitionWithoutRoleIsDenied(t *testing.T) {
	engine := NewWorkflowEngine(testRegistry())

	ok, err := engine.CanTransition(definition.EntityTypeAttendanceRecord, "SUBMITTED", "APPROVED", []string{"EMPLOYEE"})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWorkflowEngine_StatusMatchIsCaseInsensitive(t *testing.T) {
	engine := NewWorkflowEngine(testRegistry())

	ok, err := engine.CanTransition(definition.EntityTypeAttendanceRecord, "draft", "submitted", []string{"employee"})
	require.NoError(t, err)
	require.True(t, ok)
}
