package services

import (
	"github.com/iota-uz/timekeeper/pkg/serrors"
)

const (
	ErrCodeDefinitionNotFound = "WORKFLOW_DEFINITION_NOT_FOUND"
	ErrCodeUnknownStatus      = "WORKFLOW_UNKNOWN_STATUS"
	ErrCodeTransitionDenied   = "WORKFLOW_TRANSITION_DENIED"
	ErrCodeSelfApproval       = "WORKFLOW_SELF_APPROVAL_FORBIDDEN"
	ErrCodeNotOwner           = "WORKFLOW_NOT_OWNER"
	ErrCodeAlreadyDeleted     = "WORKFLOW_ALREADY_DELETED"
	ErrCodeNotDeleted         = "WORKFLOW_NOT_DELETED"
	ErrCodeConflict           = "WORKFLOW_CONFLICT"
)

// NewDefinitionNotFoundError signals a configuration defect: the entity type
// has no registered step graph.
func NewDefinitionNotFoundError(entityType string) *serrors.BaseError {
	return serrors.NewError(
		ErrCodeDefinitionNotFound,
		"no workflow definition registered for entity type",
		"Errors.WorkflowDefinitionNotFound",
	).WithTemplateData(map[string]string{"EntityType": entityType})
}

// NewUnknownStatusError signals a data defect: the entity sits in a status
// the declared graph does not know about. Distinct from a business denial.
func NewUnknownStatusError(entityType, status string) *serrors.BaseError {
	return serrors.NewError(
		ErrCodeUnknownStatus,
		"entity status has no matching workflow step",
		"Errors.WorkflowUnknownStatus",
	).WithTemplateData(map[string]string{"EntityType": entityType, "Status": status})
}

func NewTransitionDeniedError(entityType, oldStatus, newStatus string) *serrors.BaseError {
	return serrors.NewError(
		ErrCodeTransitionDenied,
		"workflow transition denied",
		"Errors.WorkflowTransitionDenied",
	).WithTemplateData(map[string]string{
		"EntityType": entityType,
		"OldStatus":  oldStatus,
		"NewStatus":  newStatus,
	})
}

func NewSelfApprovalError() *serrors.BaseError {
	return serrors.NewError(
		ErrCodeSelfApproval,
		"self-approval is forbidden",
		"Errors.SelfApprovalForbidden",
	)
}

func NewNotOwnerError() *serrors.BaseError {
	return serrors.NewError(
		ErrCodeNotOwner,
		"only the owner may submit this record",
		"Errors.NotOwner",
	)
}

func NewAlreadyDeletedError() *serrors.BaseError {
	return serrors.NewError(
		ErrCodeAlreadyDeleted,
		"record is already deleted",
		"Errors.AlreadyDeleted",
	)
}

func NewNotDeletedError() *serrors.BaseError {
	return serrors.NewError(
		ErrCodeNotDeleted,
		"record is not deleted",
		"Errors.NotDeleted",
	)
}

// NewConflictError reports a lost optimistic-concurrency race: the entity
// version changed between load and write.
func NewConflictError(entityType string) *serrors.BaseError {
	return serrors.NewError(
		ErrCodeConflict,
		"record was modified concurrently",
		"Errors.Conflict",
	).WithTemplateData(map[string]string{"EntityType": entityType})
}
