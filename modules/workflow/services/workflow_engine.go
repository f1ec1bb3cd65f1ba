package services

import (
	"strings"

	"github.com/iota-uz/timekeeper/modules/workflow/domain/definition"
)

// privilegedRoles bypass every declared transition and role check.
var privilegedRoles = []string{"ADMIN", "SUPERADMIN", "SYSTEM"}

// WorkflowEngine is the pure transition-authorization decision function over
// the definition registry. It never mutates anything and is safe to call
// repeatedly.
type WorkflowEngine struct {
	registry *definition.Registry
}

func NewWorkflowEngine(registry *definition.Registry) *WorkflowEngine {
	return &WorkflowEngine{registry: registry}
}

// CanTransition decides whether actorRoles may move an entity of entityType
// from currentStatus to targetStatus.
//
// Privileged actors pass unconditionally, before any definition lookup, so
// they succeed even against an entity type with no registered definition.
// A missing definition or a current status absent from the graph is a
// configuration/data defect and surfaces as an error, not a denial.
func (e *WorkflowEngine) CanTransition(entityType, currentStatus, targetStatus string, actorRoles []string) (bool, error) {
	if hasPrivilegedRole(actorRoles) {
		return true, nil
	}

	def, ok := e.registry.Get(entityType)
	if !ok {
		return false, NewDefinitionNotFoundError(entityType)
	}

	step, ok := def.Step(currentStatus)
	if !ok {
		return false, NewUnknownStatusError(entityType, currentStatus)
	}

	if !step.AllowsTransitionTo(targetStatus) {
		return false, nil
	}
	if !step.AllowsAnyRole(actorRoles) {
		return false, nil
	}
	return true, nil
}

func hasPrivilegedRole(roles []string) bool {
	for _, r := range roles {
		for _, p := range privilegedRoles {
			if strings.EqualFold(r, p) {
				return true
			}
		}
	}
	return false
}
