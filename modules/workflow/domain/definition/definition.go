package definition

import (
	"strings"
)

// Entity type keys the seeded definitions are registered under.
const (
	EntityTypeAttendanceRecord = "AttendanceRecord"
	EntityTypeLeaveRequest     = "LeaveRequest"
)

// Step is one status node of a definition: the statuses it may move to and
// the roles allowed to cause that move. Immutable after construction.
type Step struct {
	status             string
	allowedTransitions []string
	allowedRoles       []string
}

func NewStep(status string, allowedTransitions, allowedRoles []string) Step {
	return Step{
		status:             strings.TrimSpace(status),
		allowedTransitions: cloneSet(allowedTransitions),
		allowedRoles:       cloneSet(allowedRoles),
	}
}

func (s Step) Status() string { return s.status }

func (s Step) AllowedTransitions() []string { return cloneSet(s.allowedTransitions) }

func (s Step) AllowedRoles() []string { return cloneSet(s.allowedRoles) }

// AllowsTransitionTo reports whether target is a declared next status.
func (s Step) AllowsTransitionTo(target string) bool {
	for _, t := range s.allowedTransitions {
		if strings.EqualFold(t, target) {
			return true
		}
	}
	return false
}

// AllowsAnyRole reports whether any of roles is permitted at this step.
func (s Step) AllowsAnyRole(roles []string) bool {
	for _, candidate := range roles {
		for _, allowed := range s.allowedRoles {
			if strings.EqualFold(candidate, allowed) {
				return true
			}
		}
	}
	return false
}

// Definition is the declared step graph for one entity type. Built once at
// bootstrap from seed data; no runtime mutation path exists.
type Definition struct {
	entityType  string
	description string
	steps       []Step
}

func New(entityType, description string, steps []Step) Definition {
	return Definition{
		entityType:  strings.TrimSpace(entityType),
		description: description,
		steps:       append([]Step(nil), steps...),
	}
}

func (d Definition) EntityType() string  { return d.entityType }
func (d Definition) Description() string { return d.description }
func (d Definition) Steps() []Step       { return append([]Step(nil), d.steps...) }

// Step finds the step for a status, matched case-insensitively.
func (d Definition) Step(status string) (Step, bool) {
	for _, s := range d.steps {
		if strings.EqualFold(s.status, status) {
			return s, true
		}
	}
	return Step{}, false
}

func cloneSet(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		n := strings.TrimSpace(v)
		if n == "" {
			continue
		}
		key := strings.ToUpper(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}
