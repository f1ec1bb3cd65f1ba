package persistence

import (
	"context"

	"github.com/iota-uz/timekeeper/modules/workflow/domain/definition"
	"github.com/iota-uz/timekeeper/pkg/composables"
)

type PgDefinitionRepository struct{}

func NewDefinitionRepository() definition.Repository {
	return &PgDefinitionRepository{}
}

// GetAll loads every definition with its steps. Called once at bootstrap to
// build the in-memory registry; definitions are not tenant-scoped.
func (r *PgDefinitionRepository) GetAll(ctx context.Context) ([]definition.Definition, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT d.id, d.entity_type, d.description,
		       s.status, s.allowed_transitions, s.allowed_roles
		FROM workflow_definitions d
		JOIN workflow_steps s ON s.workflow_definition_id = d.id
		ORDER BY d.entity_type, s.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type defRow struct {
		entityType  string
		description string
		steps       []definition.Step
	}

	var order []string
	byType := make(map[string]*defRow)

	for rows.Next() {
		var (
			id                 uint
			entityType         string
			description        string
			stepStatus         string
			allowedTransitions []string
			allowedRoles       []string
		)
		if err := rows.Scan(&id, &entityType, &description, &stepStatus, &allowedTransitions, &allowedRoles); err != nil {
			return nil, err
		}
		d, ok := byType[entityType]
		if !ok {
			d = &defRow{entityType: entityType, description: description}
			byType[entityType] = d
			order = append(order, entityType)
		}
		d.steps = append(d.steps, definition.NewStep(stepStatus, allowedTransitions, allowedRoles))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	definitions := make([]definition.Definition, 0, len(order))
	for _, entityType := range order {
		d := byType[entityType]
		definitions = append(definitions, definition.New(d.entityType, d.description, d.steps))
	}
	return definitions, nil
}
