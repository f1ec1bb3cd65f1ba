package definition

import "context"

// Registry holds the definitions loaded at bootstrap, keyed by entity type.
// Read-only after construction, safe for concurrent use.
type Registry struct {
	byEntityType map[string]Definition
}

func NewRegistry(definitions []Definition) *Registry {
	byType := make(map[string]Definition, len(definitions))
	for _, d := range definitions {
		byType[d.EntityType()] = d
	}
	return &Registry{byEntityType: byType}
}

func (r *Registry) Get(entityType string) (Definition, bool) {
	d, ok := r.byEntityType[entityType]
	return d, ok
}

func (r *Registry) EntityTypes() []string {
	out := make([]string, 0, len(r.byEntityType))
	for k := range r.byEntityType {
		out = append(out, k)
	}
	return out
}

// Repository loads the persisted definitions the registry is built from.
type Repository interface {
	GetAll(ctx context.Context) ([]Definition, error)
}
