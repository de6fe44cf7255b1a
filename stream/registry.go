package stream

import "github.com/jacentio/grid/grid"

// Relationship declares that an association table holds rows keyed by the
// id of an entity table. Removing an entity removes its association.
type Relationship struct {
	// EntityTable is the grid table of the owning entity (e.g., "Account").
	EntityTable string

	// AssociationTable is the grid table of the association (e.g., "Account_Orders").
	AssociationTable string

	// Columns are the association key columns holding the entity id
	// (e.g., ["owner_id"]). With more than one column the id must be a
	// map carrying one value per column.
	Columns []string
}

// AssociationKey returns the key of the association owned by entity id.
func (r Relationship) AssociationKey(id any) grid.AssociationKey {
	values := make([]any, len(r.Columns))
	if len(r.Columns) == 1 {
		values[0] = id
	} else if m, ok := id.(map[string]any); ok {
		for i, column := range r.Columns {
			values[i] = m[column]
		}
	}
	return grid.NewAssociationKey(r.AssociationTable, r.Columns, values)
}

// Registry holds all known relationships, indexed by entity table.
type Registry struct {
	relationships []Relationship
	byEntity      map[string][]Relationship
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		relationships: []Relationship{},
		byEntity:      make(map[string][]Relationship),
	}
}

// Register adds a relationship to the registry.
func (r *Registry) Register(rel Relationship) {
	rel.Columns = append([]string(nil), rel.Columns...)
	r.relationships = append(r.relationships, rel)
	r.byEntity[rel.EntityTable] = append(r.byEntity[rel.EntityTable], rel)
}

// RelationshipsOf returns the relationships owned by an entity table.
func (r *Registry) RelationshipsOf(entityTable string) []Relationship {
	return r.byEntity[entityTable]
}

// AllRelationships returns all registered relationships.
func (r *Registry) AllRelationships() []Relationship {
	return r.relationships
}

// HasRelationships reports whether the entity table owns any association.
func (r *Registry) HasRelationships(entityTable string) bool {
	return len(r.byEntity[entityTable]) > 0
}
