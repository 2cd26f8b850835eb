package models

import "time"

// EntityRelationship is an undirected link between two entities, stored
// directionally as the pair (A, B). The same logical edge may be queried
// from either endpoint.
type EntityRelationship struct {
	ID            string     `json:"id" db:"id"`
	TenantID      string     `json:"tenant_id" db:"tenant_id"`
	RelationAType EntityKind `json:"relation_a_type" db:"relation_a_type"`
	RelationAID   string     `json:"relation_a_id" db:"relation_a_id"`
	RelationBType EntityKind `json:"relation_b_type" db:"relation_b_type"`
	RelationBID   string     `json:"relation_b_id" db:"relation_b_id"`
	CreatedBy     *string    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Other returns the endpoint of the edge that is not the given entity.
// The second return is false when the entity is not an endpoint at all.
func (e *EntityRelationship) Other(ref EntityRef) (EntityRef, bool) {
	if e.RelationAType == ref.Kind && e.RelationAID == ref.ID {
		return EntityRef{Kind: e.RelationBType, ID: e.RelationBID}, true
	}
	if e.RelationBType == ref.Kind && e.RelationBID == ref.ID {
		return EntityRef{Kind: e.RelationAType, ID: e.RelationAID}, true
	}
	return EntityRef{}, false
}

// CreateRelationshipRequest is the request for linking two entities
type CreateRelationshipRequest struct {
	RelationAType string `json:"relation_a_type" validate:"required"`
	RelationAID   string `json:"relation_a_id" validate:"required"`
	RelationBType string `json:"relation_b_type" validate:"required"`
	RelationBID   string `json:"relation_b_id" validate:"required"`
}

// RelationshipListResponse is the response for listing an entity's edges
type RelationshipListResponse struct {
	Items      []EntityRelationship `json:"items"`
	TotalCount int                  `json:"total_count"`
}
