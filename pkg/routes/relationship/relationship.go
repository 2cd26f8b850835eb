package relationship

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/internal/repositories/relationship"
	ctxmiddleware "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/graph"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
)

var validate = validator.New()

// Register registers relationship routes
func Register(g *echo.Group) {
	g.POST("", Create)
	g.GET("/entity/:kind/:id", ListForEntity)
	g.DELETE("/:id", Delete)
	g.DELETE("/entity-pair", DeleteByEndpoints)
}

// Create links two entities. Linking an already-linked pair returns the
// existing edge; a previously unlinked pair is resurrected.
func Create(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req models.CreateRelationshipRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	aKind, err := models.ParseEntityKind(req.RelationAType)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	bKind, err := models.ParseEntityKind(req.RelationBType)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	a := models.EntityRef{Kind: aKind, ID: req.RelationAID}
	b := models.EntityRef{Kind: bKind, ID: req.RelationBID}

	if a == b {
		return httperror.NewHTTPError(http.StatusBadRequest, "cannot link an entity to itself")
	}

	var createdBy *string
	if userID := ctxmiddleware.GetUserID(ctx); userID != "" {
		createdBy = &userID
	}

	ctx, repo, err := ectoinject.GetContext[*relationship.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.Create(ctx, tenantID, a, b, createdBy)
	if err != nil {
		return err
	}

	metrics.RecordRelationshipChange(tenantID, "link")

	// Mirror and announce; neither blocks the link
	if ctx, projector, err := ectoinject.GetContext[*graph.Projector](ctx); err == nil {
		_ = projector.ProjectLink(ctx, result)
	}
	if ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
		_ = emitter.EmitRelationshipCreated(ctx, result)
	}

	return c.JSON(http.StatusCreated, result)
}

// ListForEntity returns all edges touching an entity
func ListForEntity(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	kind, err := models.ParseEntityKind(c.Param("kind"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ref := models.EntityRef{Kind: kind, ID: c.Param("id")}

	ctx, repo, err := ectoinject.GetContext[*relationship.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := repo.ListForEntity(ctx, tenantID, ref)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.RelationshipListResponse{
		Items:      items,
		TotalCount: len(items),
	})
}

// Delete unlinks two entities by relationship ID
func Delete(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	relationshipID := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*relationship.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	// Get 404s before SoftDelete runs, and the edge is needed for the
	// deletion event anyway
	existing, err := repo.Get(ctx, tenantID, relationshipID)
	if err != nil {
		return err
	}

	if err := repo.SoftDelete(ctx, tenantID, relationshipID); err != nil {
		return err
	}

	metrics.RecordRelationshipChange(tenantID, "unlink")

	if ctx, projector, err := ectoinject.GetContext[*graph.Projector](ctx); err == nil {
		_ = projector.RemoveLink(ctx, tenantID, relationshipID)
	}
	if ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
		_ = emitter.EmitRelationshipDeleted(ctx, existing)
	}

	return c.NoContent(http.StatusNoContent)
}

// DeleteByEndpoints unlinks two entities by naming both endpoints,
// for callers that don't hold the edge ID.
func DeleteByEndpoints(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req models.CreateRelationshipRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	aKind, err := models.ParseEntityKind(req.RelationAType)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	bKind, err := models.ParseEntityKind(req.RelationBType)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	a := models.EntityRef{Kind: aKind, ID: req.RelationAID}
	b := models.EntityRef{Kind: bKind, ID: req.RelationBID}

	ctx, repo, err := ectoinject.GetContext[*relationship.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	deleted, err := repo.SoftDeleteByEndpoints(ctx, tenantID, a, b)
	if err != nil {
		return err
	}
	if deleted == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "entities are not linked")
	}

	metrics.RecordRelationshipChange(tenantID, "unlink")

	if ctx, projector, err := ectoinject.GetContext[*graph.Projector](ctx); err == nil {
		_ = projector.RemoveLink(ctx, tenantID, deleted.ID)
	}
	if ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
		_ = emitter.EmitRelationshipDeleted(ctx, deleted)
	}

	return c.NoContent(http.StatusNoContent)
}
