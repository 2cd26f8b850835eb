package entitycontext

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	ctxmiddleware "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/relationship"
)

// Register registers entity context routes
func Register(g *echo.Group) {
	g.GET("/:kind/:id/context", GetContext)
	g.POST("/:kind/:id/context/propagate", Propagate)
}

// GetContext builds the relationship context for an entity on demand.
// Contexts are never persisted, so there is nothing to be stale and
// nothing to 404: an unknown entity just yields an unknown-source
// context.
func GetContext(c echo.Context) error {
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

	ctx, engine, err := ectoinject.GetContext[*relationship.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get relationship engine")
	}

	rc, err := engine.ContextFor(ctx, tenantID, ref)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to build relationship context")
	}

	return c.JSON(http.StatusOK, rc)
}

// Propagate pushes context values into the entity's linked neighbors.
// Without a body the context is rebuilt from the graph first; with a
// body the caller's edited context is pushed as-is, so users can adjust
// autofilled values before confirming.
func Propagate(c echo.Context) error {
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

	ctx, engine, err := ectoinject.GetContext[*relationship.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get relationship engine")
	}

	var response *models.PropagationResponse
	if c.Request().ContentLength != 0 {
		var edited models.RelationshipContext
		if err := c.Bind(&edited); err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		response = engine.PropagateContext(ctx, tenantID, &edited)
	} else {
		response, err = engine.Propagate(ctx, tenantID, ref)
		if err != nil {
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to propagate context")
		}
	}

	if ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
		_ = emitter.EmitContextPropagated(ctx, tenantID, ref, response)
	}

	return c.JSON(http.StatusOK, response)
}
