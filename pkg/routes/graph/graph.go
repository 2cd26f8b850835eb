package graph

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	ctxmiddleware "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/graph"
	"github.com/Ramsey-B/clover/pkg/models"
)

// Register registers graph explorer routes. These read the graph
// mirror, not Postgres, so they answer multi-hop questions the
// relationship engine never asks.
func Register(g *echo.Group) {
	g.GET("/neighbors/:kind/:id", Neighbors)
	g.GET("/component/:kind/:id", Component)
	g.GET("/path", Path)
}

// queryService resolves the graph query service. The mirror is an
// optional dependency; deployments without one get a 503 here while
// the rest of the API keeps working.
func queryService(c echo.Context) (*graph.QueryService, error) {
	ctx := c.Request().Context()
	_, svc, err := ectoinject.GetContext[*graph.QueryService](ctx)
	if err != nil || svc == nil {
		return nil, httperror.NewHTTPError(http.StatusServiceUnavailable, "graph explorer is unavailable")
	}
	return svc, nil
}

// Neighbors returns the entities within N hops of an entity
func Neighbors(c echo.Context) error {
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

	svc, err := queryService(c)
	if err != nil {
		return err
	}

	hops := 1
	if c.QueryParam("hops") != "" {
		var parsed int
		if err := echo.QueryParamsBinder(c).Int("hops", &parsed).BindError(); err == nil && parsed > 0 {
			hops = parsed
		}
	}

	result, err := svc.Neighbors(ctx, tenantID, ref, hops)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to query neighbors")
	}

	return c.JSON(http.StatusOK, result)
}

// Component returns the connected component around an entity, bounded
// by the traversal depth cap.
func Component(c echo.Context) error {
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

	svc, err := queryService(c)
	if err != nil {
		return err
	}

	depth := graph.MaxTraversalDepth
	if c.QueryParam("depth") != "" {
		var parsed int
		if err := echo.QueryParamsBinder(c).Int("depth", &parsed).BindError(); err == nil && parsed > 0 {
			depth = parsed
		}
	}

	result, err := svc.Component(ctx, tenantID, ref, depth)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to query component")
	}

	return c.JSON(http.StatusOK, result)
}

// Path returns the shortest path between two entities, addressed in
// "kind:id" form.
func Path(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	from, err := models.ParseEntityRef(c.QueryParam("from"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	to, err := models.ParseEntityRef(c.QueryParam("to"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	svc, err := queryService(c)
	if err != nil {
		return err
	}

	maxHops := graph.MaxTraversalDepth
	if c.QueryParam("max_hops") != "" {
		var parsed int
		if err := echo.QueryParamsBinder(c).Int("max_hops", &parsed).BindError(); err == nil && parsed > 0 {
			maxHops = parsed
		}
	}

	result, err := svc.Path(ctx, tenantID, from, to, maxHops)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to query path")
	}

	return c.JSON(http.StatusOK, result)
}
