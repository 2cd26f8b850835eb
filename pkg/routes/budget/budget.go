package budget

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/internal/repositories/budget"
	"github.com/Ramsey-B/clover/internal/repositories/relationship"
	ctxmiddleware "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/graph"
	"github.com/Ramsey-B/clover/pkg/models"
)

var validate = validator.New()

// Register registers budget routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("", Create)
	g.GET("/:id", Get)
	g.PUT("/:id", Update)
	g.DELETE("/:id", Delete)
}

// List returns the tenant's budgets
func List(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	ctx, repo, err := ectoinject.GetContext[*budget.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, totalCount, err := repo.List(ctx, tenantID, page, pageSize)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list budgets")
	}

	return c.JSON(http.StatusOK, models.BudgetListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Create creates a new budget
func Create(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req models.CreateBudgetRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var createdBy *string
	if userID := ctxmiddleware.GetUserID(ctx); userID != "" {
		createdBy = &userID
	}

	ctx, repo, err := ectoinject.GetContext[*budget.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.Create(ctx, tenantID, req, createdBy)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create budget")
	}

	if ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
		_ = emitter.EmitEntityCreated(ctx, tenantID, models.EntityKindBudget, result.ID, result)
	}

	return c.JSON(http.StatusCreated, result)
}

// Get returns a single budget by ID
func Get(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	budgetID := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*budget.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.GetByID(ctx, tenantID, budgetID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get budget")
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "budget not found")
	}

	return c.JSON(http.StatusOK, result)
}

// Update updates a budget
func Update(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	budgetID := c.Param("id")

	var req models.UpdateBudgetRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, repo, err := ectoinject.GetContext[*budget.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.Update(ctx, tenantID, budgetID, req)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update budget")
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "budget not found")
	}

	if ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
		_ = emitter.EmitEntityUpdated(ctx, tenantID, models.EntityKindBudget, result.ID, result)
	}

	return c.JSON(http.StatusOK, result)
}

// Delete soft deletes a budget and unlinks its edges
func Delete(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	budgetID := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*budget.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	existing, err := repo.GetByID(ctx, tenantID, budgetID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get budget")
	}
	if existing == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "budget not found")
	}

	if err := repo.Delete(ctx, tenantID, budgetID); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete budget")
	}

	ref := models.EntityRef{Kind: models.EntityKindBudget, ID: budgetID}
	if ctx, relRepo, err := ectoinject.GetContext[*relationship.Repository](ctx); err == nil {
		_, _ = relRepo.SoftDeleteForEntity(ctx, tenantID, ref)
	}
	if ctx, projector, err := ectoinject.GetContext[*graph.Projector](ctx); err == nil {
		_ = projector.RemoveEntity(ctx, tenantID, models.EntityKindBudget, budgetID)
	}
	if ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
		_ = emitter.EmitEntityDeleted(ctx, tenantID, models.EntityKindBudget, budgetID)
	}

	return c.NoContent(http.StatusNoContent)
}
