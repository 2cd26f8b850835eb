package receipt

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/internal/repositories/receipt"
	"github.com/Ramsey-B/clover/internal/repositories/receiptcontent"
	"github.com/Ramsey-B/clover/internal/repositories/relationship"
	ctxmiddleware "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/graph"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/scan"
)

var validate = validator.New()

// Register registers receipt routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("", Create)
	g.GET("/:id", Get)
	g.PUT("/:id", Update)
	g.DELETE("/:id", Delete)
	g.GET("/:id/content", GetContent)
	g.POST("/:id/scan", Scan)
}

// List returns the tenant's receipts
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

	ctx, repo, err := ectoinject.GetContext[*receipt.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, totalCount, err := repo.List(ctx, tenantID, page, pageSize)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list receipts")
	}

	return c.JSON(http.StatusOK, models.ReceiptListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Create uploads a new receipt record. The scan status starts pending;
// OCR content only appears after a scan job runs.
func Create(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req models.CreateReceiptRequest
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

	ctx, repo, err := ectoinject.GetContext[*receipt.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.Create(ctx, tenantID, req, createdBy)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create receipt")
	}

	if ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
		_ = emitter.EmitEntityCreated(ctx, tenantID, models.EntityKindReceipt, result.ID, result)
	}

	return c.JSON(http.StatusCreated, models.ReceiptResponse{Receipt: *result})
}

// Get returns a single receipt by ID
func Get(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	receiptID := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*receipt.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.GetByID(ctx, tenantID, receiptID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get receipt")
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "receipt not found")
	}

	return c.JSON(http.StatusOK, models.ReceiptResponse{Receipt: *result})
}

// Update updates receipt metadata. OCR content is owned by the scan
// pipeline and never updated through this path.
func Update(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	receiptID := c.Param("id")

	var req models.UpdateReceiptRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, repo, err := ectoinject.GetContext[*receipt.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.Update(ctx, tenantID, receiptID, req)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update receipt")
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "receipt not found")
	}

	if ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
		_ = emitter.EmitEntityUpdated(ctx, tenantID, models.EntityKindReceipt, result.ID, result)
	}

	return c.JSON(http.StatusOK, models.ReceiptResponse{Receipt: *result})
}

// Delete soft deletes a receipt and unlinks its edges
func Delete(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	receiptID := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*receipt.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	existing, err := repo.GetByID(ctx, tenantID, receiptID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get receipt")
	}
	if existing == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "receipt not found")
	}

	if err := repo.Delete(ctx, tenantID, receiptID); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete receipt")
	}

	// Unlink edges and clean the mirror. Context hydration drops
	// dangling edges anyway, so failures here don't block the delete.
	ref := models.EntityRef{Kind: models.EntityKindReceipt, ID: receiptID}
	if ctx, relRepo, err := ectoinject.GetContext[*relationship.Repository](ctx); err == nil {
		_, _ = relRepo.SoftDeleteForEntity(ctx, tenantID, ref)
	}
	if ctx, projector, err := ectoinject.GetContext[*graph.Projector](ctx); err == nil {
		_ = projector.RemoveEntity(ctx, tenantID, models.EntityKindReceipt, receiptID)
	}
	if ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
		_ = emitter.EmitEntityDeleted(ctx, tenantID, models.EntityKindReceipt, receiptID)
	}

	return c.NoContent(http.StatusNoContent)
}

// GetContent returns the OCR content captured for a receipt
func GetContent(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	receiptID := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*receipt.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	existing, err := repo.GetByID(ctx, tenantID, receiptID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get receipt")
	}
	if existing == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "receipt not found")
	}

	ctx, contentRepo, err := ectoinject.GetContext[*receiptcontent.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	content, err := contentRepo.GetByReceiptID(ctx, tenantID, receiptID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get receipt content")
	}
	if content == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "receipt has no scanned content")
	}

	return c.JSON(http.StatusOK, content)
}

// Scan enqueues an OCR scan job for a receipt
func Scan(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	receiptID := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*receipt.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	existing, err := repo.GetByID(ctx, tenantID, receiptID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get receipt")
	}
	if existing == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "receipt not found")
	}

	ctx, publisher, err := ectoinject.GetContext[*scan.Publisher](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "scan queue unavailable")
	}

	job := scan.ScanJob{
		TenantID:    tenantID,
		ReceiptID:   receiptID,
		RequestedBy: ctxmiddleware.GetUserID(ctx),
	}

	messageID, err := publisher.Publish(ctx, job)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to enqueue scan")
	}

	if ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
		_ = emitter.EmitReceiptScanQueued(ctx, tenantID, receiptID)
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"message_id": messageID,
		"receipt_id": receiptID,
		"status":     "queued",
	})
}
