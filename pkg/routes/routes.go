// Package routes assembles the service's HTTP surface: shared
// middleware plus every resource group under /api/v1.
package routes

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/routes/budget"
	"github.com/Ramsey-B/clover/pkg/routes/entitycontext"
	"github.com/Ramsey-B/clover/pkg/routes/graph"
	"github.com/Ramsey-B/clover/pkg/routes/inventory"
	"github.com/Ramsey-B/clover/pkg/routes/minute"
	"github.com/Ramsey-B/clover/pkg/routes/receipt"
	"github.com/Ramsey-B/clover/pkg/routes/reimbursement"
	"github.com/Ramsey-B/clover/pkg/routes/relationship"
	"github.com/Ramsey-B/clover/pkg/routes/transaction"
)

// Register wires shared middleware and mounts every resource group.
// Health endpoints stay with their checker and are registered by the
// caller alongside this.
func Register(e *echo.Echo, serviceName string, logger ectologger.Logger) {
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(otelecho.Middleware(serviceName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	api := e.Group("/api/v1")
	receipt.Register(api.Group("/receipts"))
	reimbursement.Register(api.Group("/reimbursements"))
	transaction.Register(api.Group("/transactions"))
	budget.Register(api.Group("/budgets"))
	inventory.Register(api.Group("/inventory"))
	minute.Register(api.Group("/minutes"))
	relationship.Register(api.Group("/relationships"))
	entitycontext.Register(api.Group("/entities"))
	graph.Register(api.Group("/graph"))

	metrics.RegisterRoutes(e)
}
