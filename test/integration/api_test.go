package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/routes"
	"github.com/Ramsey-B/clover/pkg/routes/health"
)

// newAPIServer assembles the full HTTP surface without a dependency
// container behind it. The guard paths run before any dependency
// lookup, so they are exercised here with no database at all.
func newAPIServer() *echo.Echo {
	e := echo.New()
	routes.Register(e, "clover-test", quietLogger())
	return e
}

func doRequest(e *echo.Echo, method, path, tenantID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if tenantID != "" {
		req.Header.Set(middleware.HeaderTenantID, tenantID)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Message
}

func TestMissingTenantHeaderIsRejected(t *testing.T) {
	e := newAPIServer()

	endpoints := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/receipts"},
		{http.MethodPost, "/api/v1/receipts"},
		{http.MethodGet, "/api/v1/reimbursements"},
		{http.MethodGet, "/api/v1/transactions"},
		{http.MethodGet, "/api/v1/budgets"},
		{http.MethodGet, "/api/v1/inventory"},
		{http.MethodGet, "/api/v1/minutes"},
		{http.MethodPost, "/api/v1/relationships"},
		{http.MethodGet, "/api/v1/relationships/entity/receipt/r1"},
		{http.MethodGet, "/api/v1/entities/receipt/r1/context"},
		{http.MethodPost, "/api/v1/entities/receipt/r1/context/propagate"},
		{http.MethodGet, "/api/v1/graph/neighbors/receipt/r1"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			rec := doRequest(e, ep.method, ep.path, "", "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, errorMessage(t, rec), "tenant_id is required")
		})
	}
}

func TestErrorEnvelopeCarriesRequestID(t *testing.T) {
	e := newAPIServer()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/receipts", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "req-42", resp.RequestID)

	// Without the header a request id is minted for the response.
	rec = doRequest(e, http.MethodGet, "/api/v1/receipts", "", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RequestID)
}

func TestUnknownEntityKindRejected(t *testing.T) {
	e := newAPIServer()

	paths := []string{
		"/api/v1/entities/gadget/x1/context",
		"/api/v1/graph/neighbors/gadget/x1",
		"/api/v1/graph/component/gadget/x1",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rec := doRequest(e, http.MethodGet, path, "t1", "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, errorMessage(t, rec), `unknown entity kind "gadget"`)
		})
	}

	// The legacy purchase alias parses fine; the request then fails on
	// the missing engine rather than on the kind.
	rec := doRequest(e, http.MethodGet, "/api/v1/entities/purchase/p1/context", "t1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "failed to get relationship engine")
}

func TestRelationshipGuards(t *testing.T) {
	e := newAPIServer()

	t.Run("malformed body", func(t *testing.T) {
		rec := doRequest(e, http.MethodPost, "/api/v1/relationships", "t1", "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "invalid request body")
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := doRequest(e, http.MethodPost, "/api/v1/relationships", "t1", `{"relation_a_type":"receipt"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "RelationAID")
	})

	t.Run("unknown kind", func(t *testing.T) {
		body := `{"relation_a_type":"gadget","relation_a_id":"x1","relation_b_type":"receipt","relation_b_id":"r1"}`
		rec := doRequest(e, http.MethodPost, "/api/v1/relationships", "t1", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorMessage(t, rec), `unknown entity kind "gadget"`)
	})

	t.Run("self link", func(t *testing.T) {
		body := `{"relation_a_type":"receipt","relation_a_id":"r1","relation_b_type":"receipt","relation_b_id":"r1"}`
		rec := doRequest(e, http.MethodPost, "/api/v1/relationships", "t1", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "cannot link an entity to itself")
	})

	t.Run("purchase alias folds to reimbursement", func(t *testing.T) {
		// purchase:p1 and reimbursement:p1 address the same node, so the
		// pair is rejected as a self link.
		body := `{"relation_a_type":"purchase","relation_a_id":"p1","relation_b_type":"reimbursement","relation_b_id":"p1"}`
		rec := doRequest(e, http.MethodPost, "/api/v1/relationships", "t1", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "cannot link an entity to itself")
	})
}

func TestEntityBodyValidation(t *testing.T) {
	e := newAPIServer()

	t.Run("receipt requires name and file ref", func(t *testing.T) {
		rec := doRequest(e, http.MethodPost, "/api/v1/receipts", "t1", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "Name")
		assert.Contains(t, errorMessage(t, rec), "FileRef")
	})

	t.Run("reimbursement requires amount", func(t *testing.T) {
		rec := doRequest(e, http.MethodPost, "/api/v1/reimbursements", "t1", `{"description":"snacks"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "Amount")
	})

	t.Run("transaction rejects unparseable amount", func(t *testing.T) {
		rec := doRequest(e, http.MethodPost, "/api/v1/transactions", "t1", `{"amount":"not-a-number"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "invalid request body")
	})

	t.Run("budget requires name and amount", func(t *testing.T) {
		rec := doRequest(e, http.MethodPost, "/api/v1/budgets", "t1", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "Name")
	})

	t.Run("inventory requires name", func(t *testing.T) {
		rec := doRequest(e, http.MethodPost, "/api/v1/inventory", "t1", `{"quantity":3}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "Name")
	})

	t.Run("minute requires name", func(t *testing.T) {
		rec := doRequest(e, http.MethodPost, "/api/v1/minutes", "t1", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "Name")
	})
}

func TestGraphExplorerUnavailableWithoutMirror(t *testing.T) {
	e := newAPIServer()

	t.Run("neighbors", func(t *testing.T) {
		rec := doRequest(e, http.MethodGet, "/api/v1/graph/neighbors/receipt/r1", "t1", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "graph explorer is unavailable")
	})

	t.Run("component", func(t *testing.T) {
		rec := doRequest(e, http.MethodGet, "/api/v1/graph/component/receipt/r1", "t1", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "graph explorer is unavailable")
	})

	t.Run("path", func(t *testing.T) {
		rec := doRequest(e, http.MethodGet, "/api/v1/graph/path?from=receipt:r1&to=transaction:tx1", "t1", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "graph explorer is unavailable")
	})

	// Ref validation still runs ahead of the availability check.
	t.Run("path with malformed ref", func(t *testing.T) {
		rec := doRequest(e, http.MethodGet, "/api/v1/graph/path?from=receipt:r1&to=banana", "t1", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorMessage(t, rec), `entity ref "banana" is not in kind:id form`)
	})

	t.Run("path with missing refs", func(t *testing.T) {
		rec := doRequest(e, http.MethodGet, "/api/v1/graph/path", "t1", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealthEndpointsWithoutDependencies(t *testing.T) {
	e := echo.New()
	checker := health.NewChecker(nil, nil, nil, "test")
	checker.RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status health.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "test", status.Version)
	require.Contains(t, status.Checks, "database")
	assert.Equal(t, "database not configured", status.Checks["database"].Message)
	assert.NotContains(t, status.Checks, "redis")
	assert.NotContains(t, status.Checks, "graph")

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	checker.SetReady(true)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	checker.SetReady(false)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
