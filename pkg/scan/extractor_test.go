package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDefaultProfile(t *testing.T) {
	e := NewExtractor()

	doc := map[string]any{
		"total_amount":  42.5,
		"purchase_date": "2025-03-14",
		"store_name":    "Garden Depot",
		"currency":      "USD",
		"items": []any{
			map[string]any{"name": "potting soil", "price": 12.5},
			map[string]any{"name": "trowel", "price": 30.0},
		},
	}

	req, err := e.Extract("default", doc)
	require.NoError(t, err)

	assert.Equal(t, "default", req.Provider)
	require.NotNil(t, req.TotalAmount)
	assert.Equal(t, "42.5", *req.TotalAmount)
	require.NotNil(t, req.PurchaseDate)
	assert.Equal(t, "2025-03-14", *req.PurchaseDate)
	require.NotNil(t, req.StoreName)
	assert.Equal(t, "Garden Depot", *req.StoreName)
	require.NotNil(t, req.Currency)
	assert.Equal(t, "USD", *req.Currency)
	require.NotNil(t, req.Items)
	assert.JSONEq(t, `[{"name":"potting soil","price":12.5},{"name":"trowel","price":30}]`, *req.Items)
}

func TestExtractWholeAmountsDropDecimalNoise(t *testing.T) {
	e := NewExtractor()

	req, err := e.Extract("default", map[string]any{"total_amount": 30.0})
	require.NoError(t, err)

	require.NotNil(t, req.TotalAmount)
	assert.Equal(t, "30", *req.TotalAmount)
}

func TestExtractMissingFieldsStayNil(t *testing.T) {
	e := NewExtractor()

	req, err := e.Extract("default", map[string]any{"store_name": "Corner Market"})
	require.NoError(t, err)

	require.NotNil(t, req.StoreName)
	assert.Equal(t, "Corner Market", *req.StoreName)
	assert.Nil(t, req.TotalAmount)
	assert.Nil(t, req.PurchaseDate)
	assert.Nil(t, req.Currency)
	assert.Nil(t, req.Items)
}

func TestExtractCustomProfileAndFallback(t *testing.T) {
	e := NewExtractor()
	e.Register(Profile{
		Provider:     "textract",
		TotalAmount:  "summary.total.text",
		PurchaseDate: "summary.date.text",
		StoreName:    "vendor.name",
	})

	doc := map[string]any{
		"summary": map[string]any{
			"total": map[string]any{"text": "18.99", "confidence": 0.93},
			"date":  map[string]any{"text": "03/14/2025"},
		},
		"vendor": map[string]any{"name": "Hardware Hut"},
	}

	req, err := e.Extract("textract", doc)
	require.NoError(t, err)

	require.NotNil(t, req.TotalAmount)
	assert.Equal(t, "18.99", *req.TotalAmount)
	require.NotNil(t, req.PurchaseDate)
	assert.Equal(t, "03/14/2025", *req.PurchaseDate)
	require.NotNil(t, req.StoreName)
	assert.Equal(t, "Hardware Hut", *req.StoreName)
	// No items expression registered for this profile
	assert.Nil(t, req.Items)

	// Unknown providers fall back to the default profile
	fallback := e.ProfileFor("mystery")
	assert.Equal(t, "default", fallback.Provider)
}

func TestExtractItemsStringPassesThrough(t *testing.T) {
	e := NewExtractor()

	raw := `[{"name":"mulch"}]`
	req, err := e.Extract("default", map[string]any{"items": raw})
	require.NoError(t, err)

	require.NotNil(t, req.Items)
	assert.Equal(t, raw, *req.Items)
}

func TestExtractInvalidExpression(t *testing.T) {
	e := NewExtractor()
	e.Register(Profile{
		Provider:    "broken",
		TotalAmount: "][",
	})

	_, err := e.Extract("broken", map[string]any{"total_amount": 1.0})
	assert.Error(t, err)
}
