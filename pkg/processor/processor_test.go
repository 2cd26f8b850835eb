package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
)

type fakeWriter struct {
	calls  []fakeWriteCall
	err    error
	result int
}

type fakeWriteCall struct {
	tenantID string
	source   string
	rows     []models.BankStatementRow
}

func (w *fakeWriter) BulkUpsert(_ context.Context, tenantID string, source string, rows []models.BankStatementRow) (int, error) {
	w.calls = append(w.calls, fakeWriteCall{tenantID: tenantID, source: source, rows: rows})
	if w.err != nil {
		return 0, w.err
	}
	return w.result, nil
}

func newTestProcessor(writer *fakeWriter) *Processor {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewProcessor(logger, writer)
}

func TestProcessMessageIngestsStatement(t *testing.T) {
	writer := &fakeWriter{result: 2}
	p := newTestProcessor(writer)

	msg := &kafka.IncomingMessage{
		Value: []byte(`{
			"tenant_id": "t1",
			"source": "chase",
			"rows": [
				{"amount": "-12.50", "description": "Hardware store", "external_id": "row-1"},
				{"amount": "100.00", "description": "Deposit", "external_id": "row-2"}
			]
		}`),
		Headers: map[string]string{},
	}

	err := p.ProcessMessage(context.Background(), msg)
	require.NoError(t, err)

	require.Len(t, writer.calls, 1)
	call := writer.calls[0]
	assert.Equal(t, "t1", call.tenantID)
	assert.Equal(t, "chase", call.source)
	require.Len(t, call.rows, 2)
	assert.True(t, call.rows[0].Amount.Equal(decimal.RequireFromString("-12.50")))
}

func TestProcessMessageSkipsMissingTenant(t *testing.T) {
	writer := &fakeWriter{}
	p := newTestProcessor(writer)

	msg := &kafka.IncomingMessage{
		Value:   []byte(`{"source": "chase", "rows": [{"amount": "1.00"}]}`),
		Headers: map[string]string{},
	}

	// Skipped, not retried
	err := p.ProcessMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.Empty(t, writer.calls)
}

func TestProcessMessageSkipsUnparseablePayload(t *testing.T) {
	writer := &fakeWriter{}
	p := newTestProcessor(writer)

	msg := &kafka.IncomingMessage{
		Value:   []byte(`not json`),
		Headers: map[string]string{},
	}

	err := p.ProcessMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.Empty(t, writer.calls)
}

func TestProcessMessageSkipsEmptyStatement(t *testing.T) {
	writer := &fakeWriter{}
	p := newTestProcessor(writer)

	msg := &kafka.IncomingMessage{
		Value:   []byte(`{"tenant_id": "t1", "source": "chase", "rows": []}`),
		Headers: map[string]string{},
	}

	err := p.ProcessMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.Empty(t, writer.calls)
}

func TestProcessMessageReturnsWriteErrors(t *testing.T) {
	writer := &fakeWriter{err: errors.New("connection refused")}
	p := newTestProcessor(writer)

	msg := &kafka.IncomingMessage{
		Value:   []byte(`{"tenant_id": "t1", "source": "chase", "rows": [{"amount": "1.00"}]}`),
		Headers: map[string]string{},
	}

	// Write failures bubble up so the consumer does not commit the offset
	err := p.ProcessMessage(context.Background(), msg)
	require.Error(t, err)
}

func TestProcessMessageTenantFromHeader(t *testing.T) {
	writer := &fakeWriter{result: 1}
	p := newTestProcessor(writer)

	msg := &kafka.IncomingMessage{
		Value:   []byte(`{"source": "chase", "rows": [{"amount": "1.00"}]}`),
		Headers: map[string]string{"tenant_id": "t9"},
	}

	err := p.ProcessMessage(context.Background(), msg)
	require.NoError(t, err)

	require.Len(t, writer.calls, 1)
	assert.Equal(t, "t9", writer.calls[0].tenantID)
}
