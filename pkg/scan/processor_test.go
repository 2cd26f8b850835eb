package scan

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/redis"
)

func newTestScanProcessor() *Processor {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewProcessor(nil, nil, nil, nil, nil, nil, nil, ProcessorConfig{}, logger)
}

func TestDefaultProcessorConfig(t *testing.T) {
	cfg := DefaultProcessorConfig()

	assert.Equal(t, "receipt-scans", cfg.Stream)
	assert.Equal(t, "clover-scan-workers", cfg.ConsumerGroup)
	assert.NotEmpty(t, cfg.ConsumerName)
	assert.Equal(t, int64(DefaultBatchSize), cfg.BatchSize)
	assert.Equal(t, DefaultLockTTL, cfg.LockTTL)
	assert.Equal(t, 1, cfg.WorkerCount)
}

func TestNewProcessorAppliesDefaults(t *testing.T) {
	p := newTestScanProcessor()

	assert.Equal(t, int64(DefaultBatchSize), p.config.BatchSize)
	assert.Equal(t, DefaultBlockTimeout, p.config.BlockTimeout)
	assert.Equal(t, DefaultLockTTL, p.config.LockTTL)
	assert.Equal(t, 1, p.config.WorkerCount)
	assert.Equal(t, "unconfigured", p.provider.Name())
	assert.NotNil(t, p.extractor)
	assert.False(t, p.IsRunning())
}

func TestParseScanJob(t *testing.T) {
	p := newTestScanProcessor()

	job := &redis.JobMessage{
		ID:       "job-1",
		TenantID: "tenant-1",
		Type:     JobTypeReceiptScan,
		Payload: map[string]interface{}{
			"tenant_id":    "tenant-1",
			"receipt_id":   "receipt-1",
			"requested_by": "member-7",
		},
	}

	scanJob, err := p.parseScanJob(job)
	require.NoError(t, err)

	assert.Equal(t, "tenant-1", scanJob.TenantID)
	assert.Equal(t, "receipt-1", scanJob.ReceiptID)
	assert.Equal(t, "member-7", scanJob.RequestedBy)
}

func TestParseScanJobRejectsUnknownType(t *testing.T) {
	p := newTestScanProcessor()

	_, err := p.parseScanJob(&redis.JobMessage{
		Type:    "plan_execution",
		Payload: map[string]interface{}{"tenant_id": "t1", "receipt_id": "r1"},
	})

	assert.True(t, errors.Is(err, ErrInvalidScanJob))
}

func TestParseScanJobRejectsMissingIdentity(t *testing.T) {
	p := newTestScanProcessor()

	_, err := p.parseScanJob(&redis.JobMessage{
		Type:    JobTypeReceiptScan,
		Payload: map[string]interface{}{"tenant_id": "t1"},
	})

	assert.True(t, errors.Is(err, ErrInvalidScanJob))
}

func TestParseJobMessageRoundTrip(t *testing.T) {
	p := newTestScanProcessor()

	original := redis.JobMessage{
		ID:        "job-9",
		TenantID:  "tenant-1",
		Type:      JobTypeReceiptScan,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Payload: map[string]interface{}{
			"tenant_id":  "tenant-1",
			"receipt_id": "receipt-9",
		},
	}

	// Consume hands parseJobMessage the decoded "data" document
	raw, err := json.Marshal(original)
	require.NoError(t, err)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))

	job, err := p.parseJobMessage(redis.StreamMessage{ID: "1-0", Stream: "receipt-scans", Payload: payload})
	require.NoError(t, err)

	assert.Equal(t, original.ID, job.ID)
	assert.Equal(t, original.TenantID, job.TenantID)
	assert.Equal(t, original.Type, job.Type)
	assert.Equal(t, "receipt-9", job.Payload["receipt_id"])
}
