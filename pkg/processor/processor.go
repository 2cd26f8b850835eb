// Package processor handles incoming bank statement messages. This is the
// ingestion layer: rows get deterministic IDs from (tenant, source,
// external_id), so a replayed statement never duplicates transactions.
package processor

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/clover/pkg/tracing"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
)

// StatementWriter persists ingested statement rows
type StatementWriter interface {
	BulkUpsert(ctx context.Context, tenantID string, source string, rows []models.BankStatementRow) (int, error)
}

// Processor handles statement messages from the bank feeds topic
type Processor struct {
	logger ectologger.Logger
	writer StatementWriter
}

// NewProcessor creates a new statement processor
func NewProcessor(logger ectologger.Logger, writer StatementWriter) *Processor {
	return &Processor{
		logger: logger,
		writer: writer,
	}
}

// ProcessMessage handles an incoming Kafka message
func (p *Processor) ProcessMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.ProcessMessage")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"key":    msg.Key,
		"topic":  msg.Topic,
		"offset": msg.Offset,
	})

	// Parse the statement if not already parsed
	if msg.Statement == nil {
		if err := msg.ParseStatement(); err != nil {
			log.WithError(err).Error("Failed to parse statement message")
			return nil // Skip message, don't retry
		}
	}

	tenantID := msg.GetTenantID()
	source := msg.GetSource()
	if tenantID == "" || source == "" {
		log.WithFields(map[string]any{
			"tenant_id": tenantID,
			"source":    source,
		}).Warn("Skipping statement: missing required identity fields (tenant_id, source)")
		return nil
	}

	log = log.WithFields(map[string]any{
		"tenant_id": tenantID,
		"source":    source,
		"row_count": len(msg.Statement.Rows),
	})

	if len(msg.Statement.Rows) == 0 {
		log.Debug("Statement has no rows")
		return nil
	}

	written, err := p.writer.BulkUpsert(ctx, tenantID, source, msg.Statement.Rows)
	if err != nil {
		log.WithError(err).Error("Failed to store statement rows")
		return err
	}

	metrics.StatementRowsIngested.WithLabelValues(tenantID, source).Add(float64(written))

	log.WithFields(map[string]any{
		"rows_written": written,
	}).Info("Statement ingested")

	return nil
}
