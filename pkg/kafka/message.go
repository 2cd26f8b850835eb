package kafka

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Parsed content
	Statement *models.BankStatement
}

// ParseStatement parses the message value as a bank statement
func (m *IncomingMessage) ParseStatement() error {
	var stmt models.BankStatement
	if err := json.Unmarshal(m.Value, &stmt); err != nil {
		return err
	}
	m.Statement = &stmt
	return nil
}

// GetTenantID returns the tenant ID from the parsed statement
func (m *IncomingMessage) GetTenantID() string {
	if m.Statement != nil && m.Statement.TenantID != "" {
		return m.Statement.TenantID
	}
	// Fallback to header
	return m.Headers["tenant_id"]
}

// GetSource returns the statement source (bank feed identifier)
func (m *IncomingMessage) GetSource() string {
	if m.Statement != nil && m.Statement.Source != "" {
		return m.Statement.Source
	}
	return m.Headers["source"]
}
