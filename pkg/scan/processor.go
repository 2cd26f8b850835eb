package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var (
	// ErrProcessorStopped is returned when the processor is stopped
	ErrProcessorStopped = errors.New("processor stopped")

	// ErrInvalidScanJob is returned when a scan job message is invalid
	ErrInvalidScanJob = errors.New("invalid scan job")
)

const (
	// DefaultBatchSize is the default number of messages to consume at once
	DefaultBatchSize = 10

	// DefaultBlockTimeout is how long to block waiting for messages
	DefaultBlockTimeout = 5 * time.Second

	// DefaultMaxRetries is how many times a crashed job is reclaimed
	// before it is dropped
	DefaultMaxRetries = 3

	// DefaultClaimInterval is how often to claim stale pending messages
	DefaultClaimInterval = 30 * time.Second

	// DefaultClaimMinIdle is the minimum idle time before claiming a message
	DefaultClaimMinIdle = 60 * time.Second

	// DefaultLockTTL is how long the per-receipt scan lock is held
	DefaultLockTTL = 2 * time.Minute

	// JobTypeReceiptScan is the job type for receipt OCR scans
	JobTypeReceiptScan = "receipt_scan"
)

// ScanJob is the payload queued when a receipt scan is requested
type ScanJob struct {
	TenantID    string `json:"tenant_id"`
	ReceiptID   string `json:"receipt_id"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// ReceiptStore is the receipt access the scan pipeline needs
type ReceiptStore interface {
	GetByID(ctx context.Context, tenantID string, id string) (*models.Receipt, error)
	UpdateScanStatus(ctx context.Context, tenantID string, id string, status string) error
}

// ContentStore persists extracted receipt content
type ContentStore interface {
	Upsert(ctx context.Context, tenantID string, receiptID string, req models.UpsertReceiptContentRequest) (*models.ReceiptContent, error)
}

// Notifier announces finished scans. Nil disables emission.
type Notifier interface {
	EmitReceiptScanned(ctx context.Context, tenantID string, receiptID string, scanStatus string, provider string) error
}

// ProcessorConfig holds configuration for the scan processor
type ProcessorConfig struct {
	// Stream name for the scan job queue
	Stream string

	// Consumer group name
	ConsumerGroup string

	// Consumer name (unique per instance)
	ConsumerName string

	// Number of messages to fetch per batch
	BatchSize int64

	// How long to block waiting for new messages
	BlockTimeout time.Duration

	// How many times a crashed job is reclaimed before being dropped
	MaxRetries int

	// How often to check for and claim stale pending messages
	ClaimInterval time.Duration

	// Minimum idle time before claiming a pending message
	ClaimMinIdle time.Duration

	// Per-receipt scan lock TTL
	LockTTL time.Duration

	// Number of worker goroutines
	WorkerCount int
}

// DefaultProcessorConfig returns the default processor configuration
func DefaultProcessorConfig() ProcessorConfig {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = uuid.New().String()[:8]
	}

	return ProcessorConfig{
		Stream:        "receipt-scans",
		ConsumerGroup: "clover-scan-workers",
		ConsumerName:  hostname,
		BatchSize:     DefaultBatchSize,
		BlockTimeout:  DefaultBlockTimeout,
		MaxRetries:    DefaultMaxRetries,
		ClaimInterval: DefaultClaimInterval,
		ClaimMinIdle:  DefaultClaimMinIdle,
		LockTTL:       DefaultLockTTL,
		WorkerCount:   1,
	}
}

// JobResult holds the result of processing a scan job
type JobResult struct {
	JobID     string
	MessageID string
	Success   bool
	Status    string
	Error     error
	Duration  time.Duration
}

// Processor consumes scan jobs from a Redis Streams queue
type Processor struct {
	streams   *redis.Streams
	locker    *redis.Locker
	provider  Provider
	extractor *Extractor
	receipts  ReceiptStore
	contents  ContentStore
	notifier  Notifier
	config    ProcessorConfig
	logger    ectologger.Logger

	// Channels for coordination
	stopCh   chan struct{}
	stoppedC chan struct{}
	jobsCh   chan jobItem

	// State
	running bool
	mu      sync.RWMutex
}

type jobItem struct {
	message redis.StreamMessage
	job     *redis.JobMessage
}

// NewProcessor creates a new scan processor
func NewProcessor(
	streams *redis.Streams,
	locker *redis.Locker,
	provider Provider,
	extractor *Extractor,
	receipts ReceiptStore,
	contents ContentStore,
	notifier Notifier,
	config ProcessorConfig,
	logger ectologger.Logger,
) *Processor {
	// Apply defaults
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.BlockTimeout <= 0 {
		config.BlockTimeout = DefaultBlockTimeout
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.ClaimInterval <= 0 {
		config.ClaimInterval = DefaultClaimInterval
	}
	if config.ClaimMinIdle <= 0 {
		config.ClaimMinIdle = DefaultClaimMinIdle
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if provider == nil {
		provider = UnconfiguredProvider{}
	}
	if extractor == nil {
		extractor = NewExtractor()
	}

	return &Processor{
		streams:   streams,
		locker:    locker,
		provider:  provider,
		extractor: extractor,
		receipts:  receipts,
		contents:  contents,
		notifier:  notifier,
		config:    config,
		logger:    logger,
		stopCh:    make(chan struct{}),
		stoppedC:  make(chan struct{}),
		jobsCh:    make(chan jobItem, config.BatchSize*2),
	}
}

// Start starts the processor
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("processor already running")
	}
	p.running = true
	p.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "scan.Processor.Start")
	defer span.End()

	p.logger.WithContext(ctx).Infof("Starting scan processor: stream=%s group=%s consumer=%s workers=%d",
		p.config.Stream, p.config.ConsumerGroup, p.config.ConsumerName, p.config.WorkerCount)

	// Create consumer group if it doesn't exist
	if err := p.streams.CreateConsumerGroup(ctx, p.config.Stream, p.config.ConsumerGroup); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to create consumer group")
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < p.config.WorkerCount; i++ {
		wg.Add(1)
		go p.worker(ctx, &wg, i)
	}

	// Start consumer loop
	wg.Add(1)
	go p.consumeLoop(ctx, &wg)

	// Start claimer for stale messages
	wg.Add(1)
	go p.claimLoop(ctx, &wg)

	// Wait for stop signal
	go func() {
		<-p.stopCh
		close(p.jobsCh)
		wg.Wait()
		close(p.stoppedC)
	}()

	p.logger.WithContext(ctx).Info("Scan processor started")
	return nil
}

// Stop stops the processor gracefully
func (p *Processor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	p.logger.WithContext(ctx).Info("Stopping scan processor...")

	close(p.stopCh)

	select {
	case <-p.stoppedC:
		p.logger.WithContext(ctx).Info("Scan processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WithContext(ctx).Warn("Scan processor shutdown timed out")
		return ctx.Err()
	}

	return nil
}

// IsRunning returns whether the processor is running
func (p *Processor) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// consumeLoop continuously consumes messages from the stream
func (p *Processor) consumeLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	p.logger.WithContext(ctx).Debug("Consumer loop started")

	for {
		select {
		case <-p.stopCh:
			p.logger.WithContext(ctx).Debug("Consumer loop stopping")
			return
		default:
		}

		messages, err := p.streams.Consume(
			ctx,
			p.config.Stream,
			p.config.ConsumerGroup,
			p.config.ConsumerName,
			p.config.BatchSize,
			p.config.BlockTimeout,
		)

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.WithContext(ctx).WithError(err).Warn("Failed to consume messages")
			time.Sleep(time.Second) // Back off on error
			continue
		}

		for _, msg := range messages {
			job, err := p.parseJobMessage(msg)
			if err != nil {
				p.logger.WithContext(ctx).WithError(err).Warnf("Failed to parse scan job %s", msg.ID)
				// Acknowledge invalid messages to prevent reprocessing
				if ackErr := p.streams.Ack(ctx, p.config.Stream, p.config.ConsumerGroup, msg.ID); ackErr != nil {
					p.logger.WithContext(ctx).WithError(ackErr).Warnf("Failed to ack invalid message %s", msg.ID)
				}
				continue
			}

			select {
			case p.jobsCh <- jobItem{message: msg, job: job}:
			case <-p.stopCh:
				return
			}
		}
	}
}

// claimLoop periodically claims stale pending messages
func (p *Processor) claimLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(p.config.ClaimInterval)
	defer ticker.Stop()

	p.logger.WithContext(ctx).Debug("Claim loop started")

	for {
		select {
		case <-p.stopCh:
			p.logger.WithContext(ctx).Debug("Claim loop stopping")
			return
		case <-ticker.C:
			p.claimPendingMessages(ctx)
		}
	}
}

// claimPendingMessages claims stale pending messages from other consumers.
// Jobs reclaimed more than MaxRetries times are marked failed and dropped.
func (p *Processor) claimPendingMessages(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "scan.Processor.claimPendingMessages")
	defer span.End()

	if depth, err := p.streams.Len(ctx, p.config.Stream); err == nil {
		metrics.SetScanQueueDepth(depth)
	}

	pending, err := p.streams.Pending(ctx, p.config.Stream, p.config.ConsumerGroup, p.config.BatchSize)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Warn("Failed to get pending messages")
		return
	}

	if len(pending) == 0 {
		return
	}

	var staleIDs, deadIDs []string
	for _, msg := range pending {
		if msg.Idle < p.config.ClaimMinIdle {
			continue
		}
		if msg.RetryCount <= int64(p.config.MaxRetries) {
			staleIDs = append(staleIDs, msg.ID)
		} else {
			deadIDs = append(deadIDs, msg.ID)
		}
	}

	if len(staleIDs) > 0 {
		p.logger.WithContext(ctx).Infof("Claiming %d stale scan jobs", len(staleIDs))

		claimed, err := p.streams.Claim(ctx, p.config.Stream, p.config.ConsumerGroup, p.config.ConsumerName, p.config.ClaimMinIdle, staleIDs...)
		if err != nil {
			p.logger.WithContext(ctx).WithError(err).Warn("Failed to claim pending messages")
		} else {
			for _, msg := range claimed {
				job, err := p.parseJobMessage(msg)
				if err != nil {
					p.logger.WithContext(ctx).WithError(err).Warnf("Failed to parse claimed scan job %s", msg.ID)
					continue
				}

				select {
				case p.jobsCh <- jobItem{message: msg, job: job}:
				case <-p.stopCh:
					return
				default:
					// Channel full, skip for now
				}
			}
		}
	}

	for _, id := range deadIDs {
		p.dropDeadJob(ctx, id)
	}
}

// dropDeadJob marks the receipt of an exhausted job failed and acks it
func (p *Processor) dropDeadJob(ctx context.Context, messageID string) {
	claimed, err := p.streams.Claim(ctx, p.config.Stream, p.config.ConsumerGroup, p.config.ConsumerName, p.config.ClaimMinIdle, messageID)
	if err != nil || len(claimed) == 0 {
		p.logger.WithContext(ctx).WithError(err).Warnf("Failed to claim dead scan job %s", messageID)
		return
	}

	if job, err := p.parseJobMessage(claimed[0]); err == nil {
		if scanJob, err := p.parseScanJob(job); err == nil {
			p.logger.WithContext(ctx).Warnf("Scan job for receipt %s exceeded max retries, marking failed", scanJob.ReceiptID)
			if err := p.receipts.UpdateScanStatus(ctx, scanJob.TenantID, scanJob.ReceiptID, models.ScanStatusFailed); err != nil {
				p.logger.WithContext(ctx).WithError(err).Warnf("Failed to mark receipt %s failed", scanJob.ReceiptID)
			}
			metrics.RecordScanJob(p.provider.Name(), "dropped", 0)
		}
	}

	if err := p.streams.Ack(ctx, p.config.Stream, p.config.ConsumerGroup, messageID); err != nil {
		p.logger.WithContext(ctx).WithError(err).Warnf("Failed to ack dead scan job %s", messageID)
	}
}

// worker processes jobs from the channel
func (p *Processor) worker(ctx context.Context, wg *sync.WaitGroup, id int) {
	defer wg.Done()

	p.logger.WithContext(ctx).Debugf("Worker %d started", id)

	for item := range p.jobsCh {
		result := p.processJob(ctx, item)

		if result.Success {
			if err := p.streams.Ack(ctx, p.config.Stream, p.config.ConsumerGroup, item.message.ID); err != nil {
				p.logger.WithContext(ctx).WithError(err).Warnf("Failed to ack message %s", item.message.ID)
			}
		} else {
			// Left pending; the claim loop will retry it after ClaimMinIdle
			p.logger.WithContext(ctx).WithError(result.Error).Warnf("Scan job %s failed, will be retried", result.JobID)
		}
	}

	p.logger.WithContext(ctx).Debugf("Worker %d stopped", id)
}

// processJob processes a single scan job
func (p *Processor) processJob(ctx context.Context, item jobItem) *JobResult {
	ctx, span := tracing.StartSpan(ctx, "scan.Processor.processJob")
	defer span.End()

	start := time.Now()
	result := &JobResult{
		JobID:     item.job.ID,
		MessageID: item.message.ID,
	}

	metrics.ScanJobsInFlight.Inc()
	defer metrics.ScanJobsInFlight.Dec()

	scanJob, err := p.parseScanJob(item.job)
	if err != nil {
		// Malformed payload; retrying cannot help
		p.logger.WithContext(ctx).WithError(err).Warnf("Dropping invalid scan job %s", item.job.ID)
		result.Success = true
		result.Status = "invalid"
		result.Duration = time.Since(start)
		metrics.RecordScanJob(p.provider.Name(), "invalid", result.Duration.Seconds())
		return result
	}

	ctx = appctx.SetTenantID(ctx, scanJob.TenantID)
	ctx = appctx.SetRequestID(ctx, item.job.ID)

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"receipt_id": scanJob.ReceiptID,
		"provider":   p.provider.Name(),
	})
	log.Info("Processing scan job")

	status, err := p.scanReceipt(ctx, scanJob, log)
	result.Status = status
	result.Duration = time.Since(start)

	if err != nil {
		result.Error = err
		result.Success = false
		log.WithError(err).Warnf("Scan job failed after %s", result.Duration)
	} else {
		result.Success = true
		log.WithFields(map[string]any{"status": status}).Infof("Scan job finished in %s", result.Duration)
	}

	metrics.RecordScanJob(p.provider.Name(), status, result.Duration.Seconds())
	return result
}

// scanReceipt runs one scan end to end. The returned error means the job
// should stay pending for retry; terminal scan failures instead mark the
// receipt failed and return nil.
func (p *Processor) scanReceipt(ctx context.Context, job *ScanJob, log ectologger.Logger) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "scan.Processor.scanReceipt")
	defer span.End()

	// Per-receipt lock: a duplicate scan request or a reclaimed
	// duplicate of a running job gets skipped, not run twice.
	lock, err := p.locker.Acquire(ctx, "scan:"+job.TenantID+":"+job.ReceiptID, p.config.LockTTL)
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			log.Debug("Scan already in progress, skipping")
			return "skipped", nil
		}
		return "error", err
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			log.WithError(err).Debug("Failed to release scan lock")
		}
	}()

	receipt, err := p.receipts.GetByID(ctx, job.TenantID, job.ReceiptID)
	if err != nil {
		return "error", err
	}
	if receipt == nil {
		log.Debug("Receipt gone before scan, skipping")
		return "skipped", nil
	}

	doc, scanErr := p.provider.Scan(ctx, receipt)
	if scanErr == nil {
		var req *models.UpsertReceiptContentRequest
		req, scanErr = p.extractor.Extract(p.provider.Name(), doc)
		if scanErr == nil {
			if _, err := p.contents.Upsert(ctx, job.TenantID, job.ReceiptID, *req); err != nil {
				return "error", err
			}
			if err := p.receipts.UpdateScanStatus(ctx, job.TenantID, job.ReceiptID, models.ScanStatusScanned); err != nil {
				return "error", err
			}
			p.notify(ctx, job, models.ScanStatusScanned, log)
			return "scanned", nil
		}
	}

	// Provider or extraction failure is terminal: mark the receipt
	// failed and ack. Users re-trigger scans from the portal.
	log.WithError(scanErr).Warn("Scan failed")
	if err := p.receipts.UpdateScanStatus(ctx, job.TenantID, job.ReceiptID, models.ScanStatusFailed); err != nil {
		return "error", err
	}
	p.notify(ctx, job, models.ScanStatusFailed, log)
	return "failed", nil
}

func (p *Processor) notify(ctx context.Context, job *ScanJob, status string, log ectologger.Logger) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.EmitReceiptScanned(ctx, job.TenantID, job.ReceiptID, status, p.provider.Name()); err != nil {
		log.WithError(err).Warn("Failed to emit scan event")
	}
}

// parseJobMessage parses a stream message into a JobMessage
func (p *Processor) parseJobMessage(msg redis.StreamMessage) (*redis.JobMessage, error) {
	jobBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message payload: %w", err)
	}

	var job redis.JobMessage
	if err := json.Unmarshal(jobBytes, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job message: %w", err)
	}

	return &job, nil
}

// parseScanJob parses and validates a job's scan payload
func (p *Processor) parseScanJob(job *redis.JobMessage) (*ScanJob, error) {
	if job.Type != JobTypeReceiptScan {
		return nil, fmt.Errorf("%w: unknown job type %q", ErrInvalidScanJob, job.Type)
	}

	payloadBytes, err := json.Marshal(job.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}

	var scanJob ScanJob
	if err := json.Unmarshal(payloadBytes, &scanJob); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scan job: %w", err)
	}

	if scanJob.TenantID == "" || scanJob.ReceiptID == "" {
		return nil, fmt.Errorf("%w: missing tenant_id or receipt_id", ErrInvalidScanJob)
	}

	return &scanJob, nil
}

// PublishScan publishes a receipt scan job to the queue
func PublishScan(ctx context.Context, streams *redis.Streams, stream string, job ScanJob) (string, error) {
	msg := &redis.JobMessage{
		ID:        uuid.New().String(),
		TenantID:  job.TenantID,
		Type:      JobTypeReceiptScan,
		CreatedAt: time.Now(),
		Payload: map[string]interface{}{
			"tenant_id":    job.TenantID,
			"receipt_id":   job.ReceiptID,
			"requested_by": job.RequestedBy,
		},
	}

	return streams.Publish(ctx, stream, msg)
}

// Publisher enqueues scan jobs on the configured stream. The API layer
// holds one of these so route handlers never carry queue configuration.
type Publisher struct {
	streams *redis.Streams
	stream  string
	logger  ectologger.Logger
}

// NewPublisher creates a new scan job publisher
func NewPublisher(streams *redis.Streams, stream string, logger ectologger.Logger) *Publisher {
	return &Publisher{
		streams: streams,
		stream:  stream,
		logger:  logger,
	}
}

// Publish enqueues one scan job and returns the stream message ID
func (p *Publisher) Publish(ctx context.Context, job ScanJob) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "scan.Publisher.Publish")
	defer span.End()

	messageID, err := PublishScan(ctx, p.streams, p.stream, job)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to enqueue scan for receipt %s", job.ReceiptID)
		return "", err
	}

	p.logger.WithContext(ctx).Infof("Enqueued scan for receipt %s (message_id=%s)", job.ReceiptID, messageID)
	return messageID, nil
}
