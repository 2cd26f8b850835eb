package minute

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// MinuteRepository defines the interface for meeting minute operations
type MinuteRepository interface {
	Create(ctx context.Context, tenantID string, req models.CreateMinuteRequest, createdBy *string) (*models.Minute, error)
	GetByID(ctx context.Context, tenantID string, id string) (*models.Minute, error)
	List(ctx context.Context, tenantID string, page, pageSize int) ([]models.Minute, int, error)
	Update(ctx context.Context, tenantID string, id string, req models.UpdateMinuteRequest) (*models.Minute, error)
	Delete(ctx context.Context, tenantID string, id string) error
}

// Repository implements MinuteRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new minute repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create records new meeting minutes
func (r *Repository) Create(ctx context.Context, tenantID string, req models.CreateMinuteRequest, createdBy *string) (*models.Minute, error) {
	ctx, span := tracing.StartSpan(ctx, "MinuteRepository.Create")
	defer span.End()

	now := time.Now().UTC()
	attendees := req.Attendees
	if attendees == nil {
		attendees = []string{}
	}

	row := MinuteRow{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Name:      req.Name,
		MeetingAt: req.MeetingAt,
		Body:      req.Body,
		Attendees: database.JSONB[[]string]{Data: attendees},
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ib := minuteStruct.InsertInto(minutesTable, row)
	query, args := ib.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        row.ID,
			"tenant_id": tenantID,
		}).Error("failed to create minute")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to create minute: %s", err.Error())
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":        row.ID,
		"tenant_id": tenantID,
	}).Info("created minute")

	return r.GetByID(ctx, tenantID, row.ID)
}

// GetByID gets meeting minutes by ID
func (r *Repository) GetByID(ctx context.Context, tenantID string, id string) (*models.Minute, error) {
	ctx, span := tracing.StartSpan(ctx, "MinuteRepository.GetByID")
	defer span.End()

	sb := minuteStruct.SelectFrom(minutesTable)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	var row MinuteRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Error("failed to get minute by ID")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get minute: %w", err)
	}

	return ToMinute(&row), nil
}

// List lists meeting minutes for a tenant with pagination, newest meeting first
func (r *Repository) List(ctx context.Context, tenantID string, page, pageSize int) ([]models.Minute, int, error) {
	ctx, span := tracing.StartSpan(ctx, "MinuteRepository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	countSb := database.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From(minutesTable)
	countSb.Where(
		countSb.Equal("tenant_id", tenantID),
		countSb.IsNull("deleted_at"),
	)
	countQuery, countArgs := countSb.Build()

	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count minutes")
		return nil, 0, fmt.Errorf("failed to count minutes: %w", err)
	}

	sb := minuteStruct.SelectFrom(minutesTable)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("meeting_at DESC NULLS LAST", "created_at DESC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()

	var rows []MinuteRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": tenantID,
			"page":      page,
			"page_size": pageSize,
		}).Error("failed to list minutes")
		return nil, 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list minutes: %w", err)
	}

	return ToMinutes(rows), totalCount, nil
}

// Update updates meeting minutes, only touching the provided fields
func (r *Repository) Update(ctx context.Context, tenantID string, id string, req models.UpdateMinuteRequest) (*models.Minute, error) {
	ctx, span := tracing.StartSpan(ctx, "MinuteRepository.Update")
	defer span.End()

	existing, err := r.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	sb := database.NewUpdateBuilder()
	sb.Update(minutesTable)
	sb.Set(sb.Assign("updated_at", time.Now().UTC()))

	if req.Name != nil {
		sb.Set(sb.Assign("name", *req.Name))
	}
	if req.MeetingAt != nil {
		sb.Set(sb.Assign("meeting_at", *req.MeetingAt))
	}
	if req.Body != nil {
		sb.Set(sb.Assign("body", *req.Body))
	}
	if req.Attendees != nil {
		sb.Set(sb.Assign("attendees", database.JSONB[[]string]{Data: req.Attendees}))
	}

	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Error("failed to update minute")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update minute: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"tenant_id":     tenantID,
		"rows_affected": rowsAffected,
	}).Info("updated minute")

	return r.GetByID(ctx, tenantID, id)
}

// Delete soft deletes meeting minutes
func (r *Repository) Delete(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "MinuteRepository.Delete")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update(minutesTable)
	sb.Set(sb.Assign("deleted_at", time.Now().UTC()))
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Error("failed to delete minute")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to delete minute: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"tenant_id":     tenantID,
		"rows_affected": rowsAffected,
	}).Info("deleted minute")

	return nil
}
