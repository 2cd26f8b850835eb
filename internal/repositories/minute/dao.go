package minute

import (
	"time"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

const minutesTable = "minutes"

// MinuteRow represents the database row for a meeting minute
type MinuteRow struct {
	ID        string                   `db:"id"`
	TenantID  string                   `db:"tenant_id"`
	Name      string                   `db:"name"`
	MeetingAt *time.Time               `db:"meeting_at"`
	Body      *string                  `db:"body"`
	Attendees database.JSONB[[]string] `db:"attendees"`
	CreatedBy *string                  `db:"created_by"`
	CreatedAt time.Time                `db:"created_at"`
	UpdatedAt time.Time                `db:"updated_at"`
	DeletedAt *time.Time               `db:"deleted_at"`
}

var minuteStruct = database.NewStruct(new(MinuteRow))

// ToMinute converts a database row to a domain model
func ToMinute(row *MinuteRow) *models.Minute {
	return &models.Minute{
		ID:        row.ID,
		TenantID:  row.TenantID,
		Name:      row.Name,
		MeetingAt: row.MeetingAt,
		Body:      row.Body,
		Attendees: row.Attendees.Data,
		CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		DeletedAt: row.DeletedAt,
	}
}

// ToMinutes converts a slice of database rows to domain models
func ToMinutes(rows []MinuteRow) []models.Minute {
	minutes := make([]models.Minute, len(rows))
	for i, row := range rows {
		minutes[i] = *ToMinute(&row)
	}
	return minutes
}
