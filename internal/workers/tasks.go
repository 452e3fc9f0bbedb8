// internal/workers/tasks.go
package workers

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/akash684/bloodbank-be/internal/core/domain"
)

// Task type names registered on the worker mux
const (
	TypeNotificationDeliver  = "notification:deliver"
	TypeInventoryImport      = "inventory:import"
	TypeInventoryExpire      = "inventory:expire"
	TypeAvailabilitySnapshot = "availability:snapshot"
	TypeCleanupOldData       = "cleanup:old_data"
	TypeCleanupTempFiles     = "cleanup:temp_files"
)

// NotificationDeliverPayload carries a stored notification to the
// delivery pipeline.
type NotificationDeliverPayload struct {
	NotificationID uuid.UUID               `json:"notification_id"`
	UserID         uuid.UUID               `json:"user_id"`
	Title          string                  `json:"title"`
	Message        string                  `json:"message"`
	Type           domain.NotificationType `json:"type"`
}

// ImportJobPayload carries an inventory spreadsheet import job
type ImportJobPayload struct {
	JobID       string    `json:"job_id"`
	BloodBankID uuid.UUID `json:"blood_bank_id"`
	FilePath    string    `json:"file_path"`
}

// ImportJobResult summarizes a finished import job
type ImportJobResult struct {
	Status         string   `json:"status"`
	UnitsProcessed int      `json:"units_processed"`
	Errors         []string `json:"errors,omitempty"`
	ProcessingTime string   `json:"processing_time"`
}

// NewNotificationDeliverTask builds the delivery task for a stored
// notification. Delivery is fire-and-forget: no retries are configured,
// a failed attempt is archived and the stored row stands.
func NewNotificationDeliverTask(n *domain.Notification) (*asynq.Task, error) {
	payload, err := json.Marshal(NotificationDeliverPayload{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Title:          n.Title,
		Message:        n.Message,
		Type:           n.Type,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification payload: %w", err)
	}
	return asynq.NewTask(TypeNotificationDeliver, payload, asynq.MaxRetry(0), asynq.Queue("low")), nil
}

// NewInventoryImportTask builds the spreadsheet import task
func NewInventoryImportTask(jobID string, bankID uuid.UUID, filePath string) (*asynq.Task, error) {
	payload, err := json.Marshal(ImportJobPayload{
		JobID:       jobID,
		BloodBankID: bankID,
		FilePath:    filePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal import payload: %w", err)
	}
	return asynq.NewTask(TypeInventoryImport, payload, asynq.Queue("default")), nil
}

// NewInventoryExpireTask builds the scheduled expiry sweep task
func NewInventoryExpireTask() *asynq.Task {
	return asynq.NewTask(TypeInventoryExpire, nil, asynq.Queue("low"))
}

// NewAvailabilitySnapshotTask builds the scheduled snapshot task
func NewAvailabilitySnapshotTask() *asynq.Task {
	return asynq.NewTask(TypeAvailabilitySnapshot, nil, asynq.Queue("low"))
}
