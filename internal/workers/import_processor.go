// internal/workers/import_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/tealeg/xlsx/v3"

	redis_a "github.com/akash684/bloodbank-be/internal/adapters/redis_adapter"
	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
	"github.com/akash684/bloodbank-be/internal/core/services"
)

// Spreadsheet columns: A blood group, B quantity, C expiry date.
const (
	importColGroup = iota
	importColQuantity
	importColExpiry
)

// ImportProcessor handles bank inventory spreadsheet imports
type ImportProcessor struct {
	service *services.InventoryService
	cache   ports.CacheRepository
	logger  *slog.Logger
}

// NewImportProcessor creates a new import processor
func NewImportProcessor(service *services.InventoryService, cache ports.CacheRepository, logger *slog.Logger) *ImportProcessor {
	return &ImportProcessor{
		service: service,
		cache:   cache,
		logger:  logger.With(slog.String("processor", "import")),
	}
}

// ProcessImport parses an uploaded spreadsheet and persists its units
// for the uploading bank. Job progress is recorded in the cache under
// the job id so the status endpoint can report it.
func (p *ImportProcessor) ProcessImport(ctx context.Context, t *asynq.Task) error {
	started := time.Now()

	var payload ImportJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	p.logger.InfoContext(ctx, "processing inventory import",
		slog.String("job_id", payload.JobID),
		slog.String("bank_id", payload.BloodBankID.String()))

	p.recordStatus(ctx, payload.JobID, ImportJobResult{Status: "processing"})

	file, err := xlsx.OpenFile(payload.FilePath)
	if err != nil {
		p.recordStatus(ctx, payload.JobID, ImportJobResult{
			Status: "failed",
			Errors: []string{err.Error()},
		})
		return fmt.Errorf("failed to open spreadsheet: %w", err)
	}

	var (
		units     []domain.InventoryUnit
		rowErrors []string
	)

	if len(file.Sheets) > 0 {
		sheet := file.Sheets[0]
		rowIdx := 0

		err = sheet.ForEachRow(func(r *xlsx.Row) error {
			// Skip header row
			if rowIdx == 0 {
				rowIdx++
				return nil
			}
			rowIdx++

			unit, err := p.parseRow(r, payload)
			if err != nil {
				rowErrors = append(rowErrors, fmt.Sprintf("row %d: %v", rowIdx, err))
				return nil
			}
			if unit != nil {
				units = append(units, *unit)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to process spreadsheet rows: %w", err)
		}
	}

	if len(units) > 0 {
		if err := p.service.BulkUpsert(ctx, units); err != nil {
			p.recordStatus(ctx, payload.JobID, ImportJobResult{
				Status: "failed",
				Errors: append(rowErrors, err.Error()),
			})
			return fmt.Errorf("failed to save units: %w", err)
		}
	}

	// Clean up temp file
	if strings.HasPrefix(payload.FilePath, os.TempDir()) {
		os.Remove(payload.FilePath)
	}

	p.recordStatus(ctx, payload.JobID, ImportJobResult{
		Status:         "completed",
		UnitsProcessed: len(units),
		Errors:         rowErrors,
		ProcessingTime: time.Since(started).String(),
	})

	p.logger.InfoContext(ctx, "inventory import completed",
		slog.String("job_id", payload.JobID),
		slog.Int("units_processed", len(units)),
		slog.Int("rows_rejected", len(rowErrors)))

	return nil
}

func (p *ImportProcessor) parseRow(r *xlsx.Row, payload ImportJobPayload) (*domain.InventoryUnit, error) {
	get := func(i int) string {
		c := r.GetCell(i)
		if c == nil {
			return ""
		}
		return strings.TrimSpace(c.String())
	}

	groupStr := get(importColGroup)
	if groupStr == "" {
		return nil, nil
	}
	group := domain.BloodGroup(strings.ToUpper(groupStr))
	if !group.Valid() {
		return nil, fmt.Errorf("invalid blood group %q", groupStr)
	}

	quantity, err := strconv.Atoi(get(importColQuantity))
	if err != nil || quantity <= 0 {
		return nil, fmt.Errorf("invalid quantity %q", get(importColQuantity))
	}

	expiry, err := time.Parse("2006-01-02", get(importColExpiry))
	if err != nil {
		return nil, fmt.Errorf("invalid expiry date %q", get(importColExpiry))
	}

	return &domain.InventoryUnit{
		BloodBankID: payload.BloodBankID,
		BloodGroup:  group,
		Quantity:    quantity,
		ExpiryDate:  expiry,
		Status:      domain.InventoryAvailable,
	}, nil
}

func (p *ImportProcessor) recordStatus(ctx context.Context, jobID string, result ImportJobResult) {
	key := redis_a.BuildKey(redis_a.PrefixImportJob, jobID)
	if err := p.cache.SetWithTTL(ctx, key, result, 24*time.Hour); err != nil {
		p.logger.WarnContext(ctx, "failed to record import job status",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
	}
}
