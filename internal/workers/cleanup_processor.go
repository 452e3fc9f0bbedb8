// internal/workers/cleanup_processor.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/akash684/bloodbank-be/internal/adapters/db"
	"github.com/akash684/bloodbank-be/internal/core/services"
	"github.com/akash684/bloodbank-be/internal/pkg/config"
)

// CleanupProcessor handles scheduled maintenance tasks
type CleanupProcessor struct {
	db        *db.Database
	inventory *services.InventoryService
	config    *config.Config
	logger    *slog.Logger
}

// NewCleanupProcessor creates a new cleanup processor
func NewCleanupProcessor(database *db.Database, inventory *services.InventoryService, cfg *config.Config, logger *slog.Logger) *CleanupProcessor {
	return &CleanupProcessor{
		db:        database,
		inventory: inventory,
		config:    cfg,
		logger:    logger.With(slog.String("processor", "cleanup")),
	}
}

// ExpireInventory flips stale available units to expired
func (p *CleanupProcessor) ExpireInventory(ctx context.Context, t *asynq.Task) error {
	n, err := p.inventory.ExpireUnits(ctx)
	if err != nil {
		return fmt.Errorf("failed to expire inventory: %w", err)
	}

	p.logger.InfoContext(ctx, "expiry sweep completed",
		slog.Int64("units_expired", n))

	return nil
}

// CleanupOldData removes read notifications older than 90 days
func (p *CleanupProcessor) CleanupOldData(ctx context.Context, t *asynq.Task) error {
	p.logger.InfoContext(ctx, "cleaning up old data")

	query := `DELETE FROM notifications WHERE is_read = TRUE AND created_at < NOW() - INTERVAL '90 days'`

	result, err := p.db.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to cleanup notifications: %w", err)
	}

	p.logger.InfoContext(ctx, "old data cleaned up",
		slog.Int64("rows_deleted", result.RowsAffected()))

	return nil
}

// CleanupTempFiles removes old temporary upload files
func (p *CleanupProcessor) CleanupTempFiles(ctx context.Context, t *asynq.Task) error {
	p.logger.InfoContext(ctx, "cleaning up temp files")

	tempDir := p.config.FileProcessing.TempDir
	maxAge := 24 * time.Hour

	var deletedCount int
	err := filepath.Walk(tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && time.Since(info.ModTime()) > maxAge {
			if err := os.Remove(path); err != nil {
				p.logger.WarnContext(ctx, "failed to delete temp file",
					slog.String("file", path),
					slog.String("error", err.Error()))
			} else {
				deletedCount++
			}
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to walk temp directory: %w", err)
	}

	p.logger.InfoContext(ctx, "temp files cleaned up",
		slog.Int("files_deleted", deletedCount))

	return nil
}
