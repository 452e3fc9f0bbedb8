// internal/handlers/export.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/tealeg/xlsx/v3"

	redis_a "github.com/akash684/bloodbank-be/internal/adapters/redis_adapter"
	"github.com/akash684/bloodbank-be/internal/adapters/storage"
	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
)

// ExportParams defines filters for the request export
type ExportParams struct {
	Status     domain.RequestStatus `json:"status,omitempty"`
	BloodGroup domain.BloodGroup    `json:"blood_group,omitempty"`
	Urgency    domain.Urgency       `json:"urgency,omitempty"`
	Format     string               `json:"format"`
	Archive    bool                 `json:"archive"`
}

// ExportMetadata describes one produced export
type ExportMetadata struct {
	ExportDate    time.Time `json:"export_date"`
	TotalRequests int       `json:"total_requests"`
	Format        string    `json:"format"`
	ArchiveKey    string    `json:"archive_key,omitempty"`
}

// JSONExportResponse is the JSON export payload
type JSONExportResponse struct {
	Requests []domain.BloodRequest `json:"requests"`
	Metadata ExportMetadata        `json:"metadata"`
}

// ExportHandler produces blood request reports
type ExportHandler struct {
	requests ports.RequestRepository
	cache    ports.CacheRepository
	archive  storage.StorageClient
	logger   *slog.Logger
}

// NewExportHandler creates a new export handler. The archive client is
// optional; when nil, archive requests are ignored.
func NewExportHandler(requests ports.RequestRepository, cache ports.CacheRepository, archive storage.StorageClient, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		requests: requests,
		cache:    cache,
		archive:  archive,
		logger:   logger.With(slog.String("handler", "export")),
	}
}

// ExportRequests handles GET /api/v1/export/requests
func (h *ExportHandler) ExportRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params := h.parseExportParams(r)

	requests, err := h.requests.List(ctx, ports.RequestListParams{
		Status:     params.Status,
		BloodGroup: params.BloodGroup,
		Urgency:    params.Urgency,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load requests for export",
			slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Failed to retrieve data")
		return
	}

	switch params.Format {
	case "json":
		h.exportJSON(ctx, w, requests, params)
	default:
		h.exportExcel(ctx, w, requests, params)
	}
}

func (h *ExportHandler) exportExcel(ctx context.Context, w http.ResponseWriter, requests []domain.BloodRequest, params *ExportParams) {
	data, err := h.generateExcelFile(requests)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate Excel file",
			slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Failed to generate Excel file")
		return
	}

	now := time.Now()
	filename := fmt.Sprintf("blood_requests_%s.xlsx", now.Format("20060102_150405"))

	if params.Archive && h.archive != nil {
		key := storage.ExportKey("xlsx", now)
		h.archiveAsync(key, data, storage.ExportContentType("xlsx"))
		w.Header().Set("X-Archive-Key", key)
	}

	w.Header().Set("Content-Type", storage.ExportContentType("xlsx"))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if _, err := w.Write(data); err != nil {
		h.logger.ErrorContext(ctx, "failed to write Excel response",
			slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(ctx, "request export completed",
		slog.Int("total_rows", len(requests)),
		slog.String("filename", filename))
}

func (h *ExportHandler) exportJSON(ctx context.Context, w http.ResponseWriter, requests []domain.BloodRequest, params *ExportParams) {
	cacheKey := redis_a.BuildKey(redis_a.PrefixExport, "requests", h.cacheKeyFromParams(params))

	var cached []byte
	if err := h.cache.Get(ctx, cacheKey, &cached); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		w.Write(cached)
		return
	}

	if requests == nil {
		requests = []domain.BloodRequest{}
	}

	response := JSONExportResponse{
		Requests: requests,
		Metadata: ExportMetadata{
			ExportDate:    time.Now(),
			TotalRequests: len(requests),
			Format:        "json",
		},
	}

	data, err := json.Marshal(response)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal export response",
			slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Failed to generate JSON")
		return
	}

	if params.Archive && h.archive != nil {
		key := storage.ExportKey("json", time.Now())
		h.archiveAsync(key, data, storage.ExportContentType("json"))
		w.Header().Set("X-Archive-Key", key)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)

	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := h.cache.SetWithTTL(cacheCtx, cacheKey, data, 5*time.Minute); err != nil {
			h.logger.WarnContext(cacheCtx, "failed to cache export response",
				slog.String("error", err.Error()))
		}
	}()
}

// archiveAsync uploads a copy of the export to object storage without
// blocking the response.
func (h *ExportHandler) archiveAsync(key string, data []byte, contentType string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if _, err := h.archive.Upload(ctx, key, bytes.NewReader(data), contentType); err != nil {
			h.logger.WarnContext(ctx, "failed to archive export",
				slog.String("key", key),
				slog.String("error", err.Error()))
			return
		}

		h.logger.InfoContext(ctx, "export archived",
			slog.String("key", key),
			slog.Int("bytes", len(data)))
	}()
}

func (h *ExportHandler) parseExportParams(r *http.Request) *ExportParams {
	params := &ExportParams{Format: "xlsx"}

	if status := r.URL.Query().Get("status"); status != "" {
		params.Status = domain.RequestStatus(status)
	}
	if group := r.URL.Query().Get("blood_group"); group != "" {
		params.BloodGroup = domain.BloodGroup(group)
	}
	if urgency := r.URL.Query().Get("urgency"); urgency != "" {
		params.Urgency = domain.Urgency(urgency)
	}
	if format := r.URL.Query().Get("format"); format != "" {
		params.Format = format
	}
	params.Archive = r.URL.Query().Get("archive") == "true"

	return params
}

func (h *ExportHandler) generateExcelFile(requests []domain.BloodRequest) ([]byte, error) {
	file := xlsx.NewFile()

	sheet, err := file.AddSheet("Blood Requests")
	if err != nil {
		return nil, fmt.Errorf("failed to add worksheet: %w", err)
	}

	headers := []string{
		"ID", "Requester ID", "Blood Group", "Quantity", "Urgency",
		"Status", "Assigned Bank", "Hospital", "Reason",
		"Required By", "Created At", "Updated At",
	}

	headerRow := sheet.AddRow()
	for _, header := range headers {
		cell := headerRow.AddCell()
		cell.Value = header
		cell.GetStyle().Font.Bold = true
	}

	for _, req := range requests {
		row := sheet.AddRow()
		for _, value := range []string{
			req.ID.String(),
			req.RequesterID.String(),
			string(req.BloodGroup),
			strconv.Itoa(req.Quantity),
			string(req.Urgency),
			string(req.Status),
			req.AssignedBank.String(),
			req.HospitalName,
			req.Reason,
			req.RequiredBy.Format("2006-01-02"),
			req.CreatedAt.Format("2006-01-02 15:04:05"),
			req.UpdatedAt.Format("2006-01-02 15:04:05"),
		} {
			row.AddCell().Value = value
		}
	}

	for i := range headers {
		sheet.SetColWidth(i, i, 18)
	}

	var buffer bytes.Buffer
	if err := file.Write(&buffer); err != nil {
		return nil, fmt.Errorf("failed to write Excel file to buffer: %w", err)
	}

	return buffer.Bytes(), nil
}

func (h *ExportHandler) cacheKeyFromParams(params *ExportParams) string {
	return fmt.Sprintf("s_%s_g_%s_u_%s", params.Status, params.BloodGroup, params.Urgency)
}
