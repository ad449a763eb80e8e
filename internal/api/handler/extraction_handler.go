package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nurul-suhasril/idea-analyzer/internal/api/dto"
	"github.com/nurul-suhasril/idea-analyzer/internal/extract"
	"github.com/nurul-suhasril/idea-analyzer/internal/store"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	// idCreateAttempts bounds regeneration retries on an id collision
	idCreateAttempts = 3
)

// CreateExtraction handles POST /api/v1/extractions
// Classifies the URL, records a pending job, and enqueues it for the worker
func (h *ExtractionHandler) CreateExtraction(c *gin.Context) {
	var req dto.CreateExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: url is required",
		})
		return
	}

	url := strings.TrimSpace(req.URL)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "url must start with http:// or https://",
		})
		return
	}

	sourceType := extract.Classify(url)

	job := &store.Job{
		SourceRef:  url,
		SourceType: string(sourceType),
		Status:     store.StatusPending,
		ChannelID:  optional(req.ChannelID),
		ThreadTS:   optional(req.ThreadTS),
		CreatedAt:  time.Now().UTC(),
	}

	if !h.createWithRetry(c, job) {
		return
	}

	if !h.enqueue(c, job.ID) {
		return
	}

	h.logger.Info("Extraction job created",
		slog.String("job_id", job.ID),
		slog.String("source_type", job.SourceType),
		slog.String("url", url),
	)

	c.JSON(http.StatusAccepted, dto.FromJob(job))
}

// UploadFile handles POST /api/v1/extractions/file
// Saves the multipart file under the shared upload directory and enqueues a
// file extraction job referencing it
func (h *ExtractionHandler) UploadFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.logger.Error("Missing file in upload request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "multipart field 'file' is required",
		})
		return
	}

	filename := filepath.Base(fileHeader.Filename)
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid filename",
		})
		return
	}

	job := &store.Job{
		SourceType: string(extract.TypeFile),
		Status:     store.StatusPending,
		ChannelID:  optional(c.PostForm("channel_id")),
		ThreadTS:   optional(c.PostForm("thread_ts")),
		CreatedAt:  time.Now().UTC(),
	}

	// The stored name carries the job id so the worker can clean it up and
	// concurrent uploads of the same filename cannot collide
	for attempt := 0; attempt < idCreateAttempts; attempt++ {
		job.ID = store.NewID()
		job.SourceRef = fmt.Sprintf("%s_%s", job.ID, filename)

		storedPath := filepath.Join(h.uploadDir, job.SourceRef)
		if err := c.SaveUploadedFile(fileHeader, storedPath); err != nil {
			h.logger.Error("Failed to save uploaded file",
				slog.String("path", storedPath),
				slog.String("error", err.Error()),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to save uploaded file",
			})
			return
		}

		err := h.store.Create(c.Request.Context(), job)
		if err == nil {
			break
		}

		os.Remove(storedPath)

		if errors.Is(err, store.ErrConflict) {
			if attempt == idCreateAttempts-1 {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"error": "Failed to allocate a job id",
				})
				return
			}
			continue
		}

		h.logger.Error("Failed to create job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create extraction job",
		})
		return
	}

	if !h.enqueue(c, job.ID) {
		return
	}

	h.logger.Info("File extraction job created",
		slog.String("job_id", job.ID),
		slog.String("filename", filename),
		slog.Int64("size", fileHeader.Size),
	)

	c.JSON(http.StatusAccepted, dto.FromJob(job))
}

// GetExtraction handles GET /api/v1/extractions/:id
func (h *ExtractionHandler) GetExtraction(c *gin.Context) {
	id := c.Param("id")

	job, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "extraction not found",
			})
			return
		}
		h.logger.Error("Failed to get extraction", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get extraction",
		})
		return
	}

	c.JSON(http.StatusOK, dto.FromJob(job))
}

// ListExtractions handles GET /api/v1/extractions
func (h *ExtractionHandler) ListExtractions(c *gin.Context) {
	var req dto.ListExtractionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.Limit <= 0 {
		req.Limit = defaultListLimit
	}
	if req.Limit > maxListLimit {
		req.Limit = maxListLimit
	}

	if req.Status != "" && !validStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "status must be one of pending, processing, completed, failed",
		})
		return
	}

	jobs, err := h.store.List(c.Request.Context(), req.Limit, req.Status)
	if err != nil {
		h.logger.Error("Failed to list extractions", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list extractions",
		})
		return
	}

	response := make([]dto.ExtractionDTO, len(jobs))
	for i, job := range jobs {
		response[i] = dto.FromJob(job)
	}

	c.JSON(http.StatusOK, dto.ListExtractionsResponse{
		Extractions: response,
		Count:       len(response),
	})
}

// createWithRetry inserts the job, regenerating the id on a collision. It
// writes the error response itself and reports whether creation succeeded.
func (h *ExtractionHandler) createWithRetry(c *gin.Context, job *store.Job) bool {
	for attempt := 0; attempt < idCreateAttempts; attempt++ {
		job.ID = store.NewID()

		err := h.store.Create(c.Request.Context(), job)
		if err == nil {
			return true
		}
		if !errors.Is(err, store.ErrConflict) {
			h.logger.Error("Failed to create job", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create extraction job",
			})
			return false
		}

		h.logger.Warn("Job id collision, regenerating",
			slog.String("job_id", job.ID),
			slog.Int("attempt", attempt+1),
		)
	}

	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error": "Failed to allocate a job id",
	})
	return false
}

// enqueue publishes the job id to RabbitMQ. It writes the error response
// itself and reports whether publishing succeeded.
func (h *ExtractionHandler) enqueue(c *gin.Context, jobID string) bool {
	body, err := json.Marshal(map[string]string{"job_id": jobID})
	if err != nil {
		h.logger.Error("Failed to encode job message", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue extraction job",
		})
		return false
	}

	if err := h.rabbitClient.Publish(c.Request.Context(), body, "application/json"); err != nil {
		h.logger.Error("Failed to publish job message",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue extraction job",
		})
		return false
	}

	return true
}

func validStatus(status string) bool {
	switch status {
	case store.StatusPending, store.StatusProcessing, store.StatusCompleted, store.StatusFailed:
		return true
	}
	return false
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
