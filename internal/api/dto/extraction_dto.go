package dto

import (
	"time"

	"github.com/nurul-suhasril/idea-analyzer/internal/store"
)

type CreateExtractionRequest struct {
	URL       string `json:"url" binding:"required"`
	ChannelID string `json:"channel_id"`
	ThreadTS  string `json:"thread_ts"`
}

type ListExtractionsRequest struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
}

type ListExtractionsResponse struct {
	Extractions []ExtractionDTO `json:"extractions"`
	Count       int             `json:"count"`
}

type ExtractionDTO struct {
	ID           string         `json:"id"`
	SourceRef    string         `json:"source_ref"`
	SourceType   string         `json:"source_type"`
	Status       string         `json:"status"`
	Title        *string        `json:"title,omitempty"`
	Content      *string        `json:"content,omitempty"`
	Metadata     store.Metadata `json:"metadata,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	ChannelID    *string        `json:"channel_id,omitempty"`
	ThreadTS     *string        `json:"thread_ts,omitempty"`
	CreatedAt    string         `json:"created_at"`
}

// FromJob maps a stored job onto the wire representation
func FromJob(job *store.Job) ExtractionDTO {
	return ExtractionDTO{
		ID:           job.ID,
		SourceRef:    job.SourceRef,
		SourceType:   job.SourceType,
		Status:       job.Status,
		Title:        job.Title,
		Content:      job.Content,
		Metadata:     job.Metadata,
		ErrorMessage: job.ErrorMessage,
		ChannelID:    job.ChannelID,
		ThreadTS:     job.ThreadTS,
		CreatedAt:    job.CreatedAt.UTC().Format(time.RFC3339),
	}
}
