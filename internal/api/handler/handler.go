package handler

import (
	"log/slog"

	"github.com/nurul-suhasril/idea-analyzer/internal/store"
	"github.com/nurul-suhasril/idea-analyzer/shared/postgresql"
	"github.com/nurul-suhasril/idea-analyzer/shared/rabbitmq"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Store        store.Store
	DBClient     *postgresql.Client
	RabbitClient *rabbitmq.Client
	UploadDir    string
}

// ExtractionHandler handles extraction-related HTTP requests
type ExtractionHandler struct {
	logger       *slog.Logger
	store        store.Store
	rabbitClient *rabbitmq.Client
	uploadDir    string
}

// NewExtractionHandler creates a new ExtractionHandler instance
func NewExtractionHandler(deps *Dependencies) *ExtractionHandler {
	return &ExtractionHandler{
		logger:       deps.Logger,
		store:        deps.Store,
		rabbitClient: deps.RabbitClient,
		uploadDir:    deps.UploadDir,
	}
}
