package textbook_process

import (
	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
	"github.com/yungbote/textbook-backend/internal/services"
)

type Pipeline struct {
	log         *logger.Logger
	processor   services.DocumentProcessor
	maxAttempts int
}

// New builds the pipeline. maxAttempts must match the worker's so the last
// retryable failure can move the document out of processing.
func New(baseLog *logger.Logger, processor services.DocumentProcessor, maxAttempts int) *Pipeline {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Pipeline{
		log:         baseLog.With("job", types.JobTypeTextbookProcess),
		processor:   processor,
		maxAttempts: maxAttempts,
	}
}

func (p *Pipeline) Type() string { return types.JobTypeTextbookProcess }
