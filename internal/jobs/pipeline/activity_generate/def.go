package activity_generate

import (
	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
	"github.com/yungbote/textbook-backend/internal/services"
)

type Pipeline struct {
	log       *logger.Logger
	generator services.ActivityGenerator
}

func New(baseLog *logger.Logger, generator services.ActivityGenerator) *Pipeline {
	return &Pipeline{
		log:       baseLog.With("job", types.JobTypeActivityGenerate),
		generator: generator,
	}
}

func (p *Pipeline) Type() string { return types.JobTypeActivityGenerate }
