package textbook_process

import (
	"github.com/google/uuid"

	jobrt "github.com/yungbote/textbook-backend/internal/jobs/runtime"
	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
	"github.com/yungbote/textbook-backend/internal/services"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	docID, ok := jc.PayloadUUID("document_id")
	if !ok || docID == uuid.Nil {
		jc.Fail("validate", apperr.Validation("textbook_process", "missing document_id"))
		return nil
	}
	filePath := jc.PayloadString("file_path")
	if filePath == "" {
		jc.Fail("validate", apperr.Validation("textbook_process", "missing file_path"))
		return nil
	}

	jc.Progress("parse", "Extracting pages")
	opts := services.ProcessOptions{
		Grade:   jc.PayloadString("grade"),
		Subject: jc.PayloadString("subject"),
	}
	if err := p.processor.Process(jc.Ctx, docID, filePath, opts); err != nil {
		if apperr.Retryable(err) && jc.Job.Attempts >= p.maxAttempts {
			p.log.Warn("textbook attempts exhausted", "document_id", docID, "attempts", jc.Job.Attempts, "error", err)
			err = p.processor.Abandon(jc.Ctx, docID, err)
		}
		jc.Fail("parse", err)
		return nil
	}

	jc.Succeed("done", map[string]any{
		"document_id": docID.String(),
	})
	return nil
}
