package activity_generate

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
		jc.Fail("validate", apperr.Validation("activity_generate", "missing document_id"))
		return nil
	}
	teacherID, _ := jc.PayloadUUID("teacher_id")

	jc.Progress("generate", "Generating activities")
	acts, err := p.generator.GenerateForDocument(jc.Ctx, docID, teacherID, services.GenerateOptions{
		Grade:   jc.PayloadString("grade"),
		Subject: jc.PayloadString("subject"),
		Length:  jc.PayloadString("length"),
	})
	if err != nil {
		jc.Fail("generate", err)
		return nil
	}

	ids := make([]string, 0, len(acts))
	for _, a := range acts {
		ids = append(ids, a.ID.String())
	}
	jc.Succeed("done", map[string]any{
		"document_id":  docID.String(),
		"activity_ids": ids,
	})
	return nil
}
