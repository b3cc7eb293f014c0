package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/yungbote/textbook-backend/internal/data/repos/jobs"
	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/pkg/ctxutil"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
)

/*
Context is the execution handle for one claimed job run. Handlers report
progress and terminate only through it; they never write job_run directly.
*/
type Context struct {
	Ctx     context.Context
	Job     *types.JobRun
	Repo    jobs.JobRunRepo
	Log     *logger.Logger
	payload map[string]any
}

// terminal statuses are never overwritten by a late Progress/Fail/Succeed.
var terminal = []string{types.JobStatusSucceeded, types.JobStatusDead}

func NewContext(ctx context.Context, job *types.JobRun, repo jobs.JobRunRepo, log *logger.Logger) *Context {
	c := &Context{
		Ctx:  ctxutil.Default(ctx),
		Job:  job,
		Repo: repo,
		Log:  log,
	}
	_ = c.decodePayload()
	c.applyTraceData()
	if c.Log == nil {
		c.Log = logger.Nop()
	}
	if job != nil {
		c.Log = c.Log.With("job_id", job.ID.String(), "job_type", job.JobType, "attempt", job.Attempts)
		if td := ctxutil.GetTraceData(c.Ctx); td != nil && td.DocumentID != "" {
			c.Log = c.Log.With("document_id", td.DocumentID)
		}
	}
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil {
		return nil
	}
	if len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

// applyTraceData restores the enqueuing request's ids and tags the run with
// its job and document ids.
func (c *Context) applyTraceData() {
	if c.Job == nil {
		return
	}
	payload := c.Payload()
	traceID, _ := payload["trace_id"].(string)
	reqID, _ := payload["request_id"].(string)
	docID, _ := payload["document_id"].(string)
	td := &ctxutil.TraceData{
		TraceID:    strings.TrimSpace(traceID),
		RequestID:  strings.TrimSpace(reqID),
		DocumentID: strings.TrimSpace(docID),
	}
	if c.Job.ID != uuid.Nil {
		td.JobID = c.Job.ID.String()
	}
	if td.DocumentID != "" {
		trace.SpanFromContext(c.Ctx).SetAttributes(attribute.String("textbook.id", td.DocumentID))
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, td)
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(fmt.Sprint(v))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func (c *Context) PayloadString(key string) string {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// Progress records a non-terminal stage and refreshes the heartbeat.
func (c *Context) Progress(stage string, msg string) {
	if c == nil || c.Job == nil {
		return
	}
	now := time.Now().UTC()
	if c.Repo != nil && c.Job.ID != uuid.Nil {
		ok, err := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: c.Ctx}, c.Job.ID, terminal, map[string]interface{}{
			"stage":        stage,
			"message":      msg,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if err != nil {
			c.Log.Warn("job progress update failed", "stage", stage, "error", err)
		}
		if !ok {
			return
		}
	}
	c.Job.Stage = stage
	c.Job.Message = msg
	c.Job.HeartbeatAt = &now
	c.Job.UpdatedAt = now
}

// Fail records err. Errors that another attempt cannot fix mark the job dead
// so ClaimNextRunnable never returns it again.
func (c *Context) Fail(stage string, err error) {
	if c == nil || c.Job == nil {
		return
	}
	now := time.Now().UTC()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	status := types.JobStatusFailed
	if err != nil && !apperr.Retryable(err) {
		status = types.JobStatusDead
	}
	if c.Repo != nil && c.Job.ID != uuid.Nil {
		ok, uerr := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: context.WithoutCancel(c.Ctx)}, c.Job.ID, terminal, map[string]interface{}{
			"status":        status,
			"stage":         stage,
			"message":       "",
			"error":         msg,
			"last_error_at": now,
			"locked_at":     nil,
			"updated_at":    now,
		})
		if uerr != nil {
			c.Log.Error("job fail update failed", "stage", stage, "error", uerr)
		}
		if !ok {
			return
		}
	}
	c.Job.Status = status
	c.Job.Stage = stage
	c.Job.Message = ""
	c.Job.Error = msg
	c.Job.LastErrorAt = &now
	c.Job.LockedAt = nil
	c.Job.UpdatedAt = now
}

func (c *Context) Succeed(finalStage string, result any) {
	if c == nil || c.Job == nil {
		return
	}
	now := time.Now().UTC()
	res := datatypes.JSON([]byte("{}"))
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			res = datatypes.JSON(b)
		}
	}
	if c.Repo != nil && c.Job.ID != uuid.Nil {
		ok, err := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: context.WithoutCancel(c.Ctx)}, c.Job.ID, terminal, map[string]interface{}{
			"status":       types.JobStatusSucceeded,
			"stage":        finalStage,
			"message":      "",
			"error":        "",
			"result":       res,
			"locked_at":    nil,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if err != nil {
			c.Log.Error("job succeed update failed", "error", err)
		}
		if !ok {
			return
		}
	}
	c.Job.Status = types.JobStatusSucceeded
	c.Job.Stage = finalStage
	c.Job.Message = ""
	c.Job.Error = ""
	c.Job.Result = res
	c.Job.LockedAt = nil
	c.Job.HeartbeatAt = &now
	c.Job.UpdatedAt = now
}
