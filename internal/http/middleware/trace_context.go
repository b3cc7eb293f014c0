package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/textbook-backend/internal/pkg/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachTraceContext puts request correlation on the context: trace and
// request ids plus the textbook, activity or job id the route addresses.
// The same ids are copied onto the server span when one is recording.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.New().String()
		}
		traceID := strings.TrimSpace(c.GetHeader(headerTraceID))
		if traceID == "" {
			spanCtx := trace.SpanContextFromContext(c.Request.Context())
			if spanCtx.HasTraceID() {
				traceID = spanCtx.TraceID().String()
			}
		}
		if traceID == "" {
			traceID = uuid.New().String()
		}
		td := &ctxutil.TraceData{
			TraceID:   traceID,
			RequestID: reqID,
		}
		routeEntity(c, td)
		ctx := ctxutil.WithTraceData(c.Request.Context(), td)
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetAttributes(spanAttrs(td)...)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Set("trace_id", traceID)
		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}

// routeEntity reads the :id parameter by the resource it belongs to.
func routeEntity(c *gin.Context, td *ctxutil.TraceData) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return
	}
	route := c.FullPath()
	switch {
	case strings.HasPrefix(route, "/api/textbooks/"):
		td.DocumentID = id
	case strings.HasPrefix(route, "/api/activities/"):
		td.ActivityID = id
	case strings.HasPrefix(route, "/api/jobs/"):
		td.JobID = id
	}
}

func spanAttrs(td *ctxutil.TraceData) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("request.id", td.RequestID)}
	if td.DocumentID != "" {
		attrs = append(attrs, attribute.String("textbook.id", td.DocumentID))
	}
	if td.ActivityID != "" {
		attrs = append(attrs, attribute.String("activity.id", td.ActivityID))
	}
	if td.JobID != "" {
		attrs = append(attrs, attribute.String("job.id", td.JobID))
	}
	return attrs
}
