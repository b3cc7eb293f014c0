package ctxutil

import "context"

type traceDataKey struct{}

// TraceData is the correlation state for one request or job run. The entity
// ids are set only when the route or payload names them.
type TraceData struct {
	TraceID    string
	RequestID  string
	DocumentID string
	ActivityID string
	JobID      string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// LogFields returns the non-empty correlation pairs for a logger.With call.
func LogFields(ctx context.Context) []interface{} {
	td := GetTraceData(ctx)
	if td == nil {
		return nil
	}
	var out []interface{}
	if td.TraceID != "" {
		out = append(out, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		out = append(out, "request_id", td.RequestID)
	}
	if td.DocumentID != "" {
		out = append(out, "document_id", td.DocumentID)
	}
	if td.ActivityID != "" {
		out = append(out, "activity_id", td.ActivityID)
	}
	if td.JobID != "" {
		out = append(out, "job_id", td.JobID)
	}
	return out
}
