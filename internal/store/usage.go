package store

import (
	"sync"

	"github.com/rs/zerolog"
)

// UsageRecord captures one served (or failed) prediction for tracking.
type UsageRecord struct {
	ModelID            string `json:"model_id"`
	RequestID          string `json:"request_id,omitempty"`
	ResponseTimeMillis int64  `json:"response_time_ms"`
	InputSize          int    `json:"input_size"`
	OutputSize         int    `json:"output_size"`
	Success            bool   `json:"success"`
	ErrorMessage       string `json:"error_message,omitempty"`
}

// UsageRecorder receives usage records. Recording is fire-and-forget:
// implementations must not block the prediction path and their failures
// must never propagate to the caller.
type UsageRecorder interface {
	RecordUsage(rec UsageRecord)
}

// NopUsageRecorder drops all records.
type NopUsageRecorder struct{}

func (NopUsageRecorder) RecordUsage(UsageRecord) {}

// LogUsageRecorder emits one structured log line per record.
type LogUsageRecorder struct {
	log zerolog.Logger
}

func NewLogUsageRecorder(log zerolog.Logger) *LogUsageRecorder {
	return &LogUsageRecorder{log: log}
}

func (r *LogUsageRecorder) RecordUsage(rec UsageRecord) {
	ev := r.log.Info().
		Str("model", rec.ModelID).
		Int64("response_time_ms", rec.ResponseTimeMillis).
		Int("input_size", rec.InputSize).
		Int("output_size", rec.OutputSize).
		Bool("success", rec.Success)
	if rec.RequestID != "" {
		ev = ev.Str("request_id", rec.RequestID)
	}
	if rec.ErrorMessage != "" {
		ev = ev.Str("error", rec.ErrorMessage)
	}
	ev.Msg("usage")
}

// MemoryUsageRecorder stores records in-memory for tests.
type MemoryUsageRecorder struct {
	mu   sync.Mutex
	recs []UsageRecord
}

func NewMemoryUsageRecorder() *MemoryUsageRecorder { return &MemoryUsageRecorder{} }

func (r *MemoryUsageRecorder) RecordUsage(rec UsageRecord) {
	r.mu.Lock()
	r.recs = append(r.recs, rec)
	r.mu.Unlock()
}

func (r *MemoryUsageRecorder) Records() []UsageRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]UsageRecord, len(r.recs))
	copy(out, r.recs)
	return out
}
