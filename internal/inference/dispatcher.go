package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"predictd/internal/store"
	"predictd/pkg/types"
)

// defaultExecTimeout bounds a single format-specific execution.
const defaultExecTimeout = 30 * time.Second

// MetadataStore is the slice of the metadata collaborator the dispatcher
// consumes.
type MetadataStore interface {
	FindByID(id string) *types.ModelMetadata
	List(activeOnly bool) []types.ModelMetadata
	IncrementRequestCount(id string)
	Count() int
}

// ServiceConfig encapsulates all tunables for Service construction.
type ServiceConfig struct {
	Loader      *Loader
	Store       MetadataStore
	Usage       store.UsageRecorder
	Publisher   EventPublisher
	Logger      zerolog.Logger
	ExecTimeout time.Duration
}

// Service orchestrates prediction requests end-to-end: model lookup, input
// validation, format dispatch and response assembly. Predict never lets a
// failure escape its boundary; administrative operations (load, unload,
// warmup) propagate errors to their caller.
type Service struct {
	loader    *Loader
	validator *Validator
	meta      MetadataStore
	usage     store.UsageRecorder
	publisher EventPublisher
	log       zerolog.Logger

	execTimeout time.Duration
	startTime   time.Time

	predictionsTotal atomic.Uint64
	predictionErrors atomic.Uint64

	errMu   sync.Mutex
	lastErr string
}

// NewService constructs a Service from ServiceConfig.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		loader:      cfg.Loader,
		validator:   NewValidator(),
		meta:        cfg.Store,
		usage:       cfg.Usage,
		publisher:   cfg.Publisher,
		log:         cfg.Logger,
		execTimeout: cfg.ExecTimeout,
		startTime:   time.Now(),
	}
	if s.loader == nil {
		s.loader = NewLoader(LoaderConfig{Publisher: cfg.Publisher})
	}
	if s.usage == nil {
		s.usage = store.NopUsageRecorder{}
	}
	if s.publisher == nil {
		s.publisher = noopPublisher{}
	}
	if s.execTimeout <= 0 {
		s.execTimeout = defaultExecTimeout
	}
	return s
}

// Predict serves one prediction request. Every failure path, panics
// included, is converted into a PredictionResponse with an error status and
// elapsed wall-clock time; the caller always receives a complete response
// object. The returned error is the classified failure (nil on success) so
// transport layers can map it to a status code; it never carries anything
// the response does not.
func (s *Service) Predict(ctx context.Context, req types.PredictionRequest) (resp types.PredictionResponse, retErr error) {
	start := time.Now()
	resp = types.PredictionResponse{
		RequestID: uuid.NewString(),
		ModelID:   req.ModelID,
		Status:    types.PredictionSuccess,
	}
	defer func() {
		if r := recover(); r != nil {
			retErr = ErrPrediction(req.ModelID, fmt.Errorf("panic in predict: %v", r))
			resp.Status = types.PredictionFailed
			resp.Error = retErr.Error()
			resp.Output = nil
		}
		resp.ProcessingTimeMillis = time.Since(start).Milliseconds()
		s.finishPredict(req, resp)
	}()

	fail := func(err error) (types.PredictionResponse, error) {
		retErr = err
		resp.Status = types.PredictionFailed
		resp.Error = err.Error()
		return resp, err
	}

	// MODEL_LOOKUP: the dispatcher does not trigger loads; loading is an
	// explicit administrative step so callers can pre-warm.
	model, release, ok := s.loader.Acquire(req.ModelID)
	if !ok {
		return fail(ErrNotLoaded(req.ModelID))
	}
	defer release()

	// INPUT_VALIDATION
	vr := s.validator.ValidateInput(req.ModelID, req.InputData, model.Schema())
	if !vr.Valid {
		return fail(ErrValidation(vr.Errors))
	}

	// EXECUTION, behind per-model admission and a bounded timeout.
	releaseSlot, err := s.loader.admit(ctx, req.ModelID)
	if err != nil {
		return fail(err)
	}
	defer releaseSlot()

	output, err := s.execute(ctx, req.ModelID, model, req.InputData)
	if err != nil {
		return fail(err)
	}

	resp.Output = output
	return resp, nil
}

// execute runs the format-specific executor under the configured timeout.
// Runtimes are trusted to honor context cancellation, but the select guards
// against substituted implementations that do not.
func (s *Service) execute(ctx context.Context, modelID string, model *LoadedModel, input any) (any, error) {
	execCtx, cancel := context.WithTimeout(ctx, s.execTimeout)
	defer cancel()

	type result struct {
		out any
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := model.Runtime.Predict(execCtx, input)
		done <- result{out: out, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if execCtx.Err() == context.DeadlineExceeded {
				return nil, ErrExecTimeout(modelID)
			}
			return nil, ErrPrediction(modelID, r.err)
		}
		return r.out, nil
	case <-execCtx.Done():
		if execCtx.Err() == context.DeadlineExceeded {
			return nil, ErrExecTimeout(modelID)
		}
		return nil, execCtx.Err()
	}
}

// finishPredict records counters and usage for a completed request.
// Usage tracking is fire-and-forget; a recorder failure is swallowed.
func (s *Service) finishPredict(req types.PredictionRequest, resp types.PredictionResponse) {
	s.predictionsTotal.Add(1)
	if resp.Status == types.PredictionFailed {
		s.predictionErrors.Add(1)
		s.publisher.Publish(Event{Name: "predict_error", ModelID: req.ModelID, Fields: map[string]any{"error": resp.Error}})
	} else {
		s.publisher.Publish(Event{Name: "predict_ok", ModelID: req.ModelID, Fields: map[string]any{"dur_ms": resp.ProcessingTimeMillis}})
	}
	if s.meta != nil && resp.Status == types.PredictionSuccess {
		s.meta.IncrementRequestCount(req.ModelID)
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn().Interface("panic", r).Msg("usage recorder panicked")
		}
	}()
	s.usage.RecordUsage(store.UsageRecord{
		ModelID:            req.ModelID,
		RequestID:          resp.RequestID,
		ResponseTimeMillis: resp.ProcessingTimeMillis,
		InputSize:          jsonSize(req.InputData),
		OutputSize:         jsonSize(resp.Output),
		Success:            resp.Status == types.PredictionSuccess,
		ErrorMessage:       resp.Error,
	})
}

// LoadModel validates metadata and then loads. The validate-then-load order
// is an invariant: failed validation never touches the cache.
func (s *Service) LoadModel(ctx context.Context, md types.ModelMetadata) error {
	if vr := s.validator.ValidateModel(md); !vr.Valid {
		err := ErrValidation(vr.Errors)
		s.setLastErr(err)
		return err
	}
	if err := s.loader.Load(ctx, md); err != nil {
		s.setLastErr(err)
		return err
	}
	return nil
}

// PreloadModel loads only when not already resident. Idempotent.
func (s *Service) PreloadModel(ctx context.Context, md types.ModelMetadata) error {
	if s.loader.IsLoaded(md.ID) {
		return nil
	}
	return s.LoadModel(ctx, md)
}

// UnloadModel removes the model from the cache and releases its resources.
func (s *Service) UnloadModel(modelID string) {
	s.loader.Unload(modelID)
}

// IsModelLoaded reports residence without touching recency.
func (s *Service) IsModelLoaded(modelID string) bool {
	return s.loader.IsLoaded(modelID)
}

// WarmupModel exercises the prediction path once to trigger any lazy
// initialization in the runtime. The model must already be loaded; that
// failing is fatal to the caller. A failed sample prediction is logged and
// discarded: warmup is best-effort by contract.
func (s *Service) WarmupModel(ctx context.Context, modelID string, sampleInput any) error {
	_, release, ok := s.loader.Acquire(modelID)
	if !ok {
		return ErrNotLoaded(modelID)
	}
	release()
	if sampleInput == nil {
		return nil
	}
	resp, _ := s.Predict(ctx, types.PredictionRequest{ModelID: modelID, InputData: sampleInput})
	if resp.Status == types.PredictionFailed {
		s.log.Warn().Str("model", modelID).Str("error", resp.Error).Msg("warmup prediction failed")
	}
	return nil
}

// CacheStats exposes the loader's cache snapshot.
func (s *Service) CacheStats() types.CacheStatsResponse {
	return s.loader.Stats()
}

// GetModel returns metadata for id, or nil when unknown.
func (s *Service) GetModel(id string) *types.ModelMetadata {
	if s.meta == nil {
		return nil
	}
	return s.meta.FindByID(id)
}

// ListModels returns all known metadata rows.
func (s *Service) ListModels() []types.ModelMetadata {
	if s.meta == nil {
		return nil
	}
	return s.meta.List(false)
}

// ValidateInput checks input against the declared schema of a known model.
// Used by the standalone validation endpoint; prefers the live store row's
// schema, falling back to the loaded handle.
func (s *Service) ValidateInput(modelID string, input any) (types.ValidationResult, error) {
	var schema *types.InputSchema
	if md := s.GetModel(modelID); md != nil {
		schema = md.InputSchema
	} else if model, release, ok := s.loader.Acquire(modelID); ok {
		schema = model.Schema()
		release()
	} else {
		return types.ValidationResult{}, ErrNotLoaded(modelID)
	}
	return s.validator.ValidateInput(modelID, input, schema), nil
}

// Ready reports whether the service can serve requests.
func (s *Service) Ready() bool { return true }

// Status builds a detailed status response for /status.
func (s *Service) Status() types.StatusResponse {
	s.errMu.Lock()
	lastErr := s.lastErr
	s.errMu.Unlock()
	modelsTotal := 0
	if s.meta != nil {
		modelsTotal = s.meta.Count()
	}
	return types.StatusResponse{
		State:            "ready",
		Cache:            s.loader.Stats(),
		ModelsTotal:      modelsTotal,
		PredictionsTotal: s.predictionsTotal.Load(),
		PredictionErrors: s.predictionErrors.Load(),
		UptimeSeconds:    int64(time.Since(s.startTime).Seconds()),
		ServerTimeUnix:   time.Now().Unix(),
		LastError:        lastErr,
	}
}

func (s *Service) setLastErr(err error) {
	s.errMu.Lock()
	s.lastErr = err.Error()
	s.errMu.Unlock()
}

// jsonSize measures a payload as the length of its JSON encoding.
func jsonSize(v any) int {
	if v == nil {
		return 0
	}
	b, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(b)
}
