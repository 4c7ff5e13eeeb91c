package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"predictd/internal/inference"
	"predictd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Predict(ctx context.Context, req types.PredictionRequest) (types.PredictionResponse, error)
	LoadModel(ctx context.Context, md types.ModelMetadata) error
	UnloadModel(modelID string)
	IsModelLoaded(modelID string) bool
	WarmupModel(ctx context.Context, modelID string, sampleInput any) error
	ValidateInput(modelID string, input any) (types.ValidationResult, error)
	CacheStats() types.CacheStatsResponse
	GetModel(id string) *types.ModelMetadata
	ListModels() []types.ModelMetadata
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		methods := corsAllowedMethods
		if len(methods) == 0 {
			methods = []string{"GET", "POST", "OPTIONS"}
		}
		headers := corsAllowedHeaders
		if len(headers) == 0 {
			headers = []string{"Accept", "Content-Type", "X-Log-Level"}
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: methods,
			AllowedHeaders: headers,
		}))
	}

	r.Route("/predict", func(r chi.Router) {
		r.Get("/cache/stats", handleCacheStats(svc))
		r.Post("/{modelID}", handlePredict(svc))
		r.Get("/{modelID}/schema", handleSchema(svc))
		r.Post("/{modelID}/validate", handleValidate(svc))
		r.Post("/{modelID}/warmup", handleWarmup(svc))
	})

	r.Route("/models", func(r chi.Router) {
		r.Get("/", handleListModels(svc))
		r.Get("/{modelID}", handleGetModel(svc))
		r.Post("/{modelID}/load", handleLoad(svc))
		r.Post("/{modelID}/unload", handleUnload(svc))
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// decodeJSONBody enforces content type and the body size cap, decoding into v.
// Returns false after writing an error response when decoding fails.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Oversized bodies surface here too; return 400 without size detail.
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Error().Err(err).Msg("encode response")
	}
}

// handlePredict serves POST /predict/{modelID}. The body is the arbitrary
// JSON input payload. The response body is always a PredictionResponse;
// the HTTP status mirrors the error class so dashboards can alert without
// parsing bodies.
//
// @Summary      Run a prediction
// @Accept       json
// @Produce      json
// @Param        modelID  path  string  true  "Model identifier"
// @Success      200  {object}  types.PredictionResponse
// @Failure      400  {object}  types.PredictionResponse
// @Failure      404  {object}  types.PredictionResponse
// @Failure      429  {object}  types.PredictionResponse
// @Router       /predict/{modelID} [post]
func handlePredict(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		modelID := chi.URLParam(r, "modelID")
		var input any
		if !decodeJSONBody(w, r, &input) {
			return
		}

		// Join server base context with request context so shutdown cancels work too.
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()

		start := time.Now()
		resp, err := svc.Predict(joinedCtx, types.PredictionRequest{ModelID: modelID, InputData: input})
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			// Client disconnect or shutdown; nothing useful to write.
			return
		}
		status := statusForError(err)
		if status == http.StatusTooManyRequests {
			IncrementBackpressure("predict")
		}
		if requestLogLevel(r) >= LevelInfo {
			logPredict(r, resp.RequestID, modelID, status, time.Since(start).Milliseconds(), resp.Error)
		}
		writeJSON(w, status, resp)
	}
}

// handleSchema serves GET /predict/{modelID}/schema.
func handleSchema(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		modelID := chi.URLParam(r, "modelID")
		md := svc.GetModel(modelID)
		if md == nil {
			writeJSONError(w, http.StatusNotFound, "model not found: "+modelID)
			return
		}
		schema := md.InputSchema
		if schema == nil {
			schema = &types.InputSchema{}
		}
		writeJSON(w, http.StatusOK, schema)
	}
}

// handleValidate serves POST /predict/{modelID}/validate. The body is the
// input payload to check; the response is the ValidationResult.
func handleValidate(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		modelID := chi.URLParam(r, "modelID")
		var input any
		if !decodeJSONBody(w, r, &input) {
			return
		}
		vr, err := svc.ValidateInput(modelID, input)
		if err != nil {
			writeJSONError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, vr)
	}
}

// handleWarmup serves POST /predict/{modelID}/warmup. An optional JSON body
// supplies the sample input; with no body the warmup only verifies the
// model is resident.
func handleWarmup(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		modelID := chi.URLParam(r, "modelID")
		var sample any
		if r.ContentLength > 0 {
			if !decodeJSONBody(w, r, &sample) {
				return
			}
		}
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if err := svc.WarmupModel(joinedCtx, modelID, sample); err != nil {
			writeJSONError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"model_id": modelID, "warmed_up": true})
	}
}

// handleCacheStats serves GET /predict/cache/stats.
func handleCacheStats(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.CacheStats())
	}
}

func handleListModels(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		models := svc.ListModels()
		if models == nil {
			models = []types.ModelMetadata{}
		}
		writeJSON(w, http.StatusOK, types.ModelsResponse{Models: models})
	}
}

func handleGetModel(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		modelID := chi.URLParam(r, "modelID")
		md := svc.GetModel(modelID)
		if md == nil {
			writeJSONError(w, http.StatusNotFound, "model not found: "+modelID)
			return
		}
		writeJSON(w, http.StatusOK, md)
	}
}

// handleLoad serves POST /models/{modelID}/load: an administrative,
// error-propagating operation, unlike the predict path.
func handleLoad(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		modelID := chi.URLParam(r, "modelID")
		md := svc.GetModel(modelID)
		if md == nil {
			writeJSONError(w, http.StatusNotFound, "model not found: "+modelID)
			return
		}
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if err := svc.LoadModel(joinedCtx, *md); err != nil {
			if inference.IsValidation(err) || inference.IsUnsupportedFormat(err) {
				writeJSONError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"model_id": modelID, "loaded": true})
	}
}

func handleUnload(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		modelID := chi.URLParam(r, "modelID")
		svc.UnloadModel(modelID)
		writeJSON(w, http.StatusOK, map[string]any{"model_id": modelID, "loaded": false})
	}
}
