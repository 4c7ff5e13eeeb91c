package types

// PredictionRequest is the payload accepted by POST /predict/{modelID}.
type PredictionRequest struct {
	// Model identifier. Populated from the URL when served over HTTP.
	// example: house-price-v1
	ModelID string `json:"model_id,omitempty" example:"house-price-v1"`
	// Arbitrary JSON input passed to the model. Shape is checked against
	// the model's declared input schema before execution.
	InputData any `json:"input_data"`
}

// PredictionStatus is the terminal status of a prediction request.
type PredictionStatus string

const (
	PredictionSuccess PredictionStatus = "success"
	PredictionFailed  PredictionStatus = "error"
)

// PredictionResponse is always returned by the predict path, success or not.
type PredictionResponse struct {
	// Unique identifier assigned to this request.
	// example: 7f9c24e8-3b2a-4f43-8dfc-9adf1e69a3e7
	RequestID string `json:"request_id,omitempty" example:"7f9c24e8-3b2a-4f43-8dfc-9adf1e69a3e7"`
	// Model that served (or failed to serve) the request.
	// example: house-price-v1
	ModelID string `json:"model_id" example:"house-price-v1"`
	// Untyped model output; nil when Status is "error".
	Output any `json:"output,omitempty"`
	// Wall-clock processing time in milliseconds, measured from request start.
	// example: 12
	ProcessingTimeMillis int64 `json:"processing_time_ms" example:"12"`
	// Terminal status: success or error.
	// example: success
	Status PredictionStatus `json:"status" example:"success"`
	// Human-readable error text when Status is "error".
	Error string `json:"error,omitempty"`
}

// ValidationResult reports the outcome of a metadata or input validation.
// Errors are fatal for the caller; warnings are advisory only.
type ValidationResult struct {
	// True when no errors were found.
	// example: true
	Valid bool `json:"is_valid" example:"true"`
	// Fatal problems; non-empty means the checked object must be rejected.
	Errors []string `json:"errors,omitempty"`
	// Non-fatal observations.
	Warnings []string `json:"warnings,omitempty"`
}

// CacheEntryStats describes one resident cache entry for observability.
type CacheEntryStats struct {
	// Model identifier of the entry.
	// example: house-price-v1
	ModelID string `json:"model_id" example:"house-price-v1"`
	// Serialization format of the loaded model.
	// example: joblib
	Format Format `json:"format" example:"joblib"`
	// Last access time (unix seconds). Reads count as use.
	// example: 1700000000
	LastAccessUnix int64 `json:"last_access_unix" example:"1700000000"`
	// Number of predictions currently borrowing this handle.
	// example: 0
	Pins int `json:"pins" example:"0"`
}

// CacheStatsResponse is returned by GET /predict/cache/stats.
type CacheStatsResponse struct {
	// Current number of resident models.
	// example: 3
	Size int `json:"size" example:"3"`
	// Fixed capacity configured at construction.
	// example: 5
	Capacity int `json:"capacity" example:"5"`
	// Cache hits since start.
	// example: 240
	Hits uint64 `json:"hits" example:"240"`
	// Cache misses since start.
	// example: 12
	Misses uint64 `json:"misses" example:"12"`
	// Evictions performed since start.
	// example: 4
	Evictions uint64 `json:"evictions" example:"4"`
	// Per-entry detail.
	Entries []CacheEntryStats `json:"entries"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of known models.
	Models []ModelMetadata `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Overall service state (loading, ready, error).
	// example: ready
	State string `json:"state" example:"ready"`
	// Cache statistics snapshot.
	Cache CacheStatsResponse `json:"cache"`
	// Number of models known to the metadata store.
	// example: 7
	ModelsTotal int `json:"models_total" example:"7"`
	// Total predictions served since start.
	// example: 252
	PredictionsTotal uint64 `json:"predictions_total" example:"252"`
	// Total predictions that ended in an error status.
	// example: 9
	PredictionErrors uint64 `json:"prediction_errors" example:"9"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Last administrative error observed, if any.
	LastError string `json:"last_error,omitempty"`
}
