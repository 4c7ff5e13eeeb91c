package types

import "time"

// Format identifies the serialization family a model file belongs to.
type Format string

const (
	FormatPickle     Format = "pickle"
	FormatJoblib     Format = "joblib"
	FormatKeras      Format = "keras"
	FormatONNX       Format = "onnx"
	FormatPyTorch    Format = "pytorch"
	FormatTorchState Format = "pytorch_state"
)

// KnownFormats lists every supported format tag.
var KnownFormats = []Format{
	FormatPickle, FormatJoblib, FormatKeras, FormatONNX, FormatPyTorch, FormatTorchState,
}

// Valid reports whether f is a member of the supported enumeration.
func (f Format) Valid() bool {
	for _, k := range KnownFormats {
		if f == k {
			return true
		}
	}
	return false
}

// ModelStatus is the lifecycle status of an uploaded model. Models are never
// physically deleted; StatusDeleted is a soft delete.
type ModelStatus string

const (
	StatusActive   ModelStatus = "active"
	StatusInactive ModelStatus = "inactive"
	StatusArchived ModelStatus = "archived"
	StatusDeleted  ModelStatus = "deleted"
)

// FieldSpec declares the expected primitive type of a single input field.
type FieldSpec struct {
	// JSON-schema primitive type: number, integer, string, boolean, array, object.
	// example: number
	Type string `json:"type" example:"number"`
	// Optional human-readable description of the field.
	Description string `json:"description,omitempty"`
}

// InputSchema is the JSON-schema-like declaration of a model's expected input.
// A nil schema means any non-null payload is accepted.
type InputSchema struct {
	// Field names that must be present in every prediction input.
	// example: ["bedrooms","bathrooms","sqft","age"]
	Required []string `json:"required,omitempty"`
	// Per-field type declarations.
	Properties map[string]FieldSpec `json:"properties,omitempty"`
}

// ModelMetadata describes an uploaded model. Rows are created by the upload
// flow, mutated by usage tracking and status updates, and soft-deleted only.
type ModelMetadata struct {
	// Stable identifier for the model.
	// example: house-price-v1
	ID string `json:"id" example:"house-price-v1"`
	// Human-friendly name.
	// example: House Price Regressor
	Name string `json:"name" example:"House Price Regressor"`
	// Optional free-form description.
	Description string `json:"description,omitempty"`
	// Identifier of the owning user.
	// example: u-1042
	UserID string `json:"user_id,omitempty" example:"u-1042"`
	// Serialization format of the model file.
	// example: joblib
	Format Format `json:"format" example:"joblib"`
	// Absolute path to the model file on disk.
	// example: /var/lib/predictd/models/house_price.joblib
	Path string `json:"path" example:"/var/lib/predictd/models/house_price.joblib"`
	// Generated prediction endpoint for this model.
	// example: /predict/house-price-v1
	EndpointURL string `json:"endpoint_url,omitempty" example:"/predict/house-price-v1"`
	// Declared input schema.
	InputSchema *InputSchema `json:"input_schema,omitempty"`
	// Lifecycle status.
	// example: active
	Status ModelStatus `json:"status" example:"active"`
	// Creation time.
	CreatedAt time.Time `json:"created_at"`
	// Last time a prediction was served for this model.
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
	// Cumulative number of prediction requests served.
	// example: 1342
	RequestCount int64 `json:"request_count"`
}
