package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"predictd/internal/common/fsutil"
	"predictd/pkg/types"
)

// formatByExt maps recognized model-file extensions to their format tags.
var formatByExt = map[string]types.Format{
	".pkl":    types.FormatPickle,
	".pickle": types.FormatPickle,
	".joblib": types.FormatJoblib,
	".h5":     types.FormatKeras,
	".keras":  types.FormatKeras,
	".onnx":   types.FormatONNX,
	".pt":     types.FormatPyTorch,
	".pth":    types.FormatTorchState,
}

// FormatForPath returns the format tag for a model file path, based on its
// extension, and whether the extension is recognized.
func FormatForPath(path string) (types.Format, bool) {
	f, ok := formatByExt[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// ModelScanner builds model metadata from files found in a directory.
type ModelScanner struct{}

func NewModelScanner() *ModelScanner { return &ModelScanner{} }

// Scan walks dir (non-recursively) for files with recognized model
// extensions and builds metadata for each. An optional sidecar file named
// <model-file>.schema.json supplies the input schema. The model ID is the
// file name without its extension; a uuid is assigned for name collisions
// so two files never share an identifier.
func (s *ModelScanner) Scan(dir string) ([]types.ModelMetadata, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	seen := make(map[string]bool)
	var models []types.ModelMetadata
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		format, ok := FormatForPath(name)
		if !ok {
			continue
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		if seen[id] {
			id = id + "-" + uuid.NewString()[:8]
		}
		seen[id] = true
		p := filepath.Join(abs, name)
		md := types.ModelMetadata{
			ID:          id,
			Name:        id,
			Format:      format,
			Path:        p,
			EndpointURL: "/predict/" + id,
			Status:      types.StatusActive,
			CreatedAt:   fileCreatedAt(p),
		}
		if schema, err := loadSidecarSchema(p); err == nil && schema != nil {
			md.InputSchema = schema
		}
		models = append(models, md)
	}
	return models, nil
}

// LoadDir is a convenience wrapper around the default scanner.
func LoadDir(dir string) ([]types.ModelMetadata, error) {
	return NewModelScanner().Scan(dir)
}

// loadSidecarSchema reads <modelPath>.schema.json if present.
func loadSidecarSchema(modelPath string) (*types.InputSchema, error) {
	p := modelPath + ".schema.json"
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var schema types.InputSchema
	if err := json.Unmarshal(b, &schema); err != nil {
		return nil, fmt.Errorf("sidecar schema %s: %w", p, err)
	}
	return &schema, nil
}

// fileCreatedAt approximates creation time with mtime; good enough for
// metadata rows seeded from a directory scan.
func fileCreatedAt(path string) time.Time {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Now()
	}
	return fi.ModTime()
}
