package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical reader defaults file.
const DefaultConfigPath = "config/reader.defaults.json"

// Backends understood by the inference package.
const (
	BackendGRPC    = "grpc"
	BackendUniform = "uniform"
)

// ReaderConfig configures the frame catalog, the decoded-frame window and the
// inference collaborator. Nil fields fall back to the defaults returned by the
// Get* methods, so partial JSON files are safe.
type ReaderConfig struct {
	// Catalog params
	ScanDir   *string `json:"scan_dir,omitempty"`
	Extension *string `json:"extension,omitempty"`

	// Window params
	BufferSize *int `json:"buffer_size,omitempty"`

	// Decode params
	StrictRecords *bool `json:"strict_records,omitempty"`

	// Inference params
	ModelPath        *string `json:"model_path,omitempty"`
	Backend          *string `json:"backend,omitempty"`
	InferenceAddr    *string `json:"inference_addr,omitempty"`
	InferenceTimeout *string `json:"inference_timeout,omitempty"` // duration string like "2s"; empty disables
	LabelConfig      *string `json:"label_config,omitempty"`
	NumClasses       *int    `json:"num_classes,omitempty"`
}

// Helper functions to create pointers
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptyReaderConfig returns a ReaderConfig with all fields set to nil.
func EmptyReaderConfig() *ReaderConfig {
	return &ReaderConfig{}
}

// DefaultReaderConfig returns a ReaderConfig with every defaulted field
// populated explicitly. ScanDir, ModelPath and LabelConfig stay nil.
func DefaultReaderConfig() *ReaderConfig {
	return &ReaderConfig{
		Extension:        ptrString(".bin"),
		BufferSize:       ptrInt(50),
		StrictRecords:    ptrBool(false),
		Backend:          ptrString(BackendGRPC),
		InferenceAddr:    ptrString("localhost:50051"),
		InferenceTimeout: ptrString(""),
		NumClasses:       ptrInt(20),
	}
}

// LoadReaderConfig loads a ReaderConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadReaderConfig(path string) (*ReaderConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyReaderConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Panics if the file
// cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *ReaderConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/kitti/catalog/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadReaderConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *ReaderConfig) Validate() error {
	if c.BufferSize != nil && *c.BufferSize < 0 {
		return fmt.Errorf("buffer_size must be non-negative, got %d", *c.BufferSize)
	}

	if c.Extension != nil && *c.Extension != "" && (*c.Extension)[0] != '.' {
		return fmt.Errorf("extension must start with '.', got %q", *c.Extension)
	}

	if c.Backend != nil {
		switch *c.Backend {
		case BackendGRPC, BackendUniform:
		default:
			return fmt.Errorf("unknown backend %q (want %q or %q)", *c.Backend, BackendGRPC, BackendUniform)
		}
	}

	if c.InferenceTimeout != nil && *c.InferenceTimeout != "" {
		d, err := time.ParseDuration(*c.InferenceTimeout)
		if err != nil {
			return fmt.Errorf("invalid inference_timeout '%s': %w", *c.InferenceTimeout, err)
		}
		if d < 0 {
			return fmt.Errorf("inference_timeout must be non-negative, got %s", d)
		}
	}

	if c.NumClasses != nil && *c.NumClasses <= 0 {
		return fmt.Errorf("num_classes must be positive, got %d", *c.NumClasses)
	}

	return nil
}

// GetScanDir returns the scan_dir value or "".
func (c *ReaderConfig) GetScanDir() string {
	if c.ScanDir == nil {
		return ""
	}
	return *c.ScanDir
}

// GetExtension returns the frame file extension or the default.
func (c *ReaderConfig) GetExtension() string {
	if c.Extension == nil || *c.Extension == "" {
		return ".bin"
	}
	return *c.Extension
}

// GetBufferSize returns the window capacity or the default.
func (c *ReaderConfig) GetBufferSize() int {
	if c.BufferSize == nil {
		return 50
	}
	return *c.BufferSize
}

// GetStrictRecords returns the strict_records value or the default.
func (c *ReaderConfig) GetStrictRecords() bool {
	if c.StrictRecords == nil {
		return false // default: truncate and warn
	}
	return *c.StrictRecords
}

// GetModelPath returns the model_path value or "".
func (c *ReaderConfig) GetModelPath() string {
	if c.ModelPath == nil {
		return ""
	}
	return *c.ModelPath
}

// GetBackend returns the inference backend or the default.
func (c *ReaderConfig) GetBackend() string {
	if c.Backend == nil || *c.Backend == "" {
		return BackendGRPC
	}
	return *c.Backend
}

// GetInferenceAddr returns the inference_addr value or the default.
func (c *ReaderConfig) GetInferenceAddr() string {
	if c.InferenceAddr == nil || *c.InferenceAddr == "" {
		return "localhost:50051"
	}
	return *c.InferenceAddr
}

// GetInferenceTimeout parses and returns InferenceTimeout. Zero means no timeout.
func (c *ReaderConfig) GetInferenceTimeout() time.Duration {
	if c.InferenceTimeout == nil || *c.InferenceTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.InferenceTimeout)
	if err != nil {
		return 0 // default on parse error
	}
	return d
}

// GetLabelConfig returns the label_config value or "".
func (c *ReaderConfig) GetLabelConfig() string {
	if c.LabelConfig == nil {
		return ""
	}
	return *c.LabelConfig
}

// GetNumClasses returns the num_classes value or the default.
func (c *ReaderConfig) GetNumClasses() int {
	if c.NumClasses == nil {
		return 20
	}
	return *c.NumClasses
}
