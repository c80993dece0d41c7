// Package config provides cortexd's layered configuration: hardcoded
// defaults, overlaid by a project file (.cortexd.yaml), overlaid by
// CORTEXD_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete cortexd configuration.
type Config struct {
	Version     int               `yaml:"version"`
	Storage     StorageConfig     `yaml:"storage"`
	Analysis    AnalysisConfig    `yaml:"analysis"`
	Vector      VectorConfig      `yaml:"vector"`
	Cognitive   CognitiveConfig   `yaml:"cognitive"`
	Performance PerformanceConfig `yaml:"performance"`
	Server      ServerConfig      `yaml:"server"`
}

// StorageConfig selects and tunes the SQLite-backed storage layer.
type StorageConfig struct {
	Driver         string `yaml:"driver"` // "modernc" (pure Go, default) or "mattn" (cgo)
	DataDir        string `yaml:"data_dir"`
	MinConnections int    `yaml:"min_connections"`
	MaxConnections int    `yaml:"max_connections"`
	ConnTimeout    string `yaml:"conn_timeout"`
	ContentCacheMB int    `yaml:"content_cache_mb"`
}

// AnalysisConfig tunes the code-analysis pipeline.
type AnalysisConfig struct {
	Languages          []string `yaml:"languages"`
	MaxFileSizeBytes   int64    `yaml:"max_file_size_bytes"`
	IndexWorkers       int      `yaml:"index_workers"`
	WatchDebounce      string   `yaml:"watch_debounce"`
}

// VectorConfig configures the semantic vector index and its migration mode.
type VectorConfig struct {
	Dimension  int    `yaml:"dimension"`
	Model      string `yaml:"model"`
	Mode       string `yaml:"mode"` // single_store | dual_write | dual_verify | new_primary
	IndexPath  string `yaml:"index_path"`
}

// CognitiveConfig tunes memory retrieval weights and working-memory limits.
type CognitiveConfig struct {
	RecencyWeight    float64 `yaml:"recency_weight"`
	RelevanceWeight  float64 `yaml:"relevance_weight"`
	ImportanceWeight float64 `yaml:"importance_weight"`
	WorkingMaxItems  int     `yaml:"working_max_items"`
	WorkingMaxBytes  int64   `yaml:"working_max_bytes"`
	ForgetThreshold  float64 `yaml:"forget_threshold"`
}

// PerformanceConfig bounds resource usage.
type PerformanceConfig struct {
	MaxFiles      int    `yaml:"max_files"`
	MemoryLimit   string `yaml:"memory_limit"`
	SQLiteCacheMB int    `yaml:"sqlite_cache_mb"`
}

// ServerConfig configures the MCP transport.
type ServerConfig struct {
	Transport string `yaml:"transport"` // "stdio" (only transport wired)
	LogLevel  string `yaml:"log_level"`
}

// Default returns the hardcoded baseline configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			Driver:         "modernc",
			DataDir:        defaultDataDir(),
			MinConnections: 1,
			MaxConnections: 8,
			ConnTimeout:    "5s",
			ContentCacheMB: 256,
		},
		Analysis: AnalysisConfig{
			Languages:        []string{"go", "typescript", "tsx", "javascript", "python"},
			MaxFileSizeBytes: 5 * 1024 * 1024,
			IndexWorkers:     runtime.NumCPU(),
			WatchDebounce:    "500ms",
		},
		Vector: VectorConfig{
			Dimension: 256, // matches internal/embed's StaticEmbedder width
			Model:     "static-hash-256",
			Mode:      "single_store",
			IndexPath: filepath.Join(defaultDataDir(), "vectors"),
		},
		Cognitive: CognitiveConfig{
			RecencyWeight:    0.3,
			RelevanceWeight:  0.5,
			ImportanceWeight: 0.2,
			WorkingMaxItems:  512,
			WorkingMaxBytes:  64 * 1024 * 1024,
			ForgetThreshold:  0.05,
		},
		Performance: PerformanceConfig{
			MaxFiles:      100000,
			MemoryLimit:   "auto",
			SQLiteCacheMB: 64,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".cortexd")
	}
	return filepath.Join(home, ".cortexd")
}

// Load builds a Config by layering defaults, a project file
// (.cortexd.yaml in dir), and CORTEXD_* environment overrides.
func Load(dir string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".cortexd.yaml", ".cortexd.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return c.loadYAML(path)
		}
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero fields of other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Storage.Driver != "" {
		c.Storage.Driver = other.Storage.Driver
	}
	if other.Storage.DataDir != "" {
		c.Storage.DataDir = other.Storage.DataDir
	}
	if other.Storage.MinConnections != 0 {
		c.Storage.MinConnections = other.Storage.MinConnections
	}
	if other.Storage.MaxConnections != 0 {
		c.Storage.MaxConnections = other.Storage.MaxConnections
	}
	if other.Storage.ConnTimeout != "" {
		c.Storage.ConnTimeout = other.Storage.ConnTimeout
	}
	if other.Storage.ContentCacheMB != 0 {
		c.Storage.ContentCacheMB = other.Storage.ContentCacheMB
	}
	if len(other.Analysis.Languages) > 0 {
		c.Analysis.Languages = other.Analysis.Languages
	}
	if other.Analysis.MaxFileSizeBytes != 0 {
		c.Analysis.MaxFileSizeBytes = other.Analysis.MaxFileSizeBytes
	}
	if other.Analysis.IndexWorkers != 0 {
		c.Analysis.IndexWorkers = other.Analysis.IndexWorkers
	}
	if other.Analysis.WatchDebounce != "" {
		c.Analysis.WatchDebounce = other.Analysis.WatchDebounce
	}
	if other.Vector.Dimension != 0 {
		c.Vector.Dimension = other.Vector.Dimension
	}
	if other.Vector.Model != "" {
		c.Vector.Model = other.Vector.Model
	}
	if other.Vector.Mode != "" {
		c.Vector.Mode = other.Vector.Mode
	}
	if other.Vector.IndexPath != "" {
		c.Vector.IndexPath = other.Vector.IndexPath
	}
	if other.Cognitive.RecencyWeight != 0 {
		c.Cognitive.RecencyWeight = other.Cognitive.RecencyWeight
	}
	if other.Cognitive.RelevanceWeight != 0 {
		c.Cognitive.RelevanceWeight = other.Cognitive.RelevanceWeight
	}
	if other.Cognitive.ImportanceWeight != 0 {
		c.Cognitive.ImportanceWeight = other.Cognitive.ImportanceWeight
	}
	if other.Cognitive.WorkingMaxItems != 0 {
		c.Cognitive.WorkingMaxItems = other.Cognitive.WorkingMaxItems
	}
	if other.Cognitive.WorkingMaxBytes != 0 {
		c.Cognitive.WorkingMaxBytes = other.Cognitive.WorkingMaxBytes
	}
	if other.Cognitive.ForgetThreshold != 0 {
		c.Cognitive.ForgetThreshold = other.Cognitive.ForgetThreshold
	}
	if other.Performance.MaxFiles != 0 {
		c.Performance.MaxFiles = other.Performance.MaxFiles
	}
	if other.Performance.MemoryLimit != "" {
		c.Performance.MemoryLimit = other.Performance.MemoryLimit
	}
	if other.Performance.SQLiteCacheMB != 0 {
		c.Performance.SQLiteCacheMB = other.Performance.SQLiteCacheMB
	}
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CORTEXD_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("CORTEXD_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("CORTEXD_VECTOR_MODE"); v != "" {
		c.Vector.Mode = v
	}
	if v := os.Getenv("CORTEXD_VECTOR_DIMENSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Vector.Dimension = n
		}
	}
	if v := os.Getenv("CORTEXD_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
}

// Validate rejects configurations that would leave a subsystem unable to
// start: a connection pool whose max is below its min, an unparseable
// connection timeout, a non-positive vector dimension, an unknown
// migration mode, or retrieval weights that don't sum close to 1.
func (c *Config) Validate() error {
	if c.Storage.MaxConnections < c.Storage.MinConnections {
		return fmt.Errorf("storage.max_connections (%d) must be >= min_connections (%d)",
			c.Storage.MaxConnections, c.Storage.MinConnections)
	}
	if _, err := time.ParseDuration(c.Storage.ConnTimeout); err != nil {
		return fmt.Errorf("storage.conn_timeout: %w", err)
	}
	if c.Vector.Dimension <= 0 {
		return fmt.Errorf("vector.dimension must be positive, got %d", c.Vector.Dimension)
	}
	switch c.Vector.Mode {
	case "single_store", "dual_write", "dual_verify", "new_primary":
	default:
		return fmt.Errorf("vector.mode %q is not one of single_store|dual_write|dual_verify|new_primary", c.Vector.Mode)
	}
	sum := c.Cognitive.RecencyWeight + c.Cognitive.RelevanceWeight + c.Cognitive.ImportanceWeight
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("cognitive retrieval weights must sum to 1.0, got %.3f", sum)
	}
	return nil
}

// WriteYAML serializes c and writes it to path, creating parent
// directories as needed.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// FindProjectRoot walks up from startDir looking for a .git directory
// or a .cortexd.yaml/.cortexd.yml file, returning the first directory
// that has one. If neither is found before reaching the filesystem
// root, it returns startDir's absolute path unchanged.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("config: absolute path: %w", err)
	}

	dir := absDir
	for {
		if dirExists(filepath.Join(dir, ".git")) {
			return dir, nil
		}
		if fileExists(filepath.Join(dir, ".cortexd.yaml")) || fileExists(filepath.Join(dir, ".cortexd.yml")) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return absDir, nil
		}
		dir = parent
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
