package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the single configuration record handed to a pipeline run.
// Everything the pipeline does is a pure function of (bundles, Config);
// the lookup tables live here rather than as package globals so a caller
// can override any of them per run.
type Config struct {
	Extraction  ExtractionConfig           `toml:"extraction"`
	Frameworks  map[string]FrameworkConfig `toml:"frameworks"`
	HTTP2       HTTP2Config                `toml:"http2"`
	Cache       CacheConfig                `toml:"cache"`
	Performance PerformanceConfig          `toml:"performance"`

	// DependencySizes maps dependency name -> estimated byte size. Names
	// absent from the table fall back to DefaultDependencySize.
	DependencySizes map[string]int64 `toml:"dependency_sizes"`

	// StabilityScores maps dependency name -> 0..1 change-rarity estimate.
	StabilityScores map[string]float64 `toml:"stability_scores"`

	// FrameworkCoreLibs lists dependencies treated as framework runtimes
	// for importance-tier purposes.
	FrameworkCoreLibs []string `toml:"framework_core_libs"`

	DefaultDependencySize int64   `toml:"default_dependency_size"`
	DefaultStability      float64 `toml:"default_stability"`
}

type ExtractionConfig struct {
	// MinSharedCount is the number of distinct frameworks that must import
	// a dependency before it qualifies for extraction.
	MinSharedCount int `toml:"min_shared_count"`

	// MaxSharedChunkSize bounds the bin-packing: no shared chunk may
	// exceed this many bytes.
	MaxSharedChunkSize int64 `toml:"max_shared_chunk_size"`

	// MinDependencySize is the extraction floor; smaller dependencies are
	// not worth a separate request.
	MinDependencySize int64 `toml:"min_dependency_size"`

	// PriorityDependencies are always extracted, thresholds notwithstanding.
	PriorityDependencies []string `toml:"priority_dependencies"`
}

// FrameworkConfig carries the per-framework tuning knobs. Exclude patterns
// are gitignore-style and matched against dependency names. A framework
// with a zero CoreTarget is never split.
type FrameworkConfig struct {
	Exclude          []string `toml:"exclude"`
	CoreTarget       int64    `toml:"core_target"`
	AdapterTarget    int64    `toml:"adapter_target"`
	UtilityChunkSize int64    `toml:"utility_chunk_size"`
	CoreRatio        float64  `toml:"core_ratio"`
	AdapterRatio     float64  `toml:"adapter_ratio"`
}

type HTTP2Config struct {
	MaxConcurrentStreams int   `toml:"max_concurrent_streams"`
	OptimalChunkSize     int64 `toml:"optimal_chunk_size"`
	MinChunkSize         int64 `toml:"min_chunk_size"`
	MaxChunkSize         int64 `toml:"max_chunk_size"`

	Push ServerPushConfig `toml:"push"`
}

type ServerPushConfig struct {
	Enabled       bool  `toml:"enabled"`
	SizeThreshold int64 `toml:"size_threshold"`
	MaxResources  int   `toml:"max_resources"`

	// PriorityMap maps bundle type -> push weight; higher pushes earlier.
	PriorityMap map[string]int `toml:"priority_map"`
}

type CacheConfig struct {
	// BaseMaxAge is the reference max-age in seconds (24h equivalent);
	// the strategy table scales it per update frequency and stability.
	BaseMaxAge int64 `toml:"base_max_age"`

	// MaxAgeCeiling caps every assigned max-age.
	MaxAgeCeiling int64 `toml:"max_age_ceiling"`

	// LargeBundleThreshold is the size above which eviction priority is
	// penalized.
	LargeBundleThreshold int64 `toml:"large_bundle_threshold"`

	BackgroundUpdateInterval int64 `toml:"background_update_interval"`

	// Patterns force a strategy for matching bundle names, bypassing the
	// frequency/stability table. First match wins.
	Patterns []CachePattern `toml:"patterns"`

	VersioningStrategy string   `toml:"versioning_strategy"`
	InvalidationRules  []string `toml:"invalidation_rules"`
}

type CachePattern struct {
	Pattern  string `toml:"pattern"`
	Strategy string `toml:"strategy"`
}

type PerformanceConfig struct {
	MaxInitialBundleSize int64   `toml:"max_initial_bundle_size"`
	TargetCacheHitRate   float64 `toml:"target_cache_hit_rate"`
	MaxLoadTimeMS        int64   `toml:"max_load_time_ms"`
	MinCompressionRatio  float64 `toml:"min_compression_ratio"`
}

// Default returns the built-in configuration: thresholds tuned for a
// multi-framework UI build and the static dependency size/stability tables.
func Default() Config {
	return Config{
		Extraction: ExtractionConfig{
			MinSharedCount:       2,
			MaxSharedChunkSize:   250 * 1024,
			MinDependencySize:    20 * 1024,
			PriorityDependencies: []string{},
		},
		Frameworks: map[string]FrameworkConfig{
			"react": {
				CoreTarget:       130 * 1024,
				AdapterTarget:    64 * 1024,
				UtilityChunkSize: 100 * 1024,
				CoreRatio:        0.35,
				AdapterRatio:     0.15,
			},
			"vue": {
				CoreTarget:       100 * 1024,
				AdapterTarget:    48 * 1024,
				UtilityChunkSize: 80 * 1024,
				CoreRatio:        0.4,
				AdapterRatio:     0.15,
			},
			"angular": {
				CoreTarget:       180 * 1024,
				AdapterTarget:    80 * 1024,
				UtilityChunkSize: 120 * 1024,
				CoreRatio:        0.35,
				AdapterRatio:     0.2,
			},
			"svelte": {
				CoreTarget:       60 * 1024,
				AdapterTarget:    32 * 1024,
				UtilityChunkSize: 60 * 1024,
				CoreRatio:        0.45,
				AdapterRatio:     0.1,
			},
		},
		HTTP2: HTTP2Config{
			MaxConcurrentStreams: 100,
			OptimalChunkSize:     64 * 1024,
			MinChunkSize:         16 * 1024,
			MaxChunkSize:         256 * 1024,
			Push: ServerPushConfig{
				Enabled:       true,
				SizeThreshold: 50 * 1024,
				MaxResources:  5,
				PriorityMap: map[string]int{
					"main":   256,
					"core":   220,
					"vendor": 180,
					"shared": 180,
					"chunk":  110,
				},
			},
		},
		Cache: CacheConfig{
			BaseMaxAge:               86400,
			MaxAgeCeiling:            30 * 86400,
			LargeBundleThreshold:     200 * 1024,
			BackgroundUpdateInterval: 3600,
			VersioningStrategy:       "content-hash",
			InvalidationRules:        []string{"deploy", "hash-mismatch"},
		},
		Performance: PerformanceConfig{
			MaxInitialBundleSize: 500 * 1024,
			TargetCacheHitRate:   0.85,
			MaxLoadTimeMS:        3000,
			MinCompressionRatio:  0.25,
		},
		DependencySizes:       defaultDependencySizes(),
		StabilityScores:       defaultStabilityScores(),
		FrameworkCoreLibs:     []string{"react", "react-dom", "vue", "@angular/core", "svelte", "preact"},
		DefaultDependencySize: 10 * 1024,
		DefaultStability:      0.5,
	}
}

func defaultDependencySizes() map[string]int64 {
	return map[string]int64{
		"react":         42 * 1024,
		"react-dom":     130 * 1024,
		"vue":           34 * 1024,
		"@angular/core": 90 * 1024,
		"svelte":        10 * 1024,
		"preact":        4 * 1024,
		"lodash":        72 * 1024,
		"rxjs":          50 * 1024,
		"moment":        66 * 1024,
		"date-fns":      20 * 1024,
		"axios":         14 * 1024,
		"zod":           12 * 1024,
	}
}

func defaultStabilityScores() map[string]float64 {
	return map[string]float64{
		"react":         0.95,
		"react-dom":     0.95,
		"vue":           0.9,
		"@angular/core": 0.9,
		"svelte":        0.85,
		"preact":        0.9,
		"lodash":        0.95,
		"rxjs":          0.9,
		"moment":        0.95,
		"date-fns":      0.9,
		"axios":         0.9,
		"zod":           0.85,
	}
}

// Load reads a TOML file over the defaults. Map-valued tables (dependency
// sizes, stability scores, frameworks) merge key-by-key over the built-ins;
// scalar sections replace wholesale. A missing path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, err
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	ensureMaps(&cfg)
	return cfg, nil
}

// Save writes the configuration atomically, the same tmp+rename dance used
// for every file this tool persists.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// SizeFor returns the estimated byte size for a dependency name.
func (c Config) SizeFor(name string) int64 {
	if size, ok := c.DependencySizes[name]; ok {
		return size
	}
	return c.DefaultDependencySize
}

// StabilityFor returns the stability score for a dependency name.
func (c Config) StabilityFor(name string) float64 {
	if score, ok := c.StabilityScores[name]; ok {
		return score
	}
	return c.DefaultStability
}

// IsPriorityDependency matches a priority entry against a dependency and
// its companion packages: "react" covers react-dom and react/jsx-runtime.
func (c Config) IsPriorityDependency(name string) bool {
	for _, dep := range c.Extraction.PriorityDependencies {
		if name == dep || strings.HasPrefix(name, dep+"-") || strings.HasPrefix(name, dep+"/") {
			return true
		}
	}
	return false
}

func (c Config) IsFrameworkCoreLib(name string) bool {
	for _, lib := range c.FrameworkCoreLibs {
		if lib == name {
			return true
		}
	}
	return false
}

func ensureMaps(cfg *Config) {
	if cfg.Frameworks == nil {
		cfg.Frameworks = map[string]FrameworkConfig{}
	}
	if cfg.DependencySizes == nil {
		cfg.DependencySizes = map[string]int64{}
	}
	if cfg.StabilityScores == nil {
		cfg.StabilityScores = map[string]float64{}
	}
	if cfg.HTTP2.Push.PriorityMap == nil {
		cfg.HTTP2.Push.PriorityMap = map[string]int{}
	}
}
