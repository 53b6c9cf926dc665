package flatten

import (
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Options configures one import pass. The zero value is usable: 60 fps
// sampling, "root" skeleton token, no texture loading, no caching, no
// logging.
type Options struct {
	// FPS is the animation sample rate. Default: 60.
	FPS float32
	// SkeletonRoot is the path segment identifying a skeleton root inside
	// joint paths, matched exactly per segment. Default: "root".
	SkeletonRoot string
	// Loader resolves texture names to images. When nil, string/URI
	// properties degrade to their semantic's default constant.
	Loader TextureLoader
	// Cache memoizes resolved materials. Only consulted when Loader is
	// also set.
	Cache *MaterialCache
	// Logger receives recoverable-condition diagnostics. Default: no-op.
	Logger *zap.Logger
}

func (o *Options) withDefaults() Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.FPS <= 0 {
		out.FPS = 60
	}
	if out.SkeletonRoot == "" {
		out.SkeletonRoot = "root"
	}
	if out.Logger == nil {
		out.Logger = zap.NewNop()
	}
	return out
}

// Config is the YAML-loadable form of the pipeline settings plus the
// texture-loading knobs the CLI wires up.
type Config struct {
	FPS              float32 `yaml:"fps"`
	SkeletonRoot     string  `yaml:"skeleton_root"`
	TextureDir       string  `yaml:"texture_dir"`
	TextureSizeLimit int     `yaml:"texture_size_limit"`
	MaterialCache    int     `yaml:"material_cache"`
	LogLevel         string  `yaml:"log_level"`
	LogFile          string  `yaml:"log_file"`
}

// DefaultConfig returns the settings used when no config file is present.
func DefaultConfig() *Config {
	return &Config{
		FPS:           60,
		SkeletonRoot:  "root",
		MaterialCache: 256,
		LogLevel:      "info",
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
