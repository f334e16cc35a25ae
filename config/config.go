// Package config handles beamdasm.toml configuration.
package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/beamdasm/beam"
	"github.com/wippyai/beamdasm/errors"
	"github.com/wippyai/beamdasm/runtime"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "beamdasm.toml"

// Color modes for Output.Color.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config is the beamdasm.toml configuration.
type Config struct {
	Decode Decode `toml:"decode"`
	Cache  Cache  `toml:"cache"`
	Log    Log    `toml:"log"`
	Output Output `toml:"output"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

// Decode configures the decoder.
type Decode struct {
	Strict bool `toml:"strict"`
}

// Cache configures the module loader.
type Cache struct {
	Capacity    int `toml:"capacity"`
	Concurrency int `toml:"concurrency"`
}

// Log configures the zap logger.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // console or json
}

// Output configures the command line front end.
type Output struct {
	Color     string `toml:"color"`
	ExportDir string `toml:"export-dir"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Cache:  Cache{Capacity: 64},
		Log:    Log{Level: "warn", Format: "console"},
		Output: Output{Color: ColorAuto},
	}
}

// Parse decodes TOML data over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse configuration")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, errors.InvalidInput(errors.PhaseConfig, "unknown keys: "+strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		nf := errors.NotFound(errors.PhaseConfig, "config file", path)
		nf.Cause = err
		return nil, nf
	}
	if err != nil {
		return nil, errors.Config(path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.Config(path, err)
	}
	c.Path = path
	return c, nil
}

// FindAndLoad walks up from startDir looking for beamdasm.toml. Without
// one it returns the defaults.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, errors.Config(startDir, err)
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Validate checks enumerated and numeric fields.
func (c *Config) Validate() error {
	if c.Cache.Capacity < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "cache.capacity must not be negative")
	}
	if c.Cache.Concurrency < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "cache.concurrency must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log.level")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.InvalidInput(errors.PhaseConfig, "log.format must be console or json, got "+c.Log.Format)
	}
	switch c.Output.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return errors.InvalidInput(errors.PhaseConfig, "output.color must be auto, always or never, got "+c.Output.Color)
	}
	return nil
}

// Logger builds a zap logger writing to stderr.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log.level")
	}

	zc := zap.NewProductionConfig()
	if c.Log.Format == "console" {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zc.Level = level
	zc.Encoding = c.Log.Format
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.DisableStacktrace = true

	log, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "build logger")
	}
	return log, nil
}

// DecodeOptions returns decoder options for this configuration.
func (c *Config) DecodeOptions(log *zap.Logger) beam.DecodeOptions {
	return beam.DecodeOptions{Logger: log, Strict: c.Decode.Strict}
}

// LoaderOptions returns module loader options for this configuration.
func (c *Config) LoaderOptions(log *zap.Logger) runtime.Options {
	return runtime.Options{
		Logger:      log,
		Decode:      c.DecodeOptions(log),
		CacheSize:   c.Cache.Capacity,
		Concurrency: c.Cache.Concurrency,
	}
}
