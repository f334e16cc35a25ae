package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/beamdasm/errors"
)

func TestDefault(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if c.Decode.Strict {
		t.Error("decoding should be lenient by default")
	}
	if c.Cache.Capacity != 64 {
		t.Errorf("cache capacity = %d, want 64", c.Cache.Capacity)
	}
	if c.Output.Color != ColorAuto {
		t.Errorf("color = %q, want auto", c.Output.Color)
	}
}

func TestParse(t *testing.T) {
	data := `
[decode]
strict = true

[cache]
capacity = 8
concurrency = 2

[log]
level = "debug"
format = "json"

[output]
color = "never"
export-dir = "out"
`
	c, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !c.Decode.Strict {
		t.Error("decode.strict not set")
	}
	if c.Cache.Capacity != 8 || c.Cache.Concurrency != 2 {
		t.Errorf("cache = %+v", c.Cache)
	}
	if c.Log.Level != "debug" || c.Log.Format != "json" {
		t.Errorf("log = %+v", c.Log)
	}
	if c.Output.Color != ColorNever || c.Output.ExportDir != "out" {
		t.Errorf("output = %+v", c.Output)
	}

	opts := c.LoaderOptions(nil)
	if !opts.Decode.Strict || opts.CacheSize != 8 || opts.Concurrency != 2 {
		t.Errorf("loader options = %+v", opts)
	}
}

func TestParseKeepsDefaults(t *testing.T) {
	c, err := Parse([]byte("[decode]\nstrict = true\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if c.Cache.Capacity != 64 || c.Log.Level != "warn" || c.Output.Color != ColorAuto {
		t.Errorf("unset sections lost their defaults: %+v", c)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "[decode\nstrict = true"},
		{"wrong type", "[decode]\nstrict = \"yes\""},
		{"unknown key", "[decode]\nfast = true"},
		{"unknown section", "[server]\nport = 1"},
		{"negative capacity", "[cache]\ncapacity = -1"},
		{"bad level", "[log]\nlevel = \"loud\""},
		{"bad format", "[log]\nformat = \"xml\""},
		{"bad color", "[output]\ncolor = \"sometimes\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Phase != errors.PhaseConfig {
				t.Errorf("expected config error, got %v", err)
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(root, FileName)
	if err := os.WriteFile(path, []byte("[cache]\ncapacity = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if c.Cache.Capacity != 3 {
		t.Errorf("capacity = %d, want 3", c.Cache.Capacity)
	}
	if c.Path != path {
		t.Errorf("path = %q, want %q", c.Path, path)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	if !stderrors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
	if !stderrors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected a not_found error, got %v", err)
	}
}

func TestLogger(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		c := Default()
		c.Log.Format = format
		c.Log.Level = "error"
		log, err := c.Logger()
		if err != nil {
			t.Fatalf("%s: Logger failed: %v", format, err)
		}
		if log.Core().Enabled(-1) {
			t.Errorf("%s: debug enabled at error level", format)
		}
	}
}
