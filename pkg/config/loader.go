package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "KBASE_"

// GlobalConfigDir is the directory for the global config under os.UserConfigDir.
const GlobalConfigDir = "kbase"

// LocalConfigFileNames are searched in the working directory, in order.
var LocalConfigFileNames = []string{".kbaserc.yaml", ".kbaserc.yml"}

// GlobalConfigFileNames are searched in the global config directory, in order.
var GlobalConfigFileNames = []string{"config.yaml", "config.yml"}

// LoadOptions controls Load.
type LoadOptions struct {
	// Path is an explicit config file. It must exist and replaces discovery.
	Path string
	// WorkDir is searched for the local file. Defaults to os.Getwd.
	WorkDir string
	// GlobalDir overrides os.UserConfigDir()/kbase.
	GlobalDir string
	// Environment replaces the process environment when non-nil.
	Environment map[string]string
}

// ConfigError reports a config file that could not be parsed.
type ConfigError struct {
	Path    string
	Line    int
	Column  int
	Message string
}

func (e *ConfigError) Error() string {
	if e.Line > 0 {
		return e.Path + " (line " + strconv.Itoa(e.Line) + ", column " + strconv.Itoa(e.Column) + "): " + e.Message
	}
	return e.Path + ": " + e.Message
}

// Load builds a Config from defaults, config files and the environment.
func Load(opts LoadOptions) (*Config, error) {
	cfg := NewDefault()

	if opts.Path != "" {
		if err := cfg.mergeFile(opts.Path, SourceFile); err != nil {
			return nil, err
		}
	} else {
		if path := findFile(globalDir(opts.GlobalDir), GlobalConfigFileNames); path != "" {
			if err := cfg.mergeFile(path, SourceGlobal); err != nil {
				return nil, err
			}
		}
		if path := findFile(workDir(opts.WorkDir), LocalConfigFileNames); path != "" {
			if err := cfg.mergeFile(path, SourceLocal); err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.mergeEnv(opts.Environment); err != nil {
		return nil, err
	}
	return cfg, nil
}

func globalDir(override string) string {
	if override != "" {
		return override
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, GlobalConfigDir)
}

func workDir(override string) string {
	if override != "" {
		return override
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return cwd
}

func findFile(dir string, names []string) string {
	if dir == "" {
		return ""
	}
	for _, name := range names {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// mergeFile decodes path over the current values. Keys absent from the file
// keep their current value.
func (c *Config) mergeFile(path, source string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return newConfigError(path, err)
	}

	c.Files = append(c.Files, path)
	c.Sources["file:"+path] = source
	return nil
}

// newConfigError extracts the first "line N:" position yaml.v3 reports.
func newConfigError(path string, err error) *ConfigError {
	ce := &ConfigError{Path: path, Message: err.Error()}
	msg := err.Error()
	if i := strings.Index(msg, "line "); i >= 0 {
		rest := msg[i+len("line "):]
		if j := strings.IndexByte(rest, ':'); j > 0 {
			if n, convErr := strconv.Atoi(rest[:j]); convErr == nil {
				ce.Line = n
				ce.Column = 1
				ce.Message = strings.TrimSpace(rest[j+1:])
			}
		}
	}
	return ce
}

// mergeEnv applies KBASE_* variables over the current values.
func (c *Config) mergeEnv(environment map[string]string) error {
	opts := env.Options{
		Prefix: EnvPrefix,
		OnSet: func(tag string, value any, isDefault bool) {
			if v, ok := value.(string); ok && v != "" && !isDefault {
				c.Sources[strings.TrimPrefix(tag, EnvPrefix)] = SourceEnv
			}
		},
	}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// MarkFlag records that a setting was set on the command line.
func (c *Config) MarkFlag(key string) {
	c.Sources[key] = SourceFlag
}

// Source returns the layer that set key, SourceDefault if none did.
func (c *Config) Source(key string) string {
	if s, ok := c.Sources[key]; ok {
		return s
	}
	return SourceDefault
}
