// Package config holds the settings shared by every sv command: which
// object store to read, how to reach it, and how transcripts are filtered
// before they are shown.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/sonnes/sessionview/core"
	"github.com/sonnes/sessionview/redact"
	"github.com/sonnes/sessionview/store"
	"github.com/sonnes/sessionview/store/dir"
	"github.com/sonnes/sessionview/store/s3"
	"github.com/sonnes/sessionview/subagent"
	"gopkg.in/yaml.v3"
)

// Store kinds.
const (
	StoreS3  = "s3"
	StoreDir = "dir"
)

// DefaultAddr is where sv serve listens unless told otherwise.
const DefaultAddr = "127.0.0.1:7777"

// Config is the effective configuration. The zero value is not valid; start
// from Default.
type Config struct {
	Store     string `yaml:"store"`
	Bucket    string `yaml:"bucket,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Dir       string `yaml:"dir,omitempty"`
	Addr      string `yaml:"addr,omitempty"`

	// Redact lists the rule kinds applied to every served stream. An empty
	// list disables redaction.
	Redact []string `yaml:"redact"`
	// SpawnTools names the tools whose calls launch subagents.
	SpawnTools []string `yaml:"spawn_tools,omitempty"`
	// Timeout bounds each store round trip made on behalf of a viewer.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Default returns the built-in configuration: the current project's
// Claude Code log directory, with secrets redacted.
func Default() Config {
	c := Config{
		Store:      StoreDir,
		Addr:       DefaultAddr,
		Redact:     []string{redact.KindSecret},
		SpawnTools: append([]string(nil), subagent.DefaultTools...),
		Timeout:    30 * time.Second,
	}
	if d, err := DefaultDir(); err == nil {
		c.Dir = d
	}
	return c
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default values; unknown keys are an error.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := c.Merge(data); err != nil {
		return c, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// Merge decodes YAML over c.
func (c *Config) Merge(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

// YAML encodes c.
func (c Config) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate reports every problem at once. It makes no network calls.
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreS3:
		errs = append(errs, c.s3Config().Validate())
	case StoreDir:
		if c.Dir == "" {
			errs = append(errs, errors.New("dir is required for the dir store"))
		}
	case "":
		errs = append(errs, errors.New("store is required (s3 or dir)"))
	default:
		errs = append(errs, fmt.Errorf("unknown store %q (want s3 or dir)", c.Store))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if _, err := redact.RulesFor(c.Redact); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c Config) s3Config() s3.Config {
	return s3.Config{Bucket: c.Bucket, Region: c.Region, Endpoint: c.Endpoint, PathStyle: c.PathStyle}
}

// OpenStore validates c and builds the configured object store.
func (c Config) OpenStore(ctx context.Context) (store.Store, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	switch c.Store {
	case StoreS3:
		return s3.New(ctx, c.s3Config())
	default:
		return dir.New(c.Dir)
	}
}

// Transformers returns the filters applied to every stream read through
// the store.
func (c Config) Transformers() ([]core.Transformer, error) {
	rules, err := redact.RulesFor(c.Redact)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}
	r, err := redact.New(rules)
	if err != nil {
		return nil, err
	}
	return []core.Transformer{r}, nil
}

// Matcher selects spawn tool calls by the configured names.
func (c Config) Matcher() subagent.Matcher {
	if len(c.SpawnTools) == 0 {
		return subagent.ToolMatcher(subagent.DefaultTools...)
	}
	return subagent.ToolMatcher(c.SpawnTools...)
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

// ProjectName returns the directory name Claude Code uses for a working
// directory: every character other than a letter or digit becomes "-".
func ProjectName(cwd string) string {
	return nonAlnum.ReplaceAllString(cwd, "-")
}

// DefaultDir returns ~/.claude/projects/<project> for the working
// directory.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("working directory: %w", err)
	}
	return filepath.Join(home, ".claude", "projects", ProjectName(cwd)), nil
}
