// Package config loads contribgit settings from a YAML file, CONTRIBGIT_
// environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/thiagokokada/contribgit/internal/git"
)

const EnvPrefix = "CONTRIBGIT"

var userConfigDir = os.UserConfigDir

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Sync struct {
	Interval time.Duration `mapstructure:"interval"`
	// Watch starts the ref watcher alongside the periodic check.
	Watch bool `mapstructure:"watch"`
}

type Reflog struct {
	// Path is the journal directory; empty keeps the journal in memory.
	Path string `mapstructure:"path"`
}

type Cache struct {
	Size int `mapstructure:"size"`
}

type Repository struct {
	Name          string `mapstructure:"name"`
	Path          string `mapstructure:"path"`
	URL           string `mapstructure:"url"`
	DefaultBranch string `mapstructure:"default_branch"`
}

type Config struct {
	Log          Log          `mapstructure:"log"`
	Sync         Sync         `mapstructure:"sync"`
	Reflog       Reflog       `mapstructure:"reflog"`
	Cache        Cache        `mapstructure:"cache"`
	Committer    git.Author   `mapstructure:"committer"`
	Repositories []Repository `mapstructure:"repositories"`
}

var defaults = map[string]any{
	"log.level":       "info",
	"log.format":      "console",
	"sync.interval":   "5m",
	"sync.watch":      false,
	"reflog.path":     "",
	"cache.size":      1024,
	"committer.name":  "contribgit",
	"committer.email": "contribgit@localhost",
}

// Load reads path, or contribgit.yaml from the working directory and the
// user config directory when path is empty. A missing default file is not
// an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("contribgit")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := userConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "contribgit"))
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to read configuration: %w", err)
		}
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read configuration: %w", err)
		}
	}

	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fills per-repository defaults and rejects incomplete entries.
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for i := range c.Repositories {
		r := &c.Repositories[i]
		if r.Path == "" {
			return fmt.Errorf("repositories[%d]: path is required", i)
		}
		if r.Name == "" {
			r.Name = filepath.Base(r.Path)
		}
		if r.DefaultBranch == "" {
			r.DefaultBranch = "main"
		}
		if seen[r.Name] {
			return fmt.Errorf("repositories[%d]: duplicate name %q", i, r.Name)
		}
		seen[r.Name] = true
	}
	if c.Sync.Interval < 0 {
		return fmt.Errorf("sync.interval must not be negative")
	}
	return nil
}

// Repository returns the repository called name. With an empty name the
// only configured repository is returned.
func (c *Config) Repository(name string) (Repository, error) {
	if name == "" {
		switch len(c.Repositories) {
		case 0:
			return Repository{}, errors.New("no repositories configured")
		case 1:
			return c.Repositories[0], nil
		}
		return Repository{}, errors.New("several repositories configured; pick one with --repo")
	}
	for _, r := range c.Repositories {
		if r.Name == name {
			return r, nil
		}
	}
	return Repository{}, &git.NotFoundError{Kind: "repository", Name: name}
}
