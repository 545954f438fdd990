package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LoadedFiles []string        `yaml:"-"` // every file merged into this config
	Include     []string        `yaml:"include"`
	Debug       bool            `yaml:"debug"`
	MaxNodes    int             `yaml:"maxNodes"`
	HotReload   bool            `yaml:"hotReload"`
	General     GeneralConfig   `yaml:"general"`
	Paths       PathsConfig     `yaml:"paths"`
	Loggers     []LoggerConfig  `yaml:"loggers"`
	Listeners   ListenersConfig `yaml:"listeners"`
	Views       map[string]View `yaml:"views"`
}

type GeneralConfig struct {
	BoardName       string `yaml:"boardName"`
	PrettyBoardName string `yaml:"prettyBoardName"`
	Description     string `yaml:"description"`
	Hostname        string `yaml:"hostname"`
	Website         string `yaml:"website"`
}

type PathsConfig struct {
	Data string `yaml:"data"`
	Art  string `yaml:"art"`
}

type LoggerConfig struct {
	Stdout     bool   `yaml:"stdout,omitempty"`
	File       string `yaml:"file,omitempty"`
	Level      string `yaml:"level"`
	Source     bool   `yaml:"source"`
	HideTime   bool   `yaml:"hideTime,omitempty"`
	TimeFormat string `yaml:"timeFormat,omitempty"`
}

type ListenersConfig struct {
	Telnet TelnetConfig `yaml:"telnet"`
}

type TelnetConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	InitialView string   `yaml:"initialView"`
	IdleTimeout Duration `yaml:"idleTimeout"`
}

// Duration wraps time.Duration so YAML can carry values like "10m" or
// "500ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type View struct {
	Type    string            `yaml:"type"`
	Module  string            `yaml:"module,omitempty"`
	Art     string            `yaml:"art,omitempty"`
	Actions map[string]string `yaml:"actions,omitempty"`
	Next    *NextView         `yaml:"next,omitempty"`
}

type NextView struct {
	View  string `yaml:"view"`
	Delay int    `yaml:"delay"` // milliseconds
}

// UnmarshalYAML lets a view's next be either "viewName" or
// { view: "viewName", delay: 1000 }.
func (n *NextView) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		n.View = value.Value
		return nil
	}

	type plain NextView
	var tmp plain
	if err := value.Decode(&tmp); err != nil {
		return err
	}

	n.View = tmp.View
	n.Delay = tmp.Delay
	return nil
}

// Load reads a config file plus everything it includes, later files
// layering over earlier ones.
func Load(filename string) (*Config, error) {
	cfg := &Config{
		LoadedFiles: []string{},
	}

	processed := make(map[string]bool)
	if err := loadRecursive(filename, cfg, processed); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadRecursive(filename string, cfg *Config, processed map[string]bool) error {
	absPath, err := filepath.Abs(filename)
	if err != nil {
		return err
	}

	if processed[absPath] {
		return nil
	}
	processed[absPath] = true
	cfg.LoadedFiles = append(cfg.LoadedFiles, absPath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		return err
	}

	// Environment variables may appear anywhere in the YAML.
	expanded := []byte(os.ExpandEnv(string(data)))

	// Pull includes first so the current file wins over anything it pulls in.
	var includes struct {
		Include []string `yaml:"include"`
	}
	if err := yaml.Unmarshal(expanded, &includes); err != nil {
		return err
	}

	baseDir := filepath.Dir(absPath)
	for _, includePath := range includes.Include {
		fullPath := includePath
		if !filepath.IsAbs(includePath) {
			fullPath = filepath.Join(baseDir, includePath)
		}

		if err := loadRecursive(fullPath, cfg, processed); err != nil {
			return fmt.Errorf("failed to load included config %s: %w", fullPath, err)
		}
	}

	return yaml.Unmarshal(expanded, cfg)
}
