// Package config loads the server's YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"voxelgate.ai/internal/world/gen"
)

type Config struct {
	Listen  string `yaml:"listen"`
	DataDir string `yaml:"data_dir"`

	ProtocolsPath   string `yaml:"protocols_path"`
	DictionariesDir string `yaml:"dictionaries_dir"`
	ItemsPath       string `yaml:"items_path"`
	RecipesPath     string `yaml:"recipes_path"`

	Pipeline Pipeline   `yaml:"pipeline"`
	Sinks    Sinks      `yaml:"sinks"`
	WorldGen gen.Config `yaml:"world_gen"`
}

type Pipeline struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// Sinks selects where timing samples are persisted.
type Sinks struct {
	IndexDB   bool `yaml:"index_db"`
	TimingLog bool `yaml:"timing_log"`
}

func Defaults() Config {
	return Config{
		Listen:          ":8080",
		DataDir:         "./data",
		ProtocolsPath:   "./configs/protocols.yaml",
		DictionariesDir: "./configs/dictionaries",
		ItemsPath:       "./configs/items.json",
		RecipesPath:     "./configs/recipes.json",
		Pipeline:        Pipeline{Workers: 4, QueueSize: 256},
		Sinks:           Sinks{IndexDB: true, TimingLog: true},
		WorldGen:        gen.Config{Seed: 1337, BiomeRegionSize: 64, SurfaceY: 64},
	}
}

// Load reads path over Defaults(). Relative config paths are resolved
// against the directory holding the file.
func Load(path string) (Config, error) {
	c := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("server.yaml: %w", err)
	}
	base := filepath.Dir(path)
	for _, p := range []*string{&c.ProtocolsPath, &c.DictionariesDir, &c.ItemsPath, &c.RecipesPath} {
		*p = resolve(base, *p)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("server.yaml: %w", err)
	}
	return c, nil
}

func resolve(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) || strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../") {
		return p
	}
	return filepath.Join(base, p)
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return fmt.Errorf("listen is empty")
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be > 0 (got %d)", c.Pipeline.Workers)
	}
	if c.Pipeline.QueueSize <= 0 {
		return fmt.Errorf("pipeline.queue_size must be > 0 (got %d)", c.Pipeline.QueueSize)
	}
	if (c.Sinks.IndexDB || c.Sinks.TimingLog) && strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir is required when a timing sink is enabled")
	}
	for name, p := range map[string]string{
		"protocols_path":   c.ProtocolsPath,
		"dictionaries_dir": c.DictionariesDir,
		"items_path":       c.ItemsPath,
		"recipes_path":     c.RecipesPath,
	} {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%s is empty", name)
		}
	}
	return nil
}
