package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/plugin"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

// SeedFile lists plugins to install on first boot
type SeedFile struct {
	Plugins []SeedPlugin `yaml:"plugins" toml:"plugins"`
}

// SeedPlugin is one seeded plugin
type SeedPlugin struct {
	ID           string                     `yaml:"id" toml:"id"`
	Enabled      *bool                      `yaml:"enabled" toml:"enabled"`
	Config       map[string]any             `yaml:"config" toml:"config"`
	Revalidation *plugin.RevalidationPolicy `yaml:"revalidation" toml:"revalidation"`
}

// SeedReport summarizes a seeding run
type SeedReport struct {
	Installed int
	Skipped   int
	Failed    int
}

// Seeder installs plugins from a seed file
type Seeder struct {
	manager *Manager
	path    string
	logger  *zap.Logger
}

// NewSeeder creates a seeder for the file at path
func NewSeeder(manager *Manager, path string, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{manager: manager, path: path, logger: logger}
}

// ParseSeed decodes YAML or TOML depending on the file extension
func ParseSeed(name string, data []byte) (*SeedFile, error) {
	var seed SeedFile
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &seed); err != nil {
			return nil, fmt.Errorf("failed to parse seed yaml: %w", err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&seed); err != nil {
			return nil, fmt.Errorf("failed to parse seed toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported seed format %q", filepath.Ext(name))
	}
	return &seed, nil
}

// Seed installs every listed plugin that is not installed yet.
// A missing seed file is not an error.
func (s *Seeder) Seed(ctx context.Context) (SeedReport, error) {
	var report SeedReport
	if s.path == "" {
		return report, nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("seed file not found", zap.String("path", s.path))
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("failed to read seed file: %w", err)
	}
	seed, err := ParseSeed(s.path, data)
	if err != nil {
		return report, err
	}

	s.logger.Info("seeding plugins", zap.String("path", s.path), zap.Int("count", len(seed.Plugins)))
	for _, sp := range seed.Plugins {
		switch err := s.seedOne(ctx, sp); {
		case err == nil:
			report.Installed++
		case errors.Is(err, plugin.ErrAlreadyInstalled):
			report.Skipped++
		default:
			report.Failed++
			s.logger.Warn("failed to seed plugin", zap.String("plugin_id", sp.ID), zap.Error(err))
		}
	}

	s.logger.Info("seeding complete",
		zap.Int("installed", report.Installed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report, nil
}

func (s *Seeder) seedOne(ctx context.Context, sp SeedPlugin) error {
	if _, _, err := s.manager.Get(ctx, sp.ID); err == nil {
		return plugin.ErrAlreadyInstalled
	}
	if _, err := s.manager.Install(ctx, sp.ID); err != nil {
		return err
	}
	if len(sp.Config) > 0 {
		if _, err := s.manager.SetConfig(ctx, sp.ID, sp.Config); err != nil {
			return err
		}
	}
	if sp.Revalidation != nil {
		mode := sp.Revalidation.Mode
		secs := sp.Revalidation.DebounceSeconds
		patch := plugin.PolicyPatch{Mode: &mode}
		if secs > 0 {
			patch.DebounceSeconds = &secs
		}
		if _, err := s.manager.SetRevalidationPolicy(ctx, sp.ID, patch); err != nil {
			return err
		}
	}
	if sp.Enabled != nil && !*sp.Enabled {
		if _, err := s.manager.SetEnabled(ctx, sp.ID, false); err != nil {
			return err
		}
	}
	return nil
}
