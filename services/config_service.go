// Package services holds long-lived application services that sit between
// the HTTP layer and the core packages.
package services

import (
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/sharminesan/tb-backend/pkg/config"
	customlog "github.com/sharminesan/tb-backend/pkg/log"
)

// TeleopConfigService exposes the loaded configuration for introspection.
// Reload re-reads the file but only changes what introspection reports:
// backend selection and loop timing are boot-time decisions, so components
// already constructed keep their settings.
type TeleopConfigService struct {
	logger customlog.Logger
	path   string

	mu  sync.RWMutex
	cfg *config.Config
}

// NewTeleopConfigService wraps an already-loaded configuration.
func NewTeleopConfigService(cfg *config.Config, path string, logger customlog.Logger) *TeleopConfigService {
	return &TeleopConfigService{logger: logger, path: path, cfg: cfg}
}

// Get returns the active configuration.
func (s *TeleopConfigService) Get() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// GetYAML renders the active configuration back to YAML.
func (s *TeleopConfigService) GetYAML() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := yaml.Marshal(s.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Reload re-reads the configuration file. Only introspection output changes;
// components already constructed keep their boot-time settings.
func (s *TeleopConfigService) Reload() error {
	cfg, err := config.LoadConfig(s.path)
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	s.logger.Infof("Configuration reloaded from %s", s.path)
	return nil
}
