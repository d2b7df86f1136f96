package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Listener is notified after the configuration has been replaced.
type Listener func(old, updated *Config)

// Manager holds the application configuration and provides thread-safe access to it.
// A *Config returned by Get is never mutated; updates swap in a new value.
type Manager struct {
	// writeMu serializes writers across read, swap and notification.
	writeMu   sync.Mutex
	mu        sync.RWMutex
	config    *Config
	path      string
	listeners []Listener
}

// NewManager creates a new ConfigManager.
func NewManager(config *Config) *Manager {
	return &Manager{config: config}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Path returns the file the configuration was loaded from, if any.
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// Subscribe registers fn to run after every configuration change.
func (m *Manager) Subscribe(fn Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Update replaces the configuration. The server port is kept from the
// running configuration since the listener cannot be rebound at runtime.
// Listeners run in update order and must not update the manager themselves.
func (m *Manager) Update(config *Config) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	m.update(config)
}

func (m *Manager) update(config *Config) {
	m.mu.Lock()
	oldConfig := m.config
	if oldConfig != nil {
		config.Server = oldConfig.Server
	}
	m.config = config
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	if oldConfig != nil {
		slog.Debug("Configuration updated",
			"upstream_changed", oldConfig.Upstream != config.Upstream,
			"cache_max_size_changed", oldConfig.Cache.MaxSize != config.Cache.MaxSize,
			"logger_changed", oldConfig.Logger != config.Logger,
		)
	}
	for _, fn := range listeners {
		fn(oldConfig, config)
	}
}

// SetServerPort overrides the listening port before the server starts.
func (m *Manager) SetServerPort(port uint32) error {
	if port == 0 || port > 65535 {
		return fmt.Errorf("invalid server port %d", port)
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	updated := m.config.clone()
	updated.Server.Port = port
	m.config = updated
	return nil
}

// Apply validates u against the current configuration and installs the
// result. Nothing is changed when any field is rejected.
func (m *Manager) Apply(u Update) (*Config, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	candidate := m.Get().clone()
	u.applyTo(candidate)
	if err := Validate(candidate); err != nil {
		return nil, err
	}
	m.update(candidate)
	return candidate, nil
}

// Save writes the current configuration to the specified file path.
func (m *Manager) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, err := os.Create(path)
	if err != nil {
		slog.Error("failed to create config file", "path", path, "error", err)
		return err
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(m.config); err != nil {
		slog.Error("failed to encode config", "path", path, "error", err)
		return fmt.Errorf("failed to encode config: %w", err)
	}

	slog.Info("Configuration saved successfully", "path", path)
	return nil
}
