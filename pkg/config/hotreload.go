package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"call-analyzer/pkg/errors"
)

// HotReloadManager watches the .env file the configuration was loaded from
// and applies the settings that can change without a restart. Only the
// logging section is reloaded; values in the file win over the process
// environment on reload.
type HotReloadManager struct {
	envPath      string
	config       *Config
	logger       *logrus.Logger
	watcher      *fsnotify.Watcher
	callbacks    []ReloadCallback
	mutex        sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
	reloadChan   chan struct{}
	wg           sync.WaitGroup
	enabled      bool
	debounceTime time.Duration
}

// ReloadCallback is invoked after a reload changed at least one setting
type ReloadCallback func(oldConfig, newConfig *Config) error

// ReloadEvent describes one reload attempt
type ReloadEvent struct {
	Timestamp   time.Time      `json:"timestamp"`
	ConfigPath  string         `json:"config_path"`
	Success     bool           `json:"success"`
	Changes     []ConfigChange `json:"changes,omitempty"`
	ReloadTime  time.Duration  `json:"reload_time"`
	TriggerType string         `json:"trigger_type"` // "file" or "api"
}

// ConfigChange represents a changed setting
type ConfigChange struct {
	Field    string      `json:"field"`
	OldValue interface{} `json:"old_value"`
	NewValue interface{} `json:"new_value"`
}

// NewHotReloadManager creates a new hot-reload manager for envPath
func NewHotReloadManager(envPath string, config *Config, logger *logrus.Logger) (*HotReloadManager, error) {
	if envPath == "" {
		return nil, errors.NewInvalidInput("no .env file to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &HotReloadManager{
		envPath:      envPath,
		config:       config,
		logger:       logger,
		watcher:      watcher,
		ctx:          ctx,
		cancel:       cancel,
		reloadChan:   make(chan struct{}, 1),
		debounceTime: 2 * time.Second,
	}, nil
}

// SetDebounce sets how long to wait for writes to settle before reloading
func (h *HotReloadManager) SetDebounce(d time.Duration) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.debounceTime = d
}

// Start starts watching the env file
func (h *HotReloadManager) Start() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.enabled {
		return fmt.Errorf("hot-reload manager already started")
	}

	// Editors often replace the file, so watch the directory
	if err := h.watcher.Add(filepath.Dir(h.envPath)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	h.enabled = true
	h.wg.Add(2)
	go h.watchFiles()
	go h.handleReloads()

	h.logger.WithField("config_path", h.envPath).Info("Configuration hot-reload manager started")
	return nil
}

// Stop stops the watcher and waits for its goroutines
func (h *HotReloadManager) Stop() error {
	h.mutex.Lock()
	if !h.enabled {
		h.mutex.Unlock()
		return fmt.Errorf("hot-reload manager not started")
	}
	h.enabled = false
	h.mutex.Unlock()

	h.cancel()
	err := h.watcher.Close()
	h.wg.Wait()

	h.logger.Info("Configuration hot-reload manager stopped")
	return err
}

// AddCallback adds a reload callback
func (h *HotReloadManager) AddCallback(callback ReloadCallback) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.callbacks = append(h.callbacks, callback)
}

// TriggerReload reloads the env file immediately
func (h *HotReloadManager) TriggerReload() (*ReloadEvent, error) {
	return h.performReload("api")
}

// GetCurrentConfig returns a copy of the current configuration
func (h *HotReloadManager) GetCurrentConfig() *Config {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return copyConfig(h.config)
}

// IsEnabled returns whether the watcher is running
func (h *HotReloadManager) IsEnabled() bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.enabled
}

func (h *HotReloadManager) watchFiles() {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return

		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(h.envPath) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			select {
			case h.reloadChan <- struct{}{}:
				h.logger.WithField("event", event.Op.String()).Debug("Configuration reload triggered by file change")
			default:
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.WithError(err).Error("File watcher error")
		}
	}
}

func (h *HotReloadManager) handleReloads() {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.reloadChan:
		}

		h.mutex.RLock()
		debounce := h.debounceTime
		h.mutex.RUnlock()

		select {
		case <-h.ctx.Done():
			return
		case <-time.After(debounce):
		}

		// Writes that arrived while settling are covered by this reload
		select {
		case <-h.reloadChan:
		default:
		}

		if _, err := h.performReload("file"); err != nil {
			h.logger.WithError(err).Error("Configuration reload failed")
		}
	}
}

func (h *HotReloadManager) performReload(triggerType string) (*ReloadEvent, error) {
	startTime := time.Now()
	event := &ReloadEvent{
		Timestamp:   startTime,
		ConfigPath:  h.envPath,
		TriggerType: triggerType,
	}

	values, err := godotenv.Read(h.envPath)
	if err != nil {
		event.ReloadTime = time.Since(startTime)
		return event, errors.Wrap(err, "failed to read env file")
	}

	h.mutex.Lock()
	oldConfig := h.config
	newConfig := copyConfig(oldConfig)

	if level, ok := values["LOG_LEVEL"]; ok {
		newConfig.Logging.Level = strings.ToLower(strings.TrimSpace(level))
	}
	if format, ok := values["LOG_FORMAT"]; ok {
		newConfig.Logging.Format = strings.ToLower(strings.TrimSpace(format))
	}

	if err := validateReloadedLogging(newConfig.Logging); err != nil {
		h.mutex.Unlock()
		event.ReloadTime = time.Since(startTime)
		return event, err
	}

	event.Changes = detectChanges(oldConfig, newConfig)
	if len(event.Changes) == 0 {
		h.mutex.Unlock()
		event.Success = true
		event.ReloadTime = time.Since(startTime)
		h.logger.WithField("trigger", triggerType).Debug("Configuration reload found no changes")
		return event, nil
	}

	h.config = newConfig
	callbacks := append([]ReloadCallback(nil), h.callbacks...)
	h.mutex.Unlock()

	var failed int
	for _, callback := range callbacks {
		if err := callback(oldConfig, newConfig); err != nil {
			failed++
			h.logger.WithError(err).Error("Configuration reload callback failed")
		}
	}

	event.Success = failed == 0
	event.ReloadTime = time.Since(startTime)
	if failed > 0 {
		return event, fmt.Errorf("%d reload callbacks failed", failed)
	}

	h.logger.WithFields(logrus.Fields{
		"trigger":     triggerType,
		"changes":     len(event.Changes),
		"reload_time": event.ReloadTime,
	}).Info("Configuration reloaded successfully")

	return event, nil
}

func validateReloadedLogging(logging LoggingConfig) error {
	if _, err := logrus.ParseLevel(logging.Level); err != nil {
		return errors.NewInvalidInput("invalid LOG_LEVEL in reloaded configuration", map[string]interface{}{
			"log_level": logging.Level,
		})
	}
	if logging.Format != "json" && logging.Format != "text" {
		return errors.NewInvalidInput("invalid LOG_FORMAT in reloaded configuration", map[string]interface{}{
			"log_format": logging.Format,
		})
	}
	return nil
}

func detectChanges(oldConfig, newConfig *Config) []ConfigChange {
	var changes []ConfigChange

	if oldConfig.Logging.Level != newConfig.Logging.Level {
		changes = append(changes, ConfigChange{
			Field:    "logging.level",
			OldValue: oldConfig.Logging.Level,
			NewValue: newConfig.Logging.Level,
		})
	}
	if oldConfig.Logging.Format != newConfig.Logging.Format {
		changes = append(changes, ConfigChange{
			Field:    "logging.format",
			OldValue: oldConfig.Logging.Format,
			NewValue: newConfig.Logging.Format,
		})
	}

	return changes
}

func copyConfig(config *Config) *Config {
	copied := *config
	if config.RateLimit.WhitelistedIPs != nil {
		copied.RateLimit.WhitelistedIPs = append([]string(nil), config.RateLimit.WhitelistedIPs...)
	}
	return &copied
}
