package config

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	synerrors "github.com/alexisbeaulieu97/synthevents/pkg/errors"
)

// Config is the server configuration document. All fields have working
// defaults so a missing config file yields a usable instance.
type Config struct {
	ListenAddr string         `yaml:"listen_addr" validate:"required"`
	StorageDir string         `yaml:"storage_dir" validate:"required"`
	LogLevel   string         `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
	Tracker    TrackerConfig  `yaml:"tracker"`
	Executor   ExecutorConfig `yaml:"executor"`
}

// TrackerConfig tunes the live progress tracker. The stuck threshold and
// cleanup grace are heuristics inherited from operational experience, not
// derived values, which is exactly why they are configurable.
type TrackerConfig struct {
	DebounceWindow time.Duration `yaml:"debounce_window" validate:"required,min=100ms"`
	CleanupGrace   time.Duration `yaml:"cleanup_grace" validate:"required,min=1s"`
	StuckThreshold time.Duration `yaml:"stuck_threshold" validate:"required,min=10s"`
	SweepInterval  time.Duration `yaml:"sweep_interval" validate:"required,min=10s"`
}

// ExecutorConfig tunes per-event dispatch timeouts. Email gets a longer
// timeout because gateway sends are typically slower.
type ExecutorConfig struct {
	EventTimeout time.Duration `yaml:"event_timeout" validate:"required,min=1s"`
	EmailTimeout time.Duration `yaml:"email_timeout" validate:"required,min=1s"`
}

// Default returns a Config populated with the stock values.
func Default() *Config {
	return &Config{
		ListenAddr: ":8080",
		StorageDir: "./data",
		LogLevel:   "info",
		Tracker: TrackerConfig{
			DebounceWindow: time.Second,
			CleanupGrace:   5 * time.Second,
			StuckThreshold: 2 * time.Minute,
			SweepInterval:  time.Minute,
		},
		Executor: ExecutorConfig{
			EventTimeout: 30 * time.Second,
			EmailTimeout: 45 * time.Second,
		},
	}
}

// Load reads a YAML config file and validates it. A missing path returns
// the defaults; a present but invalid file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, synerrors.NewValidationError("config", err.Error(), err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New()
	})
	return validateInst
}

// Validate performs schema validation on the configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return synerrors.NewValidationError("config", "configuration is nil", nil)
	}

	if err := validatorInstance().Struct(cfg); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			field := strings.ToLower(first.Namespace())
			return synerrors.NewValidationError(field, "failed "+first.Tag()+" validation", err)
		}
		return synerrors.NewValidationError("config", err.Error(), err)
	}

	if cfg.Tracker.StuckThreshold <= cfg.Executor.EmailTimeout {
		return synerrors.NewValidationError("tracker.stuck_threshold",
			"stuck threshold must exceed the largest event timeout", nil)
	}

	return nil
}
