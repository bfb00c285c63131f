package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AssessmentConfig tunes the assessment pipeline. It is re-read from
// assessment.yml whenever the file changes.
type AssessmentConfig struct {
	Model                  string        `mapstructure:"model"`
	MaxTokens              int64         `mapstructure:"maxTokens"`
	MaxPhotos              int           `mapstructure:"maxPhotos"`
	LowConfidenceThreshold int           `mapstructure:"lowConfidenceThreshold"`
	ImageMaxEdge           int           `mapstructure:"imageMaxEdge"`
	FetchTimeout           time.Duration `mapstructure:"fetchTimeout"`
	ModelTimeout           time.Duration `mapstructure:"modelTimeout"`
}

func DefaultAssessmentConfig() AssessmentConfig {
	return AssessmentConfig{
		Model:                  "claude-opus-4-5",
		MaxTokens:              2000,
		MaxPhotos:              8,
		LowConfidenceThreshold: 60,
		ImageMaxEdge:           1568,
		FetchTimeout:           15 * time.Second,
		ModelTimeout:           90 * time.Second,
	}
}

type AssessmentConfigHolder struct {
	current atomic.Value // holds AssessmentConfig
}

// NewStaticAssessmentConfigHolder returns a holder that never reloads.
func NewStaticAssessmentConfigHolder(cfg AssessmentConfig) *AssessmentConfigHolder {
	holder := &AssessmentConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewAssessmentConfigHolder(log *zap.Logger) (*AssessmentConfigHolder, error) {
	log = log.Named("assessment.config")

	v := viper.New()
	v.SetConfigName("assessment")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/detailflow")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DETAILFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultAssessmentConfig()
	v.SetDefault("assessment.model", defaults.Model)
	v.SetDefault("assessment.maxTokens", defaults.MaxTokens)
	v.SetDefault("assessment.maxPhotos", defaults.MaxPhotos)
	v.SetDefault("assessment.lowConfidenceThreshold", defaults.LowConfidenceThreshold)
	v.SetDefault("assessment.imageMaxEdge", defaults.ImageMaxEdge)
	v.SetDefault("assessment.fetchTimeout", defaults.FetchTimeout)
	v.SetDefault("assessment.modelTimeout", defaults.ModelTimeout)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
	}

	var cfg AssessmentConfig
	if err := v.UnmarshalKey("assessment", &cfg); err != nil {
		return nil, err
	}
	if err := validateAssessmentConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticAssessmentConfigHolder(cfg)
	if !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated AssessmentConfig
		if err := v.UnmarshalKey("assessment", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateAssessmentConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name), zap.String("model", updated.Model))
	})

	return holder, nil
}

func (h *AssessmentConfigHolder) Get() AssessmentConfig {
	return h.current.Load().(AssessmentConfig)
}

func validateAssessmentConfig(cfg AssessmentConfig) error {
	switch {
	case strings.TrimSpace(cfg.Model) == "":
		return errors.New("assessment.model cannot be empty")
	case cfg.MaxTokens <= 0:
		return errors.New("assessment.maxTokens must be positive")
	case cfg.MaxPhotos <= 0:
		return errors.New("assessment.maxPhotos must be positive")
	case cfg.LowConfidenceThreshold < 0 || cfg.LowConfidenceThreshold > 100:
		return errors.New("assessment.lowConfidenceThreshold must be within 0-100")
	case cfg.ImageMaxEdge < 0:
		return errors.New("assessment.imageMaxEdge cannot be negative")
	case cfg.FetchTimeout <= 0 || cfg.ModelTimeout <= 0:
		return errors.New("assessment timeouts must be positive")
	}
	return nil
}
