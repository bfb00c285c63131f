package vision

import (
	"fmt"

	"github.com/smallbiznis/detailflow/internal/config"
	"github.com/smallbiznis/detailflow/internal/vision/anthropic"
	"github.com/smallbiznis/detailflow/internal/vision/domain"
	"github.com/smallbiznis/detailflow/internal/vision/openai"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("vision",
	fx.Provide(NewModel),
)

// NewModel builds the client named by VISION_PROVIDER.
func NewModel(cfg config.Config, log *zap.Logger) (domain.Model, error) {
	var (
		model domain.Model
		err   error
	)
	switch cfg.Vision.Provider {
	case config.VisionProviderAnthropic, "":
		model, err = anthropic.New(cfg.Vision.AnthropicAPIKey)
	case config.VisionProviderOpenAI:
		model, err = openai.New(cfg.Vision.OpenAIAPIKey, cfg.Vision.OpenAIBaseURL)
	default:
		return nil, fmt.Errorf("unsupported vision provider %q", cfg.Vision.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("vision provider %q: %w", cfg.Vision.Provider, err)
	}
	log.Info("vision model ready", zap.String("provider", model.Name()))
	return model, nil
}
