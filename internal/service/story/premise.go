package story

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"novelist/internal/ai"
	model "novelist/internal/model/story"
)

// premiseSampling 构想生成需要更高的随机性
var premiseSampling = ai.SamplingParams{Temperature: 1.2}

// PremiseGenerator 故事构想生成器
type PremiseGenerator struct {
	gateway ai.TextGateway
}

// NewPremiseGenerator 创建故事构想生成器
func NewPremiseGenerator(gateway ai.TextGateway) *PremiseGenerator {
	return &PremiseGenerator{gateway: gateway}
}

// Suggest 根据类型与标签生成一段故事构想
func (g *PremiseGenerator) Suggest(ctx context.Context, genre string, subGenres []string) (string, error) {
	if g.gateway == nil {
		return "", fmt.Errorf("text gateway is required")
	}
	if !model.IsValidGenre(genre) {
		return "", fmt.Errorf("%w: unknown genre %q", model.ErrInvalidConfiguration, genre)
	}
	if len(subGenres) > model.MaxSubGenres {
		return "", fmt.Errorf("%w: at most %d sub-genres", model.ErrInvalidConfiguration, model.MaxSubGenres)
	}

	text, err := g.gateway.GenerateText(ctx, buildPremisePrompt(genre, subGenres), premiseSampling)
	if err != nil {
		return "", fmt.Errorf("failed to suggest premise: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("failed to suggest premise: %w", ai.ErrEmptyResponse)
	}

	log.Debug().Str("genre", genre).Int("words", len(strings.Fields(text))).Msg("premise suggested")
	return text, nil
}
