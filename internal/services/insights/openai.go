package insights

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/jmoon/divtrack/internal/logger"
	"github.com/jmoon/divtrack/internal/models"
)

const (
	// DefaultModel is used when AI_MODEL is not configured.
	DefaultModel = "gpt-4o-mini"
	// DefaultBaseURL is the OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 30 * time.Second
)

// OpenAIGenerator implements Generator against the OpenAI chat API.
type OpenAIGenerator struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIGenerator creates a generator. Empty model and baseURL fall back
// to the defaults.
func NewOpenAIGenerator(apiKey, baseURL, model string, log *zap.Logger, debugMode bool) *OpenAIGenerator {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Timeout: DefaultTimeout}),
	)

	return &OpenAIGenerator{
		client:    client,
		model:     model,
		logger:    log,
		debugMode: debugMode,
	}
}

// MonthlySummary asks the model for a short prose summary of the statistics.
func (g *OpenAIGenerator) MonthlySummary(ctx context.Context, stats []*models.MonthlyStat) (string, error) {
	prompt := buildPrompt(stats)

	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a concise financial assistant summarizing dividend income. Respond with plain text only."),
			openai.UserMessage(prompt),
		},
	}

	if g.logger != nil && g.debugMode {
		g.logger.Debug("llm_api_request",
			zap.String("operation", "monthly_summary"),
			zap.String("model", g.model),
			zap.Int("prompt_length", len(prompt)),
		)
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		if g.logger != nil {
			g.logger.Warn("llm_api_error",
				zap.String("operation", "monthly_summary"),
				zap.String("model", g.model),
				zap.String("error", logger.SanitizeError(err)),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	content := resp.Choices[0].Message.Content

	if g.logger != nil && g.debugMode {
		g.logger.Debug("llm_api_response",
			zap.String("operation", "monthly_summary"),
			zap.String("model", g.model),
			zap.Int("response_length", len(content)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}
	return content, nil
}

var _ Generator = (*OpenAIGenerator)(nil)
