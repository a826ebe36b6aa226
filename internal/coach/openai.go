package coach

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/spinhq/cadence/pkg/scoring"
)

const systemPrompt = "Tu es un coach vocal bienveillant. Réponds par une seule phrase " +
	"en français, encourageante et concrète, sans emoji, à partir des résultats d'une " +
	"session d'entraînement à la prise de parole."

// OpenAI is a [Provider] backed by the OpenAI chat completions API.
type OpenAI struct {
	client oai.Client
	model  string
}

var _ Provider = (*OpenAI)(nil)

// OpenAIOption is a functional option for [NewOpenAI].
type OpenAIOption func(*openaiConfig)

type openaiConfig struct {
	baseURL string
	timeout time.Duration
}

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) OpenAIOption {
	return func(c *openaiConfig) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) OpenAIOption {
	return func(c *openaiConfig) {
		c.timeout = d
	}
}

// NewOpenAI constructs an OpenAI-backed coach provider.
func NewOpenAI(apiKey, model string, opts ...OpenAIOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("coach: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("coach: model must not be empty")
	}

	cfg := &openaiConfig{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &OpenAI{client: oai.NewClient(reqOpts...), model: model}, nil
}

// Comment implements [Provider].
func (p *OpenAI) Comment(ctx context.Context, result scoring.Result, durationSeconds int) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(promptFor(result, durationSeconds)),
		},
		Temperature:         param.NewOpt(0.7),
		MaxCompletionTokens: param.NewOpt(int64(80)),
	})
	if err != nil {
		return "", fmt.Errorf("coach: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("coach: empty choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// promptFor flattens the analysis result into a compact prompt.
func promptFor(result scoring.Result, durationSeconds int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Durée: %ds. Clarté: %d/100. Impact: %d/100. Cristal: %s.",
		durationSeconds, result.Scores.Clarity, result.Scores.Impact, result.CrystalType)
	for _, f := range result.Feedback {
		fmt.Fprintf(&b, " %s: %s", f.Type, f.Text)
	}
	return b.String()
}
