package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/core"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/utils"
)

// GeminiRewriter is an implementation of the RewriteClient interface using
// Google Gemini
type GeminiRewriter struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// NewGeminiRewriter creates a new Gemini rewrite client
func NewGeminiRewriter(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*GeminiRewriter, error) {
	if apiKey == "" {
		return nil, &core.PermanentError{Err: fmt.Errorf("gemini API key is not configured")}
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &GeminiRewriter{
		client:        client,
		model:         model,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat: `You are an expert email writer. Transform the following email, which has been flagged as potential spam, into a professional, legitimate email that would pass spam filters.

Focus for this revision: %s

Requirements:
1. Maintain the core message and intent if it's legitimate
2. Remove any misleading or deceptive content
3. Ensure proper email structure and formatting
4. Make it sound natural and trustworthy

Original email content:
%s

Provide only the rewritten email content without any explanations or additional text.`,
	}, nil
}

// Close closes the Gemini client
func (c *GeminiRewriter) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Rewrite asks Gemini to rewrite the email according to the directive
func (c *GeminiRewriter) Rewrite(ctx context.Context, email string, directive core.StrategyDirective) (string, error) {
	body := c.textProcessor.ProcessText(email, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, directive.Instructions, body)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &core.TransientError{Err: fmt.Errorf("empty response from Gemini")}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	rewritten := strings.TrimSpace(sb.String())
	c.logger.Debug("Gemini rewrite completed",
		zap.String("model", c.modelName),
		zap.String("strategy", string(directive.ID)),
		zap.Int("response_size", len(rewritten)))

	return rewritten, nil
}

// classifyError sorts Gemini API errors into the retry taxonomy.
// Authentication and permission errors are permanent; everything else the
// API surfaces (quota, availability, timeouts) is worth retrying.
func classifyError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key"),
		strings.Contains(msg, "permission"),
		strings.Contains(msg, "unauthenticated"),
		strings.Contains(msg, "unauthorized"):
		return &core.PermanentError{Err: err}
	default:
		return &core.TransientError{Err: err}
	}
}
