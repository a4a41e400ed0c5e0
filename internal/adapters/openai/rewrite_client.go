package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/core"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/utils"
)

// OpenAIRewriter is an implementation of the RewriteClient interface using
// OpenAI
type OpenAIRewriter struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// NewOpenAIRewriter creates a new OpenAI rewrite client
func NewOpenAIRewriter(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIRewriter {
	client := openai.NewClient(apiKey)

	return &OpenAIRewriter{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat: `Transform the following email, which has been flagged as potential spam, into a professional, legitimate email that would pass spam filters.

Focus for this revision: %s

Requirements:
1. Maintain the core message and intent if it's legitimate
2. Remove any misleading or deceptive content
3. Ensure proper email structure and formatting
4. Make it sound natural and trustworthy

Original email content:
%s

Provide only the rewritten email content without any explanations or additional text.`,
	}
}

// Rewrite asks OpenAI to rewrite the email according to the directive
func (c *OpenAIRewriter) Rewrite(ctx context.Context, email string, directive core.StrategyDirective) (string, error) {
	body := c.textProcessor.ProcessText(email, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, directive.Instructions, body)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert email writer. Respond only with the rewritten email.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &core.TransientError{Err: fmt.Errorf("empty response from OpenAI")}
	}

	rewritten := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.logger.Debug("OpenAI rewrite completed",
		zap.String("model", c.modelName),
		zap.String("strategy", string(directive.ID)),
		zap.String("processing_id", resp.ID),
		zap.Int("response_size", len(rewritten)))

	return rewritten, nil
}

// classifyError sorts OpenAI API errors into the retry taxonomy using the
// HTTP status code when one is available.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusBadRequest:
			return &core.PermanentError{Err: err}
		default:
			// 429 and 5xx in particular.
			return &core.TransientError{Err: err}
		}
	}
	return &core.TransientError{Err: err}
}
