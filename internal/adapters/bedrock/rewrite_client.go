package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/core"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/utils"
)

// BedrockRewriter is an implementation of the RewriteClient interface using
// Amazon Bedrock
type BedrockRewriter struct {
	client        *bedrockruntime.Client
	modelID       string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// NewBedrockRewriter creates a new Bedrock rewrite client
func NewBedrockRewriter(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockRewriter {
	return &BedrockRewriter{
		client:        client,
		modelID:       modelID,
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

// Rewrite asks the Bedrock model to rewrite the email according to the
// directive
func (c *BedrockRewriter) Rewrite(ctx context.Context, email string, directive core.StrategyDirective) (string, error) {
	processedBody := c.textProcessor.ProcessText(email, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, directive.Instructions, processedBody)

	var payload []byte
	var err error

	if c.isAnthropicModel() {
		// Anthropic Claude models
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               fmt.Sprintf("\n\nHuman: %s\n\nAssistant:", prompt),
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          c.temperature,
			"top_p":                c.topP,
		})
	} else if c.isAmazonTitanModel() {
		// Amazon Titan models
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	} else {
		// Default to a generic format
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}

	if err != nil {
		return "", &core.PermanentError{Err: fmt.Errorf("failed to marshal request payload: %w", err)}
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", classifyError(err)
	}

	responseText, err := c.extractText(resp.Body)
	if err != nil {
		return "", &core.TransientError{Err: err}
	}

	rewritten := strings.TrimSpace(responseText)
	c.logger.Debug("Bedrock rewrite completed",
		zap.String("model", c.modelID),
		zap.String("strategy", string(directive.ID)),
		zap.Int("response_size", len(rewritten)))

	return rewritten, nil
}

// extractText pulls the generated text out of the model-specific response
// body
func (c *BedrockRewriter) extractText(body []byte) (string, error) {
	if c.isAnthropicModel() {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil
	}

	if c.isAmazonTitanModel() {
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil
	}

	// Try a generic approach
	var genericResp struct {
		Output   string `json:"output"`
		Text     string `json:"text"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &genericResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
	}
	switch {
	case genericResp.Output != "":
		return genericResp.Output, nil
	case genericResp.Text != "":
		return genericResp.Text, nil
	case genericResp.Response != "":
		return genericResp.Response, nil
	default:
		return string(body), nil
	}
}

// classifyError sorts Bedrock API errors into the retry taxonomy.
// Credential and access errors are permanent; throttling and availability
// errors are retried.
func classifyError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "accessdenied"),
		strings.Contains(msg, "unrecognizedclient"),
		strings.Contains(msg, "validationexception"),
		strings.Contains(msg, "resourcenotfound"):
		return &core.PermanentError{Err: err}
	default:
		return &core.TransientError{Err: err}
	}
}

// isAnthropicModel checks if the model is an Anthropic Claude model
func (c *BedrockRewriter) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *BedrockRewriter) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}
