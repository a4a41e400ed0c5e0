package config

import (
	"time"
)

// RewriterConfig represents the configuration for the rewrite provider
type RewriterConfig struct {
	Provider string
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// ClassifierConfig represents the configuration for the classifier service
type ClassifierConfig struct {
	Endpoint     string
	Timeout      time.Duration
	ModelVersion string
}

// RefinementSettings represents the refinement loop configuration
type RefinementSettings struct {
	AcceptThreshold  float64
	MaxAttempts      int
	ImprovementRatio float64
	MaxRetries       int
	CallTimeout      time.Duration
}

// RateLimitConfig represents the shared call gate configuration
type RateLimitConfig struct {
	MinInterval time.Duration
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// ServerConfig represents the gateway configuration
type ServerConfig struct {
	GatewayType          string
	ListenAddress        string
	SMTPListenAddress    string
	UpstreamAddress      string
	UpstreamPort         int
	UpstreamEnabled      bool
	ReplaceBody          bool
	ScoreHeader          string
	RecommendationHeader string
	RefinedHeader        string
}

// GetRewriter returns the rewrite provider configuration
func (c *Config) GetRewriter() RewriterConfig {
	return RewriterConfig{
		Provider: c.GetString("rewriter.provider"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetClassifier returns the classifier service configuration
func (c *Config) GetClassifier() (ClassifierConfig, error) {
	timeout, err := c.GetDuration("classifier.timeout")
	if err != nil {
		return ClassifierConfig{}, err
	}
	return ClassifierConfig{
		Endpoint:     c.GetString("classifier.endpoint"),
		Timeout:      timeout,
		ModelVersion: c.GetString("classifier.model_version"),
	}, nil
}

// GetRefinement returns the refinement loop configuration
func (c *Config) GetRefinement() (RefinementSettings, error) {
	callTimeout, err := c.GetDuration("refinement.call_timeout")
	if err != nil {
		return RefinementSettings{}, err
	}
	return RefinementSettings{
		AcceptThreshold:  c.GetFloat64("refinement.accept_threshold"),
		MaxAttempts:      c.GetInt("refinement.max_attempts"),
		ImprovementRatio: c.GetFloat64("refinement.improvement_ratio"),
		MaxRetries:       c.GetInt("refinement.max_retries"),
		CallTimeout:      callTimeout,
	}, nil
}

// GetRateLimit returns the shared call gate configuration
func (c *Config) GetRateLimit() (RateLimitConfig, error) {
	minInterval, err := c.GetDuration("ratelimit.min_interval")
	if err != nil {
		return RateLimitConfig{}, err
	}
	backoffBase, err := c.GetDuration("ratelimit.backoff_base")
	if err != nil {
		return RateLimitConfig{}, err
	}
	backoffMax, err := c.GetDuration("ratelimit.backoff_max")
	if err != nil {
		return RateLimitConfig{}, err
	}
	return RateLimitConfig{
		MinInterval: minInterval,
		BackoffBase: backoffBase,
		BackoffMax:  backoffMax,
	}, nil
}

// GetServer returns the gateway configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		GatewayType:          c.GetString("server.gateway_type"),
		ListenAddress:        c.GetString("server.listen_address"),
		SMTPListenAddress:    c.GetString("server.smtp_listen_address"),
		UpstreamAddress:      c.GetString("server.upstream_address"),
		UpstreamPort:         c.GetInt("server.upstream_port"),
		UpstreamEnabled:      c.GetBool("server.upstream_enabled"),
		ReplaceBody:          c.GetBool("server.replace_body"),
		ScoreHeader:          c.GetString("server.headers.score"),
		RecommendationHeader: c.GetString("server.headers.recommendation"),
		RefinedHeader:        c.GetString("server.headers.refined"),
	}
}
