// Package llm wraps the chat-completion deployments used for code synthesis
// and locator extraction.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/i-StarX/tc-transformer/pkg/transformer/logging"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrNoChoices indicates the service answered without any completion choice.
var ErrNoChoices = errors.New("no response choices returned")

// Completer turns a single user prompt into completion text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// AzureOptions configures an Azure OpenAI deployment client.
type AzureOptions struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	Deployment string
	Timeout    time.Duration
}

// AzureClient is a Completer backed by one Azure OpenAI deployment.
type AzureClient struct {
	client     *openai.Client
	deployment string
	timeout    time.Duration
	logger     *zap.Logger
}

// NewAzureClient creates a client for opts.Deployment.
func NewAzureClient(opts AzureOptions, logger *zap.Logger) *AzureClient {
	cfg := openai.DefaultAzureConfig(opts.APIKey, strings.TrimRight(opts.Endpoint, "/"))
	if opts.APIVersion != "" {
		cfg.APIVersion = opts.APIVersion
	}
	deployment := opts.Deployment
	// Deployment names are used verbatim; the default mapper strips dots.
	cfg.AzureModelMapperFunc = func(string) string { return deployment }

	return &AzureClient{
		client:     openai.NewClientWithConfig(cfg),
		deployment: deployment,
		timeout:    opts.Timeout,
		logger:     logging.Named(logger, "llm").With(zap.String("deployment", deployment)),
	}
}

// Deployment returns the deployment name the client talks to.
func (c *AzureClient) Deployment() string {
	return c.deployment
}

// Complete sends prompt as a single user message and returns the first choice.
func (c *AzureClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.deployment,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion (%s): %w", c.deployment, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion (%s): %w", c.deployment, ErrNoChoices)
	}

	c.logger.Debug("completion received",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return resp.Choices[0].Message.Content, nil
}
