// Package lmclient talks to a local OpenAI-API-compatible LM server for
// translation and rolling-minutes summarization.
package lmclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/meetloop/meetloop/internal/apierr"
)

// System prompts, reproduced verbatim for compatibility with the LM's
// fine-tuning expectations.
const (
	translationSystemPromptFmt = "Translate the user text to %s.\n" +
		"Rules:\n" +
		"- Output ONLY the translation.\n" +
		"- No explanations, no notes, no options, no extra lines.\n" +
		"- Preserve meaning and tone.\n"

	summarizationSystemPromptFirst = "You are a meeting assistant.\n" +
		"Summarize ONLY what is in the transcript.\n" +
		"Output Markdown with sections:\n" +
		"## Summary\n" +
		"## Decisions\n" +
		"## Action Items\n" +
		"## Open Questions\n" +
		"If a section has none, write 'None'.\n" +
		"Do not invent.\n"

	summarizationSystemPromptRolling = "You are a meeting assistant.\n" +
		"Update the summary to incorporate the new transcript.\n" +
		"Summarize ONLY what is in the transcript.\n" +
		"Output Markdown with sections:\n" +
		"## Summary\n" +
		"## Decisions\n" +
		"## Action Items\n" +
		"## Open Questions\n" +
		"If a section has none, write 'None'.\n" +
		"Do not invent.\n"

	translationTemperature      = 0.0
	summarizationFirstTemp      = 0.2
	summarizationRollingTemp    = 0.2
)

// chatCompleter is the subset of *openai.Client used here, so tests can
// inject a fake. *openai.Client implements this implicitly.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// liveness is the subset used for the /models probe.
type liveness interface {
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// streamReceiver is the subset of *openai.ChatCompletionStream used here,
// so tests can inject a fake without opening a real SSE connection.
type streamReceiver interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// streamCompleter creates a streamReceiver from a streaming chat-completion
// request. *openai.Client satisfies this through the openAIStreamer adapter
// below, since its CreateChatCompletionStream returns the concrete
// *openai.ChatCompletionStream rather than this interface.
type streamCompleter interface {
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (streamReceiver, error)
}

// openAIStreamer adapts *openai.Client to streamCompleter.
type openAIStreamer struct {
	client *openai.Client
}

func (a openAIStreamer) CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (streamReceiver, error) {
	return a.client.CreateChatCompletionStream(ctx, req)
}

// Client wraps a chat-completion-capable OpenAI client pointed at a local
// LM server, with retry/backoff and sentinel-error classification.
type Client struct {
	chat   chatCompleter
	stream streamCompleter
	models liveness

	modelFast  string
	modelSmart string

	retry apierr.RetryConfig
}

// Option configures a Client.
type Option func(*Client)

// WithRetryConfig overrides the default retry configuration.
func WithRetryConfig(cfg apierr.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// New creates a Client from a configured *openai.Client, using modelFast
// for translation and modelSmart for summarization.
func New(client *openai.Client, modelFast, modelSmart string, opts ...Option) *Client {
	c := &Client{
		chat:       client,
		stream:     openAIStreamer{client: client},
		models:     client,
		modelFast:  modelFast,
		modelSmart: modelSmart,
		retry: apierr.RetryConfig{
			MaxRetries: 3,
			BaseDelay:  500 * time.Millisecond,
			MaxDelay:   10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Translate translates text into targetLang using the fast model.
func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.modelFast,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(translationSystemPromptFmt, targetLang)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: translationTemperature,
	}
	return c.completeWithRetry(ctx, req)
}

// TranslateStream is Translate's SSE-streamed variant: the request is sent
// with Stream set, and the server-sent `data:` chunks are concatenated into
// a single translation before returning, terminating on `[DONE]` (io.EOF
// from the stream decoder).
func (c *Client) TranslateStream(ctx context.Context, text, targetLang string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.modelFast,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(translationSystemPromptFmt, targetLang)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: translationTemperature,
		Stream:      true,
	}
	return c.completeStreamWithRetry(ctx, req)
}

// Summarize produces the first rolling-minutes summary for transcriptBlock.
func (c *Client) Summarize(ctx context.Context, transcriptBlock string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.modelSmart,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarizationSystemPromptFirst},
			{Role: openai.ChatMessageRoleUser, Content: transcriptBlock},
		},
		Temperature: summarizationFirstTemp,
	}
	return c.completeWithRetry(ctx, req)
}

// SummarizeRolling updates previousSummary to incorporate newBlock.
func (c *Client) SummarizeRolling(ctx context.Context, previousSummary, newBlock string) (string, error) {
	userContent := fmt.Sprintf("Previous summary:\n%s\n\nNew transcript since last summary:\n%s", previousSummary, newBlock)
	req := openai.ChatCompletionRequest{
		Model: c.modelSmart,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarizationSystemPromptRolling},
			{Role: openai.ChatMessageRoleUser, Content: userContent},
		},
		Temperature: summarizationRollingTemp,
	}
	return c.completeWithRetry(ctx, req)
}

// Alive probes the LM's /models endpoint, returning true on any successful
// response.
func (c *Client) Alive(ctx context.Context) bool {
	_, err := c.models.ListModels(ctx)
	return err == nil
}

func (c *Client) completeWithRetry(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	return apierr.RetryWithBackoff(ctx, c.retry, func() (string, error) {
		resp, err := c.chat.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", classifyError(err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no response from LM")
		}
		return resp.Choices[0].Message.Content, nil
	}, isRetryable)
}

func (c *Client) completeStreamWithRetry(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	return apierr.RetryWithBackoff(ctx, c.retry, func() (string, error) {
		stream, err := c.stream.CreateChatCompletionStream(ctx, req)
		if err != nil {
			return "", classifyError(err)
		}
		defer stream.Close()

		var sb strings.Builder
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return "", classifyError(err)
			}
			if len(resp.Choices) > 0 {
				sb.WriteString(resp.Choices[0].Delta.Content)
			}
		}
		return sb.String(), nil
	}, isRetryable)
}

// classifyError maps go-openai errors to apierr sentinels.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrRateLimit)
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrAuthFailed)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrTimeout)
		case http.StatusBadRequest:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrBadRequest)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}

	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return fmt.Errorf("%s: %w", errStr, apierr.ErrTimeout)
	}

	return err
}

func isRetryable(err error) bool {
	if errors.Is(err, apierr.ErrRateLimit) || errors.Is(err, apierr.ErrTimeout) {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, apierr.ErrAuthFailed) || errors.Is(err, apierr.ErrBadRequest) {
		return false
	}

	return false
}
