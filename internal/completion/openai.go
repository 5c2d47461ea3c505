package completion

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider against any OpenAI-compatible chat
// completion API (OpenAI, DeepSeek, a local server).
type OpenAIProvider struct {
	model  string
	client *openai.Client
}

func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		model:  model,
		client: openai.NewClientWithConfig(cfg),
	}
}

func (p *OpenAIProvider) request(prompt, style string, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt(style)},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
		Stream:      stream,
	}
}

func (p *OpenAIProvider) Complete(ctx context.Context, prompt, style string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.request(prompt, style, false))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("upstream returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) Stream(ctx context.Context, prompt, style string) (<-chan string, <-chan error, error) {
	stream, err := p.client.CreateChatCompletionStream(ctx, p.request(prompt, style, true))
	if err != nil {
		return nil, nil, err
	}

	outCh := make(chan string, 10)
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		defer close(outCh)
		defer stream.Close()
		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				// Context cancellation lands here too when the client
				// disconnects; either way the relay stops, and the consumer
				// learns the reply is incomplete.
				slog.Error("upstream stream error", "err", err)
				errCh <- err
				return
			}
			if len(response.Choices) > 0 {
				fragment := response.Choices[0].Delta.Content
				if fragment == "" {
					continue
				}
				select {
				case outCh <- fragment:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return outCh, errCh, nil
}
