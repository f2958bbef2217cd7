package completion

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

type openAIBackend struct {
	client *openai.Client
	model  string
}

func newOpenAIBackend(opts Options) *openAIBackend {
	clientConfig := openai.DefaultConfig(opts.Token)

	clientConfig.BaseURL = opts.BaseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: opts.Timeout,
	}

	return &openAIBackend{
		client: openai.NewClientWithConfig(clientConfig),
		model:  opts.Model,
	}
}

func (b *openAIBackend) generate(ctx context.Context, messages []message) (string, error) {
	request := openai.ChatCompletionRequest{
		Model:    b.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}

	for _, msg := range messages {
		request.Messages = append(request.Messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	aiResponse, err := b.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(aiResponse.Choices) == 0 {
		return "", nil
	}

	return aiResponse.Choices[0].Message.Content, nil
}
