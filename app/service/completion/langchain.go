package completion

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

type langchainBackend struct {
	llm *lcopenai.LLM
}

func newLangchainBackend(opts Options) (*langchainBackend, error) {
	llm, err := lcopenai.New(
		lcopenai.WithToken(opts.Token),
		lcopenai.WithBaseURL(opts.BaseURL),
		lcopenai.WithModel(opts.Model),
		lcopenai.WithHTTPClient(&http.Client{Timeout: opts.Timeout}),
		lcopenai.WithCallback(LogCallbackHandler{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create langchain llm: %w", err)
	}

	return &langchainBackend{llm: llm}, nil
}

var messageTypes = map[role]llms.ChatMessageType{
	roleSystem:    llms.ChatMessageTypeSystem,
	roleUser:      llms.ChatMessageTypeHuman,
	roleAssistant: llms.ChatMessageTypeAI,
}

func (b *langchainBackend) generate(ctx context.Context, messages []message) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.TextParts(messageTypes[msg.Role], msg.Content))
	}

	response, err := b.llm.GenerateContent(ctx, content)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", nil
	}

	return response.Choices[0].Content, nil
}
