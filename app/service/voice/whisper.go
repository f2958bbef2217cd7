package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

type WhisperRecognizer struct {
	client   *openai.Client
	language string
}

func NewWhisperRecognizer(baseURL, token, language string, timeout time.Duration) *WhisperRecognizer {
	clientConfig := openai.DefaultConfig(token)

	clientConfig.BaseURL = baseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: timeout,
	}

	return &WhisperRecognizer{
		client:   openai.NewClientWithConfig(clientConfig),
		language: language,
	}
}

func (r *WhisperRecognizer) Recognize(ctx context.Context, pcm []byte) (string, error) {
	resp, err := r.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   bytes.NewReader(wrapWAV(pcm)),
		FilePath: "speech.wav",
		Language: r.language,
	})
	if err != nil {
		return "", classifyWhisper(err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", notRecognized(errors.New("empty transcription"))
	}

	return text, nil
}

func classifyWhisper(err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusBadRequest {
		return notRecognized(fmt.Errorf("transcription rejected: %w", err))
	}

	return serviceUnavailable(fmt.Errorf("transcription failed: %w", err))
}
