package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"pregnancyai/app/client/speechkit"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const chunkSize = 4096

type SpeechKitRecognizer struct {
	client *speechkit.YandexSpeechKit
}

func NewSpeechKitRecognizer(client *speechkit.YandexSpeechKit) *SpeechKitRecognizer {
	return &SpeechKitRecognizer{client: client}
}

func (r *SpeechKitRecognizer) Recognize(ctx context.Context, pcm []byte) (string, error) {
	handle, err := r.client.Start(ctx)
	if err != nil {
		return "", classifySpeechKit(err)
	}
	defer handle.Close()

	var phrases []string

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return streamAudio(ctx, bytes.NewReader(pcm), handle)
	})

	g.Go(func() error {
		for {
			alternatives, err := handle.Recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to receive stt: %w", err)
			}

			if len(alternatives) > 0 {
				phrases = append(phrases, alternatives[0])
			}
		}
	})

	if err = g.Wait(); err != nil {
		return "", classifySpeechKit(err)
	}

	text := strings.TrimSpace(strings.Join(phrases, " "))
	if text == "" {
		return "", notRecognized(errors.New("no final utterance"))
	}

	return text, nil
}

func streamAudio(ctx context.Context, audioSrc io.Reader, handle *speechkit.Handle) error {
	if err := handle.SendConfig(); err != nil {
		return fmt.Errorf("failed to send audio config: %w", err)
	}

	buffer := make([]byte, chunkSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := audioSrc.Read(buffer)
		if errors.Is(err, io.EOF) {
			return handle.CloseSend()
		}
		if err != nil {
			return fmt.Errorf("failed to read audio: %w", err)
		}

		if err = handle.Send(buffer[:n]); err != nil {
			return fmt.Errorf("failed to send audio: %w", err)
		}
	}
}

func classifySpeechKit(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return serviceUnavailable(err)
	}

	st, ok := status.FromError(err)
	if !ok {
		return serviceUnavailable(err)
	}

	switch st.Code() {
	case codes.InvalidArgument, codes.OutOfRange:
		return notRecognized(err)
	default:
		return serviceUnavailable(err)
	}
}
