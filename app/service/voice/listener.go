package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"pregnancyai/app/client/speechkit"
	"pregnancyai/app/config"

	"github.com/samber/do"
)

type ListenerOptions struct {
	// Upper bound of a single recognition request
	RecognizeTimeout time.Duration
	// RMS level in [0, 1] above which a frame counts as speech
	SilenceThreshold float64
	// Quiet time that ends a phrase
	SilenceDuration time.Duration
	// Slack for the microphone to deliver audio on top of the audio clock
	CaptureGrace time.Duration
}

func (o *ListenerOptions) applyDefaults() {
	if o.RecognizeTimeout <= 0 {
		o.RecognizeTimeout = 10 * time.Second
	}
	if o.SilenceThreshold <= 0 {
		o.SilenceThreshold = 0.02
	}
	if o.SilenceDuration <= 0 {
		o.SilenceDuration = 800 * time.Millisecond
	}
	if o.CaptureGrace <= 0 {
		o.CaptureGrace = 2 * time.Second
	}
}

type Listener struct {
	mic        Microphone
	recognizer Recognizer
	opts       ListenerOptions
}

func NewListener(di *do.Injector) (*Listener, error) {
	cfg := do.MustInvoke[*config.Config](di)

	var recognizer Recognizer

	switch cfg.Voice.Recognizer {
	case "speechkit":
		client, err := do.Invoke[*speechkit.YandexSpeechKit](di)
		if err != nil {
			return nil, fmt.Errorf("failed to create speechkit client: %w", err)
		}
		recognizer = NewSpeechKitRecognizer(client)
	default:
		recognizer = NewWhisperRecognizer(
			cfg.Voice.WhisperURL,
			cfg.Voice.WhisperToken,
			cfg.Voice.Language,
			cfg.Voice.RecognizeTimeout,
		)
	}

	mic := NewFFmpegMicrophone(cfg.Voice.InputFormat, cfg.Voice.Device)

	return NewListenerWith(mic, recognizer, ListenerOptions{
		RecognizeTimeout: cfg.Voice.RecognizeTimeout,
		SilenceThreshold: cfg.Voice.SilenceThreshold,
		SilenceDuration:  cfg.Voice.SilenceDuration,
	}), nil
}

func NewListenerWith(mic Microphone, recognizer Recognizer, opts ListenerOptions) *Listener {
	opts.applyDefaults()

	return &Listener{
		mic:        mic,
		recognizer: recognizer,
		opts:       opts,
	}
}

// Listen waits up to timeout for speech, records at most phraseLimit of it and
// transcribes the result. Every failure is a *Error.
func (l *Listener) Listen(ctx context.Context, timeout, phraseLimit time.Duration) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Listen panicked", "panic", r)
			text, err = "", deviceError(fmt.Errorf("panic: %v", r))
		}
	}()

	start := time.Now()

	audio, err := l.record(ctx, timeout, phraseLimit)
	if err != nil {
		slog.Warn("Audio capture failed", "error", err, "duration", time.Since(start))
		return "", AsError(err)
	}

	text, err = l.recognize(ctx, audio)
	if err != nil {
		slog.Warn("Speech recognition failed", "error", err, "duration", time.Since(start))
		return "", AsError(err)
	}

	slog.Debug("Speech recognized",
		"length", len(text),
		"audio_bytes", len(audio),
		"duration", time.Since(start),
	)

	return text, nil
}

func (l *Listener) recognize(ctx context.Context, audio []byte) (string, error) {
	recognizeCtx, cancel := context.WithTimeout(ctx, l.opts.RecognizeTimeout)
	defer cancel()

	text, err := l.recognizer.Recognize(recognizeCtx, audio)
	if err != nil && ctx.Err() == nil && errors.Is(recognizeCtx.Err(), context.DeadlineExceeded) {
		return "", serviceUnavailable(fmt.Errorf("recognition timed out after %s: %w", l.opts.RecognizeTimeout, err))
	}

	return text, err
}

func (l *Listener) record(ctx context.Context, timeout, phraseLimit time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout+phraseLimit+l.opts.CaptureGrace)
	defer cancel()

	capture, err := l.mic.Open(ctx, timeout+phraseLimit)
	if err != nil {
		return nil, deviceError(err)
	}
	defer capture.Close()

	// unblocks a stalled read
	stop := context.AfterFunc(ctx, func() {
		_ = capture.Close()
	})
	defer stop()

	vad := NewVoiceActivityDetector(l.opts.SilenceThreshold, l.opts.SilenceDuration, timeout, phraseLimit)
	audio := capture.Audio()
	frame := make([]byte, frameBytes)

	for {
		n, err := io.ReadFull(audio, frame)
		if n > 0 {
			done, vadErr := vad.Feed(frame[:n])
			if vadErr != nil {
				return nil, deviceError(vadErr)
			}
			if done {
				break
			}
		}

		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, deviceError(fmt.Errorf("capture stalled: %w", ctx.Err()))
			}
			return nil, deviceError(fmt.Errorf("failed to read audio: %w", err))
		}
	}

	phrase, err := vad.Phrase()
	if err != nil {
		return nil, deviceError(err)
	}

	return phrase, nil
}
