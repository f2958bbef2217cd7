package voice

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"pregnancyai/app/config"

	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

var _ do.Shutdownable = (*Speaker)(nil)

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) error
}

// Speaker plays utterances on a fixed pool of workers. Speak never blocks.
type Speaker struct {
	queue   chan string
	synth   Synthesizer
	workers int
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
}

func NewSpeaker(di *do.Injector) (*Speaker, error) {
	cfg := do.MustInvoke[*config.Config](di)

	synth := NewCommandSynthesizer(cfg.Voice.SynthCommand, cfg.Voice.SynthArgs)

	return NewSpeakerWith(synth, cfg.Voice.Workers, cfg.Voice.QueueSize, cfg.Voice.SpeakTimeout), nil
}

func NewSpeakerWith(synth Synthesizer, workers, queueSize int, timeout time.Duration) *Speaker {
	return &Speaker{
		queue:   make(chan string, max(queueSize, 1)),
		synth:   synth,
		workers: max(workers, 1),
		timeout: timeout,
	}
}

func (s *Speaker) Speak(text string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Speak failed", "panic", r)
		}
	}()

	if strings.TrimSpace(text) == "" {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}

	select {
	case s.queue <- text:
	default:
		slog.Warn("speech queue is full, dropping utterance", "length", len(text))
	}
}

// Run blocks until ctx is done or the queue is closed by Shutdown.
func (s *Speaker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := range s.workers {
		g.Go(func() error {
			s.work(ctx, i)
			return nil
		})
	}

	return g.Wait()
}

func (s *Speaker) work(ctx context.Context, worker int) {
	for {
		select {
		case <-ctx.Done():
			return
		case text, ok := <-s.queue:
			if !ok {
				return
			}

			s.play(ctx, worker, text)
		}
	}
}

func (s *Speaker) play(ctx context.Context, worker int, text string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Speech synthesis panicked", "worker", worker, "panic", r)
		}
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()

	if err := s.synth.Synthesize(ctx, text); err != nil {
		slog.Warn("Speech synthesis failed",
			"worker", worker,
			"error", err,
		)
		return
	}

	slog.Debug("Utterance played",
		"worker", worker,
		"length", len(text),
		"duration", time.Since(start),
	)
}

func (s *Speaker) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.queue)
	}

	return nil
}
