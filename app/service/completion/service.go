package completion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pregnancyai/app/config"
	"pregnancyai/app/service/session"

	"github.com/samber/do"
)

type ContextPolicy string

const (
	// PolicyLatest sends only the current message.
	PolicyLatest ContextPolicy = "latest"
	// PolicyHistory also sends up to HistoryTurns prior successful turns.
	PolicyHistory ContextPolicy = "history"
)

type role string

const (
	roleSystem    role = "system"
	roleUser      role = "user"
	roleAssistant role = "assistant"
)

type message struct {
	Role    role
	Content string
}

type backend interface {
	generate(ctx context.Context, messages []message) (string, error)
}

type Options struct {
	Backend      string
	BaseURL      string
	Token        string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
	Policy       ContextPolicy
	HistoryTurns int
}

type Service struct {
	backend      backend
	systemPrompt string
	timeout      time.Duration
	policy       ContextPolicy
	historyTurns int
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(Options{
		Backend:      cfg.OpenAI.Backend,
		BaseURL:      cfg.OpenAI.BaseURL,
		Token:        cfg.OpenAI.Token,
		Model:        cfg.OpenAI.Model,
		SystemPrompt: cfg.OpenAI.SystemPrompt,
		Timeout:      cfg.OpenAI.Timeout,
		Policy:       ContextPolicy(cfg.OpenAI.Context),
		HistoryTurns: cfg.OpenAI.HistoryTurns,
	})
}

func NewService(opts Options) (*Service, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Policy == "" {
		opts.Policy = PolicyLatest
	}

	var (
		b   backend
		err error
	)

	switch opts.Backend {
	case "", "openai":
		b = newOpenAIBackend(opts)
	case "langchain":
		b, err = newLangchainBackend(opts)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown completion backend %q", opts.Backend)
	}

	return &Service{
		backend:      b,
		systemPrompt: opts.SystemPrompt,
		timeout:      opts.Timeout,
		policy:       opts.Policy,
		historyTurns: opts.HistoryTurns,
	}, nil
}

// Complete sends one timeout-bounded request. It never retries and never panics
// past this boundary; failures come back in Result.Err.
func (s *Service) Complete(ctx context.Context, history []session.ChatTurn, text string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Err: &Error{Kind: KindTransport, Detail: fmt.Sprint(r)}}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()

	reply, err := s.backend.generate(ctx, s.buildMessages(history, text))
	if err != nil {
		result = failure(err)
		slog.Warn("Completion failed",
			"kind", result.Err.Kind,
			"error", err,
			"duration", time.Since(start),
		)
		return result
	}

	slog.Debug("Completion finished",
		"length", len(reply),
		"duration", time.Since(start),
	)

	return success(strings.TrimSpace(reply))
}

func (s *Service) buildMessages(history []session.ChatTurn, text string) []message {
	messages := []message{{Role: roleSystem, Content: s.systemPrompt}}

	if s.policy == PolicyHistory && s.historyTurns > 0 {
		messages = append(messages, historyMessages(history, s.historyTurns)...)
	}

	return append(messages, message{Role: roleUser, Content: text})
}

// historyMessages keeps the newest limit turns of exchanges where both sides succeeded.
func historyMessages(history []session.ChatTurn, limit int) []message {
	result := make([]message, 0, limit)

	for i := 0; i+1 < len(history); i += 2 {
		question, answer := history[i], history[i+1]
		if !question.OK() || !answer.OK() {
			continue
		}

		result = append(result,
			message{Role: roleUser, Content: question.Text},
			message{Role: roleAssistant, Content: answer.Text},
		)
	}

	if len(result) > limit {
		result = result[len(result)-limit:]
	}

	return result
}
