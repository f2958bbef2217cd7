package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pregnancyai/app/config"
	"pregnancyai/app/service/completion"
	"pregnancyai/app/service/gestation"
	"pregnancyai/app/service/session"
	"pregnancyai/app/service/voice"
	"pregnancyai/app/util/mylog"

	"github.com/go-playground/validator/v10"
	"github.com/samber/do"
)

type Completer interface {
	Complete(ctx context.Context, history []session.ChatTurn, text string) completion.Result
}

type Listener interface {
	Listen(ctx context.Context, timeout, phraseLimit time.Duration) (string, error)
}

type Speaker interface {
	Speak(text string)
}

type Options struct {
	Completer     Completer
	Listener      Listener
	Speaker       Speaker
	Calculator    *gestation.Calculator
	ListenTimeout time.Duration
	PhraseLimit   time.Duration
}

type Service struct {
	completer  Completer
	listener   Listener
	speaker    Speaker
	calculator *gestation.Calculator
	validate   *validator.Validate

	listenTimeout time.Duration
	phraseLimit   time.Duration
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(Options{
		Completer:     do.MustInvoke[*completion.Service](di),
		Listener:      do.MustInvoke[*voice.Listener](di),
		Speaker:       do.MustInvoke[*voice.Speaker](di),
		Calculator:    do.MustInvoke[*gestation.Calculator](di),
		ListenTimeout: cfg.Voice.ListenTimeout,
		PhraseLimit:   cfg.Voice.PhraseLimit,
	}), nil
}

func NewService(opts Options) *Service {
	return &Service{
		completer:     opts.Completer,
		listener:      opts.Listener,
		speaker:       opts.Speaker,
		calculator:    opts.Calculator,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		listenTimeout: opts.ListenTimeout,
		phraseLimit:   opts.PhraseLimit,
	}
}

// Ask records the question, asks the AI and records the reply. A failed
// completion becomes the reply text; the only errors are ErrEmptyInput and ErrSessionBusy.
func (s *Service) Ask(ctx context.Context, sess *session.Session, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}

	if !sess.Begin() {
		return "", ErrSessionBusy
	}
	defer sess.End()

	return s.ask(ctx, sess, text), nil
}

func (s *Service) ask(ctx context.Context, sess *session.Session, text string) string {
	store := sess.Store()

	history := store.Transcript()
	store.AppendChatTurn(session.SpeakerUser, text, session.TurnOK)

	start := time.Now()
	result := s.completer.Complete(ctx, history, text)

	status := session.TurnOK
	if !result.OK() {
		status = session.TurnError
	}

	reply := result.Display()
	store.AppendChatTurn(session.SpeakerAI, reply, status)

	s.speaker.Speak(reply)

	slog.Info("Question answered",
		"session", sess.ID,
		"status", status,
		"duration", time.Since(start),
		mylog.TelegramKey, true,
	)

	return reply
}

// AskByVoice listens for a question and answers it. Recognition failures are
// recorded as a placeholder pair and spoken; the AI is not called for them.
func (s *Service) AskByVoice(ctx context.Context, sess *session.Session) (string, error) {
	if !sess.Begin() {
		return "", ErrSessionBusy
	}
	defer sess.End()

	text, err := s.listener.Listen(ctx, s.listenTimeout, s.phraseLimit)
	if err == nil && strings.TrimSpace(text) == "" {
		err = &voice.Error{Kind: voice.KindNotRecognized}
	}

	if err != nil {
		voiceErr := voice.AsError(err)
		message := voiceErr.Message()

		store := sess.Store()
		store.AppendChatTurn(session.SpeakerUser, VoiceFailedText, session.TurnVoiceFailed)
		store.AppendChatTurn(session.SpeakerAI, message, session.TurnError)

		s.speaker.Speak(message)

		slog.Warn("Voice question failed",
			"session", sess.ID,
			"kind", voiceErr.Kind,
			"error", err,
		)

		return message, nil
	}

	return s.ask(ctx, sess, text), nil
}

func (s *Service) LogMood(sess *session.Session, mood session.Mood) session.MoodEntry {
	entry := sess.Store().AppendMoodEntry(s.calculator.Today(), mood)

	slog.Debug("Mood logged", "session", sess.ID, "mood", mood)

	return entry
}

// SetDueDate stores the due date normalized to a calendar day.
func (s *Service) SetDueDate(sess *session.Session, due time.Time) {
	sess.Store().SetDueDate(gestation.Date(due))
}

func (s *Service) ClearDueDate(sess *session.Session) {
	sess.Store().ClearDueDate()
}

// UpdateDueDate sets a YYYY-MM-DD due date, or clears it when raw is blank.
func (s *Service) UpdateDueDate(sess *session.Session, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		s.ClearDueDate(sess)
		return nil
	}

	due, err := gestation.ParseDate(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDueDate, err)
	}

	s.SetDueDate(sess, due)

	return nil
}

// Week reports the current gestational week, or false if no due date is set.
func (s *Service) Week(sess *session.Session) (int, bool) {
	due, ok := sess.Store().DueDate()
	if !ok {
		return 0, false
	}

	return s.calculator.Current(due), true
}

func (s *Service) Snapshot(sess *session.Session) View {
	view := View{Snapshot: sess.Store().Snapshot()}

	if week, ok := s.Week(sess); ok {
		view.Week = &week
	}

	return view
}

func (s *Service) validateProfile(profile Profile) error {
	if err := s.validate.Struct(profile); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	return nil
}
