package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "config.yaml"
	PathEnv     = "PREGNANCYAI_CONFIG"
)

type Config struct {
	HTTP      HTTP      `yaml:"http"`
	Log       Log       `yaml:"log"`
	OpenAI    OpenAI    `yaml:"openai"`
	Voice     Voice     `yaml:"voice"`
	Yandex    Yandex    `yaml:"yandex"`
	Gestation Gestation `yaml:"gestation"`
}

type HTTP struct {
	// Address the UI driver API listens on
	Addr string `yaml:"addr" example:":8080" validate:"required"`
}

type OpenAI struct {
	// Completion backend implementation
	Backend string `yaml:"backend" example:"openai" validate:"oneof=openai langchain"`
	// OpenAI-compatible base url
	BaseURL string `yaml:"base_url" example:"https://openrouter.ai/api/v1" validate:"required,url"`
	// Bearer token of the completion service
	Token string `yaml:"token" example:"sk-or-v1-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX" validate:"required"`
	// Model identifier
	Model string `yaml:"model" example:"deepseek/deepseek-r1:free" validate:"required"`
	// System-role message sent with every request
	SystemPrompt string `yaml:"system_prompt" example:"Pregnancy assistant AI" validate:"required"`
	// Upper bound of a single completion call
	Timeout time.Duration `yaml:"timeout" example:"10s" validate:"gt=0"`
	// Which prior turns are sent as context: latest or history
	Context string `yaml:"context" example:"latest" validate:"oneof=latest history"`
	// Number of prior turns sent with the history policy
	HistoryTurns int `yaml:"history_turns" example:"10" validate:"gte=0"`
}

type Voice struct {
	// Max time to wait for speech to start
	ListenTimeout time.Duration `yaml:"listen_timeout" example:"5s" validate:"gt=0"`
	// Max length of a single phrase
	PhraseLimit time.Duration `yaml:"phrase_limit" example:"3s" validate:"gt=0"`
	// RMS level in [0, 1] above which audio counts as speech
	SilenceThreshold float64 `yaml:"silence_threshold" example:"0.02" validate:"gt=0,lt=1"`
	// Quiet time that ends a phrase
	SilenceDuration time.Duration `yaml:"silence_duration" example:"800ms" validate:"gt=0"`
	// Upper bound of a single recognition request
	RecognizeTimeout time.Duration `yaml:"recognize_timeout" example:"10s" validate:"gt=0"`
	// ffmpeg input format of the microphone
	InputFormat string `yaml:"input_format" example:"pulse" validate:"required"`
	// ffmpeg input device of the microphone
	Device string `yaml:"device" example:"default" validate:"required"`
	// Speech recognition backend: whisper or speechkit
	Recognizer string `yaml:"recognizer" example:"whisper" validate:"oneof=whisper speechkit"`
	// OpenAI-compatible base url of the whisper transcription endpoint
	WhisperURL string `yaml:"whisper_base_url" example:"https://api.openai.com/v1" validate:"omitempty,url"`
	// Bearer token of the whisper endpoint, defaults to openai.token
	WhisperToken string `yaml:"whisper_token" example:"sk-abc123"`
	// Recognition language (ISO 639-1 for whisper)
	Language string `yaml:"language" example:"en"`
	// Speech synthesis command
	SynthCommand string `yaml:"synth_command" example:"espeak-ng" validate:"required"`
	// Extra arguments passed before the text
	SynthArgs []string `yaml:"synth_args" example:"[\"-s\", \"150\", \"-v\", \"en\"]"`
	// Number of concurrent playback workers
	Workers int `yaml:"workers" example:"1" validate:"gte=1"`
	// Pending utterances kept before new ones are dropped
	QueueSize int `yaml:"queue_size" example:"16" validate:"gte=1"`
	// Upper bound of a single playback
	SpeakTimeout time.Duration `yaml:"speak_timeout" example:"2m" validate:"gt=0"`
}

type Yandex struct {
	SpeechKit SpeechKit `yaml:"speech_kit"`
}

type SpeechKit struct {
	// Path to the service account key json
	KeyFile string `yaml:"key_file" example:"service-account-key.json"`
	// Recognition language code
	Language string `yaml:"language" example:"en-US"`
}

type Gestation struct {
	// Number of memoized week lookups
	CacheSize int `yaml:"cache_size" example:"50" validate:"gte=1"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

// Path returns the config file location, honoring PREGNANCYAI_CONFIG.
func Path() string {
	if p := os.Getenv(PathEnv); p != "" {
		return p
	}

	return DefaultPath
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.With("path", path).Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse expands ${VAR} references so credentials can stay in the environment.
func Parse(data []byte) (*Config, error) {
	var result Config

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	applyDefaults(&result)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	if result.Voice.Recognizer == "speechkit" && result.Yandex.SpeechKit.KeyFile == "" {
		return nil, oops.Errorf("yandex.speech_kit.key_file is required for the speechkit recognizer")
	}

	return &result, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}

	if cfg.OpenAI.Backend == "" {
		cfg.OpenAI.Backend = "openai"
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "deepseek/deepseek-r1:free"
	}
	if cfg.OpenAI.SystemPrompt == "" {
		cfg.OpenAI.SystemPrompt = "Pregnancy assistant AI"
	}
	if cfg.OpenAI.Timeout == 0 {
		cfg.OpenAI.Timeout = 10 * time.Second
	}
	if cfg.OpenAI.Context == "" {
		cfg.OpenAI.Context = "latest"
	}
	if cfg.OpenAI.HistoryTurns == 0 {
		cfg.OpenAI.HistoryTurns = 10
	}

	if cfg.Voice.ListenTimeout == 0 {
		cfg.Voice.ListenTimeout = 5 * time.Second
	}
	if cfg.Voice.PhraseLimit == 0 {
		cfg.Voice.PhraseLimit = 3 * time.Second
	}
	if cfg.Voice.SilenceThreshold == 0 {
		cfg.Voice.SilenceThreshold = 0.02
	}
	if cfg.Voice.SilenceDuration == 0 {
		cfg.Voice.SilenceDuration = 800 * time.Millisecond
	}
	if cfg.Voice.RecognizeTimeout == 0 {
		cfg.Voice.RecognizeTimeout = 10 * time.Second
	}
	if cfg.Voice.InputFormat == "" {
		cfg.Voice.InputFormat = "pulse"
	}
	if cfg.Voice.Device == "" {
		cfg.Voice.Device = "default"
	}
	if cfg.Voice.Recognizer == "" {
		cfg.Voice.Recognizer = "whisper"
	}
	if cfg.Voice.WhisperURL == "" {
		cfg.Voice.WhisperURL = "https://api.openai.com/v1"
	}
	if cfg.Voice.WhisperToken == "" {
		cfg.Voice.WhisperToken = cfg.OpenAI.Token
	}
	if cfg.Voice.Language == "" {
		cfg.Voice.Language = "en"
	}
	if cfg.Voice.SynthCommand == "" {
		cfg.Voice.SynthCommand = "espeak-ng"
		if cfg.Voice.SynthArgs == nil {
			cfg.Voice.SynthArgs = []string{"-s", "150", "-v", "en"}
		}
	}
	if cfg.Voice.Workers == 0 {
		cfg.Voice.Workers = 1
	}
	if cfg.Voice.QueueSize == 0 {
		cfg.Voice.QueueSize = 16
	}
	if cfg.Voice.SpeakTimeout == 0 {
		cfg.Voice.SpeakTimeout = 2 * time.Minute
	}

	if cfg.Yandex.SpeechKit.Language == "" {
		cfg.Yandex.SpeechKit.Language = "en-US"
	}

	if cfg.Gestation.CacheSize == 0 {
		cfg.Gestation.CacheSize = 50
	}
}
