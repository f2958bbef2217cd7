package speechkit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"pregnancyai/app/config"

	"github.com/samber/do"
	"github.com/samber/oops"
	ycsdk "github.com/yandex-cloud/go-sdk"
	"github.com/yandex-cloud/go-sdk/iamkey"
)

type YandexSpeechKit struct {
	language string
	sdk      *ycsdk.SDK
}

func NewClient(di *do.Injector) (*YandexSpeechKit, error) {
	ctx := do.MustInvoke[context.Context](di)
	cfg := do.MustInvoke[*config.Config](di)

	keyFile := cfg.Yandex.SpeechKit.KeyFile

	keyBytes, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, oops.With("key_file", keyFile).Errorf("could not read service account key: %w", err)
	}

	var key iamkey.Key
	if err = json.Unmarshal(keyBytes, &key); err != nil {
		return nil, oops.With("key_file", keyFile).Errorf("could not parse service account key: %w", err)
	}

	creds, err := ycsdk.ServiceAccountKey(&key)
	if err != nil {
		return nil, oops.Errorf("could not create service account key: %w", err)
	}

	sdk, err := ycsdk.Build(ctx, ycsdk.Config{
		Credentials: creds,
	})
	if err != nil {
		return nil, oops.Errorf("failed to create Yandex SDK: %w", err)
	}

	return &YandexSpeechKit{
		language: cfg.Yandex.SpeechKit.Language,
		sdk:      sdk,
	}, nil
}

// Start opens one recognition stream. The caller must Close the handle.
func (y *YandexSpeechKit) Start(ctx context.Context) (*Handle, error) {
	ctx, cancel := context.WithCancel(ctx)

	client, err := y.sdk.AI().STTV3().Recognizer().RecognizeStreaming(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Handle{
		client:   client,
		cancel:   cancel,
		language: y.language,
	}, nil
}

func (y *YandexSpeechKit) Shutdown() error {
	return y.sdk.Shutdown(context.Background())
}
