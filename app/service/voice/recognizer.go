package voice

import (
	"context"
)

type Recognizer interface {
	// Recognize transcribes 16 kHz s16le mono PCM.
	Recognize(ctx context.Context, pcm []byte) (string, error)
}
