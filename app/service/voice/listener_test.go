package voice

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMicrophone struct {
	audio  io.Reader
	err    error
	panics bool

	opened atomic.Int32
	closed atomic.Int32
	limit  time.Duration
}

func (m *fakeMicrophone) Open(_ context.Context, limit time.Duration) (Capture, error) {
	if m.panics {
		panic("device exploded")
	}

	m.opened.Add(1)
	m.limit = limit

	if m.err != nil {
		return nil, m.err
	}

	return &fakeCapture{mic: m}, nil
}

type fakeCapture struct {
	mic *fakeMicrophone
}

func (c *fakeCapture) Audio() io.Reader {
	return c.mic.audio
}

func (c *fakeCapture) Close() error {
	c.mic.closed.Add(1)

	if closer, ok := c.mic.audio.(io.Closer); ok {
		_ = closer.Close()
	}

	return nil
}

type fakeRecognizer struct {
	text  string
	err   error
	stall bool

	calls atomic.Int32
	got   []byte
}

func (r *fakeRecognizer) Recognize(ctx context.Context, pcm []byte) (string, error) {
	r.calls.Add(1)
	r.got = pcm

	if r.stall {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}

	return r.text, r.err
}

func tone(d time.Duration) []byte {
	samples := int(d * sampleRate / time.Second)
	pcm := make([]byte, samples*bytesPerSample)

	for i := 0; i < samples; i++ {
		sample := int16(8000)
		if i%2 == 1 {
			sample = -8000
		}
		binary.LittleEndian.PutUint16(pcm[i*bytesPerSample:], uint16(sample))
	}

	return pcm
}

func quiet(d time.Duration) []byte {
	return make([]byte, int(d*sampleRate/time.Second)*bytesPerSample)
}

func pcmStream(parts ...[]byte) io.Reader {
	return bytes.NewReader(bytes.Join(parts, nil))
}

var testOptions = ListenerOptions{SilenceDuration: 300 * time.Millisecond}

func TestListenSuccess(t *testing.T) {
	mic := &fakeMicrophone{audio: pcmStream(quiet(200*time.Millisecond), tone(600*time.Millisecond), quiet(2*time.Second))}
	recognizer := &fakeRecognizer{text: "how do I manage morning sickness"}

	text, err := NewListenerWith(mic, recognizer, testOptions).Listen(context.Background(), time.Second, 3*time.Second)
	require.NoError(t, err)

	assert.Equal(t, "how do I manage morning sickness", text)
	assert.Equal(t, 4*time.Second, mic.limit)
	assert.EqualValues(t, 1, mic.closed.Load())

	// stops at the trailing silence window instead of draining the stream
	got := pcmDuration(len(recognizer.got))
	assert.GreaterOrEqual(t, got, 900*time.Millisecond)
	assert.Less(t, got, 1200*time.Millisecond)
	assert.True(t, bytes.Contains(recognizer.got, tone(600*time.Millisecond)))
}

func TestListenSilenceIsNoSpeech(t *testing.T) {
	mic := &fakeMicrophone{audio: pcmStream(quiet(3 * time.Second))}
	recognizer := &fakeRecognizer{text: "unused"}

	_, err := NewListenerWith(mic, recognizer, testOptions).Listen(context.Background(), time.Second, time.Second)

	var voiceErr *Error
	require.ErrorAs(t, err, &voiceErr)
	assert.Equal(t, KindDeviceError, voiceErr.Kind)
	assert.ErrorIs(t, err, errNoSpeech)
	assert.EqualValues(t, 0, recognizer.calls.Load())
	assert.EqualValues(t, 1, mic.closed.Load())
}

func TestListenSpeechBelowThreshold(t *testing.T) {
	mic := &fakeMicrophone{audio: pcmStream(tone(time.Second))}
	recognizer := &fakeRecognizer{text: "unused"}

	opts := testOptions
	opts.SilenceThreshold = 0.5

	_, err := NewListenerWith(mic, recognizer, opts).Listen(context.Background(), 500*time.Millisecond, time.Second)
	assert.ErrorIs(t, err, errNoSpeech)
	assert.EqualValues(t, 0, recognizer.calls.Load())
}

func TestListenTruncatesAtPhraseLimit(t *testing.T) {
	mic := &fakeMicrophone{audio: pcmStream(tone(5 * time.Second))}
	recognizer := &fakeRecognizer{text: "a very long question"}

	_, err := NewListenerWith(mic, recognizer, testOptions).Listen(context.Background(), time.Second, time.Second)
	require.NoError(t, err)

	got := pcmDuration(len(recognizer.got))
	assert.GreaterOrEqual(t, got, time.Second)
	assert.Less(t, got, time.Second+2*frameDuration)
}

func TestListenStreamEndsBeforeSpeech(t *testing.T) {
	for name, audio := range map[string][]byte{
		"empty":   nil,
		"silence": quiet(100 * time.Millisecond),
	} {
		t.Run(name, func(t *testing.T) {
			mic := &fakeMicrophone{audio: pcmStream(audio)}
			recognizer := &fakeRecognizer{text: "unused"}

			_, err := NewListenerWith(mic, recognizer, testOptions).Listen(context.Background(), time.Second, time.Second)

			var voiceErr *Error
			require.ErrorAs(t, err, &voiceErr)
			assert.Equal(t, KindDeviceError, voiceErr.Kind)
			assert.ErrorIs(t, err, errNoSpeech)
			assert.EqualValues(t, 0, recognizer.calls.Load())
		})
	}
}

func TestListenStalledMicrophone(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()

	mic := &fakeMicrophone{audio: reader}
	recognizer := &fakeRecognizer{text: "unused"}

	opts := testOptions
	opts.CaptureGrace = 20 * time.Millisecond

	start := time.Now()
	_, err := NewListenerWith(mic, recognizer, opts).Listen(context.Background(), 20*time.Millisecond, 20*time.Millisecond)

	var voiceErr *Error
	require.ErrorAs(t, err, &voiceErr)
	assert.Equal(t, KindDeviceError, voiceErr.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	assert.EqualValues(t, 0, recognizer.calls.Load())
}

func TestListenRecognizeTimeout(t *testing.T) {
	mic := &fakeMicrophone{audio: pcmStream(tone(300*time.Millisecond), quiet(time.Second))}
	recognizer := &fakeRecognizer{text: "too late", stall: true}

	opts := testOptions
	opts.RecognizeTimeout = 50 * time.Millisecond

	start := time.Now()
	text, err := NewListenerWith(mic, recognizer, opts).Listen(context.Background(), time.Second, time.Second)
	assert.Empty(t, text)
	assert.Less(t, time.Since(start), time.Second)

	var voiceErr *Error
	require.ErrorAs(t, err, &voiceErr)
	assert.Equal(t, KindServiceUnavailable, voiceErr.Kind)
	assert.Equal(t, "Speech recognition service unavailable.", voiceErr.Message())
	assert.EqualValues(t, 1, recognizer.calls.Load())
}

func TestListenRecognizerFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    ErrorKind
		message string
	}{
		{
			name:    "not recognized",
			err:     notRecognized(errors.New("empty transcription")),
			kind:    KindNotRecognized,
			message: "Speech not recognized. Try again.",
		},
		{
			name:    "service unavailable",
			err:     serviceUnavailable(errors.New("connection refused")),
			kind:    KindServiceUnavailable,
			message: "Speech recognition service unavailable.",
		},
		{
			name:    "untagged",
			err:     errors.New("broken pipe"),
			kind:    KindDeviceError,
			message: "Error: broken pipe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mic := &fakeMicrophone{audio: pcmStream(tone(300*time.Millisecond), quiet(time.Second))}
			recognizer := &fakeRecognizer{err: tt.err}

			text, err := NewListenerWith(mic, recognizer, testOptions).Listen(context.Background(), time.Second, time.Second)
			assert.Empty(t, text)

			var voiceErr *Error
			require.ErrorAs(t, err, &voiceErr)
			assert.Equal(t, tt.kind, voiceErr.Kind)
			assert.Equal(t, tt.message, voiceErr.Message())
			assert.EqualValues(t, 1, mic.closed.Load())
		})
	}
}

func TestListenOpenFailure(t *testing.T) {
	mic := &fakeMicrophone{err: errors.New("no such device")}
	recognizer := &fakeRecognizer{}

	_, err := NewListenerWith(mic, recognizer, testOptions).Listen(context.Background(), time.Second, time.Second)

	var voiceErr *Error
	require.ErrorAs(t, err, &voiceErr)
	assert.Equal(t, KindDeviceError, voiceErr.Kind)
	assert.Equal(t, "Error: no such device", voiceErr.Message())
	assert.EqualValues(t, 0, recognizer.calls.Load())
}

func TestListenRecoversPanic(t *testing.T) {
	mic := &fakeMicrophone{panics: true}

	var err error
	assert.NotPanics(t, func() {
		_, err = NewListenerWith(mic, &fakeRecognizer{}, testOptions).Listen(context.Background(), time.Second, time.Second)
	})

	var voiceErr *Error
	require.ErrorAs(t, err, &voiceErr)
	assert.Equal(t, KindDeviceError, voiceErr.Kind)
}
