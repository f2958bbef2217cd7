package voice

import (
	"encoding/binary"
	"math"
	"time"
)

const (
	bytesPerSample = 2
	frameDuration  = 30 * time.Millisecond
	frameBytes     = sampleRate * bytesPerSample * int(frameDuration/time.Millisecond) / 1000
	prerollFrames  = 10
)

// VoiceActivityDetector splits a live s16le mono stream into a single phrase:
// it waits for the level to cross the threshold and stops once it stays below
// it for the silence window or the phrase reaches its limit.
type VoiceActivityDetector struct {
	threshold float64
	silence   time.Duration
	timeout   time.Duration
	limit     time.Duration

	heard    time.Duration
	spoken   time.Duration
	quiet    time.Duration
	speaking bool
	done     bool

	preroll [][]byte
	phrase  []byte
}

func NewVoiceActivityDetector(threshold float64, silence, timeout, limit time.Duration) *VoiceActivityDetector {
	return &VoiceActivityDetector{
		threshold: threshold,
		silence:   silence,
		timeout:   timeout,
		limit:     limit,
	}
}

// Feed consumes one chunk of audio. It returns errNoSpeech if nothing was said
// within the timeout and true once the phrase is complete.
func (v *VoiceActivityDetector) Feed(chunk []byte) (bool, error) {
	if v.done {
		return true, nil
	}

	length := pcmDuration(len(chunk))
	loud := level(chunk) >= v.threshold

	if !v.speaking {
		v.heard += length

		if !loud {
			v.keep(chunk)
			if v.heard >= v.timeout {
				return false, errNoSpeech
			}
			return false, nil
		}

		v.speaking = true
		for _, frame := range v.preroll {
			v.phrase = append(v.phrase, frame...)
		}
		v.preroll = nil
	}

	v.phrase = append(v.phrase, chunk...)
	v.spoken += length

	if loud {
		v.quiet = 0
	} else {
		v.quiet += length
	}

	v.done = v.quiet >= v.silence || v.spoken >= v.limit

	return v.done, nil
}

// Phrase returns the captured speech, or errNoSpeech if it never started.
func (v *VoiceActivityDetector) Phrase() ([]byte, error) {
	if !v.speaking {
		return nil, errNoSpeech
	}

	return v.phrase, nil
}

func (v *VoiceActivityDetector) keep(chunk []byte) {
	if len(v.preroll) == prerollFrames {
		v.preroll = v.preroll[1:]
	}
	v.preroll = append(v.preroll, append([]byte(nil), chunk...))
}

// level is the RMS amplitude of little-endian 16-bit samples, in [0, 1].
func level(chunk []byte) float64 {
	samples := len(chunk) / bytesPerSample
	if samples == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < samples; i++ {
		sample := float64(int16(binary.LittleEndian.Uint16(chunk[i*bytesPerSample:])))
		sum += sample * sample
	}

	return math.Sqrt(sum/float64(samples)) / 32768
}

func pcmDuration(n int) time.Duration {
	return time.Duration(n/bytesPerSample) * time.Second / sampleRate
}
