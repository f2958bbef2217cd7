package voice

import (
	"bytes"
	"encoding/binary"
)

// wrapWAV prefixes raw s16le mono PCM with a canonical 44-byte RIFF header.
func wrapWAV(pcm []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))

	header := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		uint32(36 + len(pcm)),
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16),
		uint16(1), // PCM
		uint16(1), // mono
		uint32(sampleRate),
		uint32(sampleRate * bytesPerSample),
		uint16(bytesPerSample),
		uint16(8 * bytesPerSample),
		[4]byte{'d', 'a', 't', 'a'},
		uint32(len(pcm)),
	}
	for _, field := range header {
		_ = binary.Write(&buf, binary.LittleEndian, field)
	}

	buf.Write(pcm)

	return buf.Bytes()
}
