// Package voice synthesizes spoken alerts through the Gemini TTS models and
// decodes the raw PCM payload they return into a playable buffer.
package voice

import (
	"bytes"
	"encoding/binary"
)

// SampleRate is the fixed output rate of the Gemini TTS models: 24kHz mono.
const SampleRate = 24000

// Buffer holds one decoded alert clip. Samples are normalized float32 in
// [-1, 1); the original PCM bytes are retained for container encoding.
type Buffer struct {
	SampleRate int
	Samples    []float32

	pcm []byte
}

// Duration returns the clip length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate == 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// DecodePCM converts raw 16-bit little-endian mono PCM at 24kHz into a
// Buffer. The TTS response carries no container header, so a generic audio
// decoder cannot be used: each int16 sample is normalized by division by
// 32768. An odd trailing byte is dropped. Empty input yields nil.
func DecodePCM(data []byte) *Buffer {
	frames := len(data) / 2
	if frames == 0 {
		return nil
	}

	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		s := int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
		samples[i] = float32(s) / 32768.0
	}

	return &Buffer{
		SampleRate: SampleRate,
		Samples:    samples,
		pcm:        data[:frames*2],
	}
}

// EncodeWAV wraps the buffer's PCM samples in a minimal RIFF/WAVE container
// so a browser audio element can play the clip directly.
func (b *Buffer) EncodeWAV() []byte {
	var out bytes.Buffer
	dataLen := uint32(len(b.pcm))

	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(36+dataLen))
	out.WriteString("WAVE")

	out.WriteString("fmt ")
	binary.Write(&out, binary.LittleEndian, uint32(16))
	binary.Write(&out, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&out, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&out, binary.LittleEndian, uint32(b.SampleRate))
	binary.Write(&out, binary.LittleEndian, uint32(b.SampleRate*2)) // byte rate
	binary.Write(&out, binary.LittleEndian, uint16(2))              // block align
	binary.Write(&out, binary.LittleEndian, uint16(16))             // bits per sample

	out.WriteString("data")
	binary.Write(&out, binary.LittleEndian, dataLen)
	out.Write(b.pcm)

	return out.Bytes()
}
