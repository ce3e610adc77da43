package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// MinUsableBytes is the floor below which a recording is treated as
// containing no usable audio regardless of its declared duration.
const MinUsableBytes = 1024

// Clip is one completed recording: raw PCM plus the format fixed at capture
// time. It is read-only once assembled.
type Clip struct {
	PCM        []byte
	SampleRate int
	Channels   int
	BitDepth   int
}

// Duration derives the clip length from the PCM payload.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	bytesPerSecond := c.SampleRate * c.Channels * (c.BitDepth / 8)
	if bytesPerSecond <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.PCM)) / float64(bytesPerSecond) * float64(time.Second))
}

// Usable reports whether the clip holds enough audio to be worth processing.
func (c *Clip) Usable() bool {
	return len(c.PCM) >= MinUsableBytes
}

// Samples decodes the PCM payload into int16 samples.
func (c *Clip) Samples() []int16 {
	samples := make([]int16, len(c.PCM)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(c.PCM[i*2:]))
	}
	return samples
}

// EncodeWAV writes the clip as a header-correct WAV container.
func EncodeWAV(ws io.WriteSeeker, c *Clip) error {
	if len(c.PCM)%2 != 0 {
		return fmt.Errorf("pcm payload not aligned")
	}
	buffer := &gaudio.IntBuffer{Format: &gaudio.Format{NumChannels: c.Channels, SampleRate: c.SampleRate}}
	samples := make([]int, len(c.PCM)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int(int16(binary.LittleEndian.Uint16(c.PCM[i*2:])))
	}
	buffer.Data = samples

	enc := wav.NewEncoder(ws, c.SampleRate, c.BitDepth, c.Channels, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}
