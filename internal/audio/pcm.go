package audio

import (
	"encoding/binary"
	"time"
)

// PCM is a buffer of S16LE samples with its format.
type PCM struct {
	Data       []byte
	SampleRate int
	Channels   int
}

// Duration returns the play time of the buffer.
func (p PCM) Duration() time.Duration {
	return PCMDuration(len(p.Data), p.SampleRate, p.Channels)
}

// PCMDuration returns the play time of n bytes of S16LE audio.
func PCMDuration(n, sampleRate, channels int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}

	frames := n / bytesPerFrame(channels)

	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

// PCMBytes returns how many bytes of S16LE audio cover d.
func PCMBytes(d time.Duration, sampleRate, channels int) int {
	frames := int(d * time.Duration(sampleRate) / time.Second)

	return frames * bytesPerFrame(channels)
}

// BytesToInt16 converts S16LE (signed 16-bit little-endian) bytes to int16 samples.
func BytesToInt16(data []byte) []int16 {
	numSamples := len(data) / 2
	if numSamples == 0 {
		return nil
	}

	samples := make([]int16, numSamples)

	for i := range numSamples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:])) //nolint:gosec // reinterpreting bits
	}

	return samples
}

// Int16ToBytes converts samples to S16LE bytes.
func Int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)

	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s)) //nolint:gosec // reinterpreting bits
	}

	return out
}

// monoToStereo duplicates each sample into a left/right pair.
func monoToStereo(mono []int16) []int16 {
	stereo := make([]int16, len(mono)*2)

	for i, s := range mono {
		stereo[i*2] = s
		stereo[i*2+1] = s
	}

	return stereo
}
