package audio

import "sync"

// ClipLevel is the absolute sample value treated as clipping.
const ClipLevel = 32000

// LevelMeter keeps the most recent samples of a take for the waveform and
// tracks the loudest sample seen since the last Reset. One goroutine writes;
// any number may read.
type LevelMeter struct {
	mu      sync.RWMutex
	window  []int16
	next    int
	filled  int
	peak    int16
	clipped int
}

// NewLevelMeter creates a meter that remembers size samples.
func NewLevelMeter(size int) *LevelMeter {
	return &LevelMeter{window: make([]int16, max(size, 1))}
}

// Write records samples, dropping the oldest once the window is full.
func (b *LevelMeter) Write(samples []int16) {
	if len(samples) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, v := range samples {
		b.window[b.next] = v
		b.next = (b.next + 1) % len(b.window)
		b.filled = min(b.filled+1, len(b.window))

		amp := Amplitude(v)
		b.peak = max(b.peak, amp)
		if amp >= ClipLevel {
			b.clipped++
		}
	}
}

// Recent returns up to n of the newest samples, oldest first.
func (b *LevelMeter) Recent(n int) []int16 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n = min(n, b.filled)
	if n <= 0 {
		return nil
	}

	out := make([]int16, n)
	start := b.next - n
	if start < 0 {
		start += len(b.window)
	}

	for i := range out {
		out[i] = b.window[(start+i)%len(b.window)]
	}

	return out
}

// Peak returns the loudest absolute sample since Reset.
func (b *LevelMeter) Peak() int16 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.peak
}

// Clipped returns how many samples reached ClipLevel since Reset.
func (b *LevelMeter) Clipped() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.clipped
}

// Len returns how many samples the window holds.
func (b *LevelMeter) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.filled
}

// Reset forgets the window and the peak.
func (b *LevelMeter) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next, b.filled = 0, 0
	b.peak, b.clipped = 0, 0
}

// Amplitude returns |v|, saturating -32768 to 32767.
func Amplitude(v int16) int16 {
	switch {
	case v == -32768:
		return 32767
	case v < 0:
		return -v
	default:
		return v
	}
}
