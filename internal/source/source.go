// SPDX-License-Identifier: MIT
/*
Package source provides sample sources for the visualization pipeline.

The primary source maps the shared-memory segment exported by a
squeezelite-compatible player and extracts torn-read-tolerant snapshots of
the latest PCM without ever locking against the writer. A PortAudio source
implements the same interface for live line-in capture during development.
*/
package source

// Block is one batch of interleaved fixed-point samples plus transport
// metadata. Blocks are ephemeral: the sample buffer belongs to the source and
// is valid only until the next Poll, by which time it must have been
// de-interleaved and discarded.
type Block struct {
	SampleRate int
	Channels   int
	Frames     int
	Playing    bool
	Timestamp  int64
	Samples    []int16 // interleaved, len == Frames*Channels
}

// Source supplies sample blocks. Poll never blocks beyond bounded shared
// memory access and returns (nil, nil) when no new data is available; that
// includes the writer being absent entirely. Poll errors are never fatal to
// the pipeline: the caller logs and retries on the next tick.
type Source interface {
	Poll() (*Block, error)
	Close() error
}

const int16Scale = 1.0 / 32768.0

// Deinterleave splits a block into normalized per-channel buffers, reusing
// left/right when they have capacity. Mono input is mirrored to both outputs
// so downstream code can treat every window as two equal-length channels.
// An odd trailing sample in stereo input is dropped.
func Deinterleave(b *Block, left, right []float64) ([]float64, []float64) {
	if b.Channels <= 1 {
		n := len(b.Samples)
		left = grow(left, n)
		for i, s := range b.Samples {
			left[i] = float64(s) * int16Scale
		}
		return left, left
	}

	n := len(b.Samples) / 2
	left = grow(left, n)
	right = grow(right, n)
	for i := 0; i < n; i++ {
		left[i] = float64(b.Samples[2*i]) * int16Scale
		right[i] = float64(b.Samples[2*i+1]) * int16Scale
	}
	return left, right
}

func grow(buf []float64, n int) []float64 {
	if cap(buf) < n {
		return make([]float64, n)
	}
	return buf[:n]
}
