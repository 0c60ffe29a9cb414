// SPDX-License-Identifier: MIT
// Package capture taps polled sample blocks into a WAV file so meter tuning
// can be replayed offline against the exact PCM the pipeline saw.
package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "vizmon/internal/log"
	"vizmon/internal/source"
)

const recorderBitDepth = 16

// Recorder writes sample blocks to a WAV file. Start/Stop are safe to call
// from a different goroutine than Write; the recording flag is atomic so
// Write costs one load when idle.
type Recorder struct {
	outputDir string

	recording atomic.Bool
	mu        sync.Mutex // guards encoder/file/buf across Start/Stop/Write
	file      *os.File
	encoder   *wav.Encoder
	buf       *audio.IntBuffer
	path      string
}

// NewRecorder creates a recorder that writes into outputDir.
func NewRecorder(outputDir string) *Recorder {
	if outputDir == "" {
		outputDir = "."
	}
	return &Recorder{outputDir: outputDir}
}

// Start opens a timestamped WAV file for the given stream parameters.
func (r *Recorder) Start(sampleRate, channels int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording.Load() {
		return fmt.Errorf("already recording")
	}

	name := "vizmon-" + time.Now().Format("02-01-2006-150405") + ".wav"
	path := filepath.Join(r.outputDir, name)
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	r.file = file
	r.path = path
	r.encoder = wav.NewEncoder(file, sampleRate, recorderBitDepth, channels, 1)
	r.buf = &audio.IntBuffer{
		Format: &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:   make([]int, 0, 16384),
	}
	r.recording.Store(true)

	applog.Infof("capture: recording to %s (%d Hz, %d ch)", path, sampleRate, channels)
	return nil
}

// Write appends one block. A no-op while not recording.
func (r *Recorder) Write(b *source.Block) {
	if !r.recording.Load() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.encoder == nil {
		return
	}

	if cap(r.buf.Data) < len(b.Samples) {
		r.buf.Data = make([]int, len(b.Samples))
	}
	r.buf.Data = r.buf.Data[:len(b.Samples)]
	for i, s := range b.Samples {
		r.buf.Data[i] = int(s)
	}

	if err := r.encoder.Write(r.buf); err != nil {
		applog.Errorf("capture: write failed: %v", err)
	}
}

// Stop finalizes and closes the file. Safe to call when not recording.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording.Swap(false) {
		return nil
	}

	var firstErr error
	if r.encoder != nil {
		if err := r.encoder.Close(); err != nil {
			firstErr = err
		}
		r.encoder = nil
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.file = nil
	}
	if firstErr == nil {
		applog.Infof("capture: recording saved to %s", r.path)
	}
	return firstErr
}

// Recording reports whether a file is currently open.
func (r *Recorder) Recording() bool { return r.recording.Load() }
