// SPDX-License-Identifier: MIT
/*
Package monitor wires the visualization pipeline together: it polls a sample
source, runs the analysis engine, publishes frames through the latest-wins
slot and owns the consumer-side meter physics for one visualization kind.

A Session is immutable with respect to its kind. Changing kinds means
stopping the session and starting a fresh one, which guarantees physics
state is never half-reset.
*/
package monitor

import (
	"context"
	"sync"
	"time"

	"vizmon/internal/analysis"
	"vizmon/internal/capture"
	"vizmon/internal/config"
	applog "vizmon/internal/log"
	"vizmon/internal/physics"
	"vizmon/internal/player"
	"vizmon/internal/source"
	"vizmon/internal/transport"
	"vizmon/internal/viz"
)

// Session runs one visualization pipeline end to end.
type Session struct {
	kind     viz.Kind
	src      source.Source
	analyzer *analysis.Analyzer
	latest   *viz.Latest
	gate     player.Gate
	sink     transport.Transport
	recorder *capture.Recorder
	meters   *Meters

	pollPlaying time.Duration
	pollIdle    time.Duration

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	// analysis loop scratch, reused across polls
	left  []float64
	right []float64
}

// Options collects the session collaborators. Nil Gate defaults to always
// playing, nil Sink to the no-op transport.
type Options struct {
	Kind     viz.Kind
	Source   source.Source
	Bands    int
	Gate     player.Gate
	Sink     transport.Transport
	Recorder *capture.Recorder
	Viz      config.VizConfig
}

// NewSession builds a session; Run starts it.
func NewSession(opts Options) *Session {
	if opts.Gate == nil {
		opts.Gate = player.AlwaysPlaying{}
	}
	if opts.Sink == nil {
		opts.Sink = transport.Nop{}
	}

	mc := physics.Config{
		HoldDuration:   opts.Viz.Hold,
		DecayPerSecond: opts.Viz.DecayPerSecond,
	}
	bc := physics.BandConfig{
		Cap:              mc,
		BarFallPerSecond: opts.Viz.BarFallPerSec,
	}

	pollPlaying := opts.Viz.PollPlaying
	if pollPlaying <= 0 {
		pollPlaying = config.DefaultPollPlaying
	}
	pollIdle := opts.Viz.PollIdle
	if pollIdle <= 0 {
		pollIdle = config.DefaultPollIdle
	}

	return &Session{
		kind:        opts.Kind,
		src:         opts.Source,
		analyzer:    analysis.NewAnalyzer(opts.Bands),
		latest:      viz.NewLatest(),
		gate:        opts.Gate,
		sink:        opts.Sink,
		recorder:    opts.Recorder,
		meters:      NewMeters(opts.Kind, opts.Bands, mc, bc),
		pollPlaying: pollPlaying,
		pollIdle:    pollIdle,
		done:        make(chan struct{}),
	}
}

// Kind returns the session's visualization kind.
func (s *Session) Kind() viz.Kind { return s.kind }

// Meters returns the consumer-side physics state. Renderers call
// TryTakeLatestFrame, Apply the frame if any, then Tick, every render tick.
func (s *Session) Meters() *Meters { return s.meters }

// TryTakeLatestFrame returns the most recent unconsumed frame, or nil.
// Never blocks.
func (s *Session) TryTakeLatestFrame() *viz.Frame {
	return s.latest.TryTake()
}

// Run starts the producer loop in its own goroutine and returns immediately.
func (s *Session) Run(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
}

// Stop halts the producer. Any in-flight analysis finishes but its frame is
// discarded. Meter physics is reset so a follow-up session starts at rest.
func (s *Session) Stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
		s.meters.Reset()
	})
}

// loop is the producer: poll, analyze, publish, at a cadence that backs off
// while nothing is playing.
func (s *Session) loop(ctx context.Context) {
	defer close(s.done)

	applog.Infof("monitor: session started (kind=%s)", s.kind)
	timer := time.NewTimer(s.pollPlaying)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			applog.Infof("monitor: session stopped (kind=%s)", s.kind)
			return
		case <-timer.C:
		}

		interval := s.pollIdle
		if s.step(ctx) {
			interval = s.pollPlaying
		}
		timer.Reset(interval)
	}
}

// step performs one poll/analyze/publish cycle. It reports whether the
// pipeline is actively producing, which drives the poll cadence.
func (s *Session) step(ctx context.Context) bool {
	if s.kind == viz.NoVisualization {
		return false
	}

	block, err := s.src.Poll()
	if err != nil {
		// Never fatal: log and retry on the next tick.
		applog.Errorf("monitor: poll failed: %v", err)
		return false
	}
	if block == nil {
		return false
	}
	if !block.Playing || !s.gate.Playing() {
		return false
	}

	if s.recorder != nil {
		s.recorder.Write(block)
	}

	s.left, s.right = source.Deinterleave(block, s.left, s.right)
	win := analysis.Window{
		Left:       s.left,
		Right:      s.right,
		SampleRate: block.SampleRate,
		Timestamp:  block.Timestamp,
		Playing:    true,
	}

	frame := s.analyzer.Analyze(win, s.kind)

	// The session may have been stopped while we were analyzing; a stale
	// frame must not leak into a successor session's consumer.
	if ctx.Err() != nil {
		return false
	}

	s.latest.Publish(frame)
	_ = s.sink.Send(frame)
	return true
}

// Stats reports publisher counters for diagnostics.
func (s *Session) Stats() (published, dropped uint64) {
	return s.latest.Published(), s.latest.Dropped()
}
