// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vizmon/cmd"
	"vizmon/internal/capture"
	"vizmon/internal/config"
	applog "vizmon/internal/log"
	"vizmon/internal/monitor"
	"vizmon/internal/player"
	"vizmon/internal/source"
	"vizmon/internal/transport"
	"vizmon/internal/tui"
	"vizmon/internal/viz"
	"vizmon/pkg/build"
)

// main wires the pipeline in three phases: parse and configure, start the
// producer session, then hand the terminal to the renderer until quit.
func main() {
	opts, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}

	if opts.Command == "list" {
		if err := source.Initialize(); err != nil {
			applog.Fatalf("portaudio init failed: %v", err)
		}
		defer source.Terminate()
		if err := source.ListDevices(); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	// Help or version output already handled by the CLI.
	if opts.Config == nil {
		return
	}
	cfg := opts.Config

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}
	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
	}

	info := build.Current()
	applog.Infof("%s %s (%s)", info.Name, info.Version, info.Commit)

	kind, err := viz.ParseKind(cfg.Viz.Kind)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	src, cleanup, err := openSource(cfg)
	if err != nil {
		applog.Fatalf("%v", err)
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gate, sink, recorder := buildCollaborators(ctx, cfg)
	defer sink.Close()

	session := monitor.NewSession(monitor.Options{
		Kind:     kind,
		Source:   src,
		Bands:    cfg.ResolvedBands(),
		Gate:     gate,
		Sink:     sink,
		Recorder: recorder,
		Viz:      cfg.Viz,
	})
	session.Run(ctx)

	// Ctrl+C outside the TUI (e.g. SIGTERM from a service manager) still
	// shuts the producer down cleanly.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	if err := tui.Run(session, cfg.Viz.RenderTick); err != nil {
		applog.Errorf("display error: %v", err)
	}

	session.Stop()

	if recorder != nil {
		if err := recorder.Stop(); err != nil {
			applog.Errorf("stopping recording: %v", err)
		} else {
			fmt.Println("recording saved")
		}
	}

	published, dropped := session.Stats()
	applog.Infof("session done: %d frames published, %d superseded", published, dropped)
}

// openSource builds the configured sample source. The returned cleanup
// closes the source and tears down PortAudio when the live input was used.
func openSource(cfg *config.Config) (source.Source, func(), error) {
	if cfg.Input == "live" {
		if err := source.Initialize(); err != nil {
			return nil, nil, fmt.Errorf("portaudio init failed: %w", err)
		}
		src, err := source.NewPortAudioSource(
			cfg.Audio.InputDevice,
			cfg.Audio.InputChannels,
			cfg.Audio.SampleRate,
			cfg.Audio.FramesPerBuffer,
		)
		if err != nil {
			source.Terminate()
			return nil, nil, err
		}
		cleanup := func() {
			src.Close()
			source.Terminate()
		}
		return src, cleanup, nil
	}

	src := source.NewShmSource()
	return src, func() { src.Close() }, nil
}

// buildCollaborators assembles the optional session dependencies from config:
// the playback gate, the debug frame transports and the WAV tap.
func buildCollaborators(ctx context.Context, cfg *config.Config) (player.Gate, transport.Transport, *capture.Recorder) {
	var gate player.Gate = player.AlwaysPlaying{}
	if cfg.Player.Host != "" {
		poller := player.NewPoller(cfg.Player.Host, cfg.Player.Port, cfg.Player.PlayerID, cfg.Player.Interval)
		go poller.Run(ctx)
		gate = poller
	}

	var sinks transport.Multi
	if cfg.Transport.WSEnabled {
		sinks = append(sinks, transport.NewWebSocket(cfg.Transport.WSListen))
	}
	if cfg.Transport.UDPEnabled {
		udp, err := transport.NewUDP(cfg.Transport.UDPTarget)
		if err != nil {
			applog.Warnf("udp transport disabled: %v", err)
		} else {
			sinks = append(sinks, udp)
		}
	}
	var sink transport.Transport = transport.Nop{}
	if len(sinks) > 0 {
		sink = sinks
	}

	var recorder *capture.Recorder
	if cfg.Recording.Enabled {
		recorder = capture.NewRecorder(cfg.Recording.OutputDir)
		if err := recorder.Start(int(cfg.Audio.SampleRate), 2); err != nil {
			applog.Warnf("recording disabled: %v", err)
			recorder = nil
		}
	}

	return gate, sink, recorder
}
