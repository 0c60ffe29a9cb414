// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	applog "vizmon/internal/log"
)

// PortAudioSource adapts a live capture device to the Source interface so
// the pipeline can be exercised on hosts without a running player. The
// stream callback deposits samples into a double buffer; Poll hands out the
// newest deposit without blocking the callback.
type PortAudioSource struct {
	stream     *portaudio.Stream
	sampleRate int
	channels   int

	mu      sync.Mutex
	pending []int16
	filled  int
	seq     uint64 // bumped by the callback on each deposit

	lastSeq uint64
	scratch []int16
	block   Block
}

var _ Source = (*PortAudioSource)(nil)

// Initialize sets up the PortAudio subsystem. Must be paired with Terminate.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate shuts the PortAudio subsystem down.
func Terminate() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// NewPortAudioSource opens an input stream on the given device (-1 for the
// system default) and starts capturing.
func NewPortAudioSource(deviceID, channels int, sampleRate float64, framesPerBuffer int) (*PortAudioSource, error) {
	device, err := inputDevice(deviceID)
	if err != nil {
		return nil, err
	}
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("unsupported channel count: %d", channels)
	}

	s := &PortAudioSource{
		sampleRate: int(sampleRate),
		channels:   channels,
		pending:    make([]int16, framesPerBuffer*channels),
		scratch:    make([]int16, framesPerBuffer*channels),
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: channels,
			Device:   device,
			Latency:  device.DefaultHighInputLatency,
		},
		FramesPerBuffer: framesPerBuffer,
		SampleRate:      sampleRate,
	}

	stream, err := portaudio.OpenStream(params, s.capture)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	s.stream = stream

	applog.Infof("source: live input %q (%d ch, %.0f Hz)", device.Name, channels, sampleRate)
	return s, nil
}

// capture is the PortAudio callback. It only copies into the pending buffer;
// no allocations, no blocking beyond the deposit mutex shared with Poll.
func (s *PortAudioSource) capture(in []int32) {
	s.mu.Lock()
	n := len(in)
	if n > len(s.pending) {
		n = len(s.pending)
	}
	for i := 0; i < n; i++ {
		s.pending[i] = int16(in[i] >> 16)
	}
	s.filled = n
	s.seq++
	s.mu.Unlock()
}

// Poll returns the newest captured block, or (nil, nil) when nothing new has
// arrived since the last poll.
func (s *PortAudioSource) Poll() (*Block, error) {
	s.mu.Lock()
	if s.seq == s.lastSeq || s.filled == 0 {
		s.mu.Unlock()
		return nil, nil
	}
	s.lastSeq = s.seq
	n := s.filled
	copy(s.scratch[:n], s.pending[:n])
	s.mu.Unlock()

	s.block = Block{
		SampleRate: s.sampleRate,
		Channels:   s.channels,
		Frames:     n / s.channels,
		Playing:    true, // live input is always "playing"
		Timestamp:  time.Now().Unix(),
		Samples:    s.scratch[:n],
	}
	return &s.block, nil
}

// Close stops and closes the stream.
func (s *PortAudioSource) Close() error {
	if s.stream == nil {
		return nil
	}
	if err := s.stream.Stop(); err != nil {
		return err
	}
	err := s.stream.Close()
	s.stream = nil
	return err
}

// inputDevice resolves a device ID to a PortAudio input device.
func inputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID < 0 {
		return portaudio.DefaultInputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	return devices[deviceID], nil
}

// ListDevices prints information about all available capture devices.
func ListDevices() error {
	devices, err := portaudio.Devices()
	if err != nil {
		return err
	}

	fmt.Printf("\nAvailable Audio Devices\n\n")
	for i, device := range devices {
		deviceType := ""
		switch {
		case device.MaxInputChannels > 0 && device.MaxOutputChannels > 0:
			deviceType = "Input/Output"
		case device.MaxInputChannels > 0:
			deviceType = "Input"
		case device.MaxOutputChannels > 0:
			deviceType = "Output"
		}

		fmt.Printf("[%d] %s (%s)\n", i, device.Name, deviceType)
		fmt.Printf("    Input channels: %d, Output channels: %d\n",
			device.MaxInputChannels, device.MaxOutputChannels)
		fmt.Printf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
		fmt.Println()
	}
	return nil
}
