// SPDX-License-Identifier: MIT
// Package transport streams published visualization frames to debug
// consumers. Transports are best-effort: a slow or absent consumer never
// blocks the analysis loop.
package transport

import "vizmon/internal/viz"

// Transport sends frames to an external consumer. Implementations must be
// thread-safe and must not block the caller.
type Transport interface {
	Send(frame *viz.Frame) error
	Close() error
}

// Nop discards every frame. Used when no transport is configured.
type Nop struct{}

func (Nop) Send(*viz.Frame) error { return nil }
func (Nop) Close() error          { return nil }

var _ Transport = Nop{}

// Multi fans a frame out to several transports, ignoring individual errors.
type Multi []Transport

func (m Multi) Send(frame *viz.Frame) error {
	for _, t := range m {
		_ = t.Send(frame)
	}
	return nil
}

func (m Multi) Close() error {
	var first error
	for _, t := range m {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ Transport = Multi{}
