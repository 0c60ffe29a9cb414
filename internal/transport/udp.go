// SPDX-License-Identifier: MIT
package transport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"vizmon/internal/viz"
)

// udpMagic identifies vizmon frame packets.
const udpMagic uint32 = 0x56495A31 // "VIZ1"

// UDP packs frames into a small binary format and fires them at a fixed
// target. Send never blocks: UDP writes are connectionless and failures are
// counted, not surfaced, so a missing listener costs nothing.
type UDP struct {
	conn *net.UDPConn

	mu     sync.Mutex
	packet bytes.Buffer // reusable packet scratch
	seq    uint32

	sendErrors atomic.Uint64
}

var _ Transport = (*UDP)(nil)

// NewUDP resolves the target address and opens the socket.
func NewUDP(target string) (*UDP, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("resolve udp target %q: %w", target, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp %q: %w", target, err)
	}
	return &UDP{conn: conn}, nil
}

// Send packs and transmits one frame.
//
// Packet layout (big-endian): magic u32, seq u32, kind u8, playing u8,
// sample_rate u32, payload. Scalar payloads are two f32 (VU) or four u8
// (peak); histograms are band count u8 followed by the band bytes, left
// channel then right.
func (u *UDP) Send(frame *viz.Frame) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.seq++
	p := &u.packet
	p.Reset()

	binary.Write(p, binary.BigEndian, udpMagic)
	binary.Write(p, binary.BigEndian, u.seq)
	p.WriteByte(byte(frame.Kind))
	if frame.Playing {
		p.WriteByte(1)
	} else {
		p.WriteByte(0)
	}
	binary.Write(p, binary.BigEndian, uint32(frame.SampleRate))

	switch {
	case frame.Vu != nil:
		binary.Write(p, binary.BigEndian, float32(frame.Vu.DB))
		binary.Write(p, binary.BigEndian, float32(frame.Vu.DB))
	case frame.VuPair != nil:
		binary.Write(p, binary.BigEndian, float32(frame.VuPair.LeftDB))
		binary.Write(p, binary.BigEndian, float32(frame.VuPair.RightDB))
	case frame.Peak != nil:
		p.Write([]byte{frame.Peak.Level, frame.Peak.Level, frame.Peak.Hold, frame.Peak.Hold})
	case frame.PeakPair != nil:
		p.Write([]byte{
			frame.PeakPair.LeftLevel, frame.PeakPair.RightLevel,
			frame.PeakPair.LeftHold, frame.PeakPair.RightHold,
		})
	case frame.Hist != nil:
		p.WriteByte(byte(len(frame.Hist.Bands)))
		p.Write(frame.Hist.Bands)
		p.Write(frame.Hist.Bands)
	case frame.HistPair != nil:
		p.WriteByte(byte(len(frame.HistPair.Left)))
		p.Write(frame.HistPair.Left)
		p.Write(frame.HistPair.Right)
	case frame.Combo != nil:
		binary.Write(p, binary.BigEndian, float32(frame.Combo.LeftDB))
		binary.Write(p, binary.BigEndian, float32(frame.Combo.RightDB))
		p.Write([]byte{frame.Combo.PeakLevel, frame.Combo.PeakHold})
	}

	if _, err := u.conn.Write(p.Bytes()); err != nil {
		u.sendErrors.Add(1)
	}
	return nil
}

// SendErrors reports how many packets failed to transmit. Diagnostics only.
func (u *UDP) SendErrors() uint64 { return u.sendErrors.Load() }

// Close releases the socket.
func (u *UDP) Close() error {
	return u.conn.Close()
}
