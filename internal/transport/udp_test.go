// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"vizmon/internal/viz"
)

func udpPair(t *testing.T) (*UDP, *net.UDPConn) {
	t.Helper()
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	u, err := NewUDP(listener.LocalAddr().String())
	if err != nil {
		listener.Close()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		u.Close()
		listener.Close()
	})
	return u, listener
}

func receivePacket(t *testing.T, listener *net.UDPConn) []byte {
	t.Helper()
	buf := make([]byte, 1500)
	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatal(err)
	}
	return buf[:n]
}

func TestUDPSendPeakPair(t *testing.T) {
	u, listener := udpPair(t)

	frame := &viz.Frame{
		Playing:    true,
		SampleRate: 44100,
		Kind:       viz.PeakStereo,
		PeakPair:   &viz.PeakPairPayload{LeftLevel: 14, RightLevel: 9, LeftHold: 14, RightHold: 9},
	}
	if err := u.Send(frame); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	pkt := receivePacket(t, listener)
	if len(pkt) != 4+4+1+1+4+4 {
		t.Fatalf("packet length = %d, expected 18", len(pkt))
	}
	if magic := binary.BigEndian.Uint32(pkt[0:]); magic != udpMagic {
		t.Errorf("magic = %#x, expected %#x", magic, udpMagic)
	}
	if seq := binary.BigEndian.Uint32(pkt[4:]); seq != 1 {
		t.Errorf("seq = %d, expected 1", seq)
	}
	if pkt[8] != byte(viz.PeakStereo) {
		t.Errorf("kind = %d, expected %d", pkt[8], viz.PeakStereo)
	}
	if pkt[9] != 1 {
		t.Errorf("playing = %d, expected 1", pkt[9])
	}
	if rate := binary.BigEndian.Uint32(pkt[10:]); rate != 44100 {
		t.Errorf("sample rate = %d, expected 44100", rate)
	}
	if pkt[14] != 14 || pkt[15] != 9 || pkt[16] != 14 || pkt[17] != 9 {
		t.Errorf("payload = %v, expected levels and holds", pkt[14:])
	}
}

func TestUDPSeqIncrements(t *testing.T) {
	u, listener := udpPair(t)

	frame := &viz.Frame{Kind: viz.VuMono, Vu: &viz.VuPayload{DB: -12}}
	for i := 0; i < 3; i++ {
		if err := u.Send(frame); err != nil {
			t.Fatal(err)
		}
	}

	for want := uint32(1); want <= 3; want++ {
		pkt := receivePacket(t, listener)
		if seq := binary.BigEndian.Uint32(pkt[4:]); seq != want {
			t.Errorf("seq = %d, expected %d", seq, want)
		}
	}
}

func TestUDPSendHistPair(t *testing.T) {
	u, listener := udpPair(t)

	frame := &viz.Frame{
		Kind: viz.HistStereo,
		HistPair: &viz.HistPairPayload{
			Left:  []uint8{1, 2, 3},
			Right: []uint8{4, 5, 6},
		},
	}
	if err := u.Send(frame); err != nil {
		t.Fatal(err)
	}

	pkt := receivePacket(t, listener)
	payload := pkt[14:]
	if payload[0] != 3 {
		t.Fatalf("band count = %d, expected 3", payload[0])
	}
	want := []byte{1, 2, 3, 4, 5, 6}
	for i, b := range want {
		if payload[1+i] != b {
			t.Errorf("band byte %d = %d, expected %d", i, payload[1+i], b)
		}
	}
}

func TestUDPSendNeverFailsWithoutListener(t *testing.T) {
	u, listener := udpPair(t)
	listener.Close()

	frame := &viz.Frame{Kind: viz.VuMono, Vu: &viz.VuPayload{DB: -3}}
	for i := 0; i < 5; i++ {
		if err := u.Send(frame); err != nil {
			t.Fatalf("Send surfaced an error: %v", err)
		}
	}
}

func TestMultiFansOut(t *testing.T) {
	a := &countingTransport{}
	b := &countingTransport{}
	m := Multi{a, b}

	frame := &viz.Frame{Kind: viz.VuMono, Vu: &viz.VuPayload{DB: -3}}
	if err := m.Send(frame); err != nil {
		t.Fatal(err)
	}
	if a.sent != 1 || b.sent != 1 {
		t.Errorf("sent = (%d, %d), expected both transports reached", a.sent, b.sent)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if !a.closed || !b.closed {
		t.Error("Close did not reach every transport")
	}
}

type countingTransport struct {
	sent   int
	closed bool
}

func (c *countingTransport) Send(*viz.Frame) error { c.sent++; return nil }
func (c *countingTransport) Close() error          { c.closed = true; return nil }
