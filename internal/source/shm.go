// SPDX-License-Identifier: MIT
package source

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	applog "vizmon/internal/log"
)

// Layout of the squeezelite visualization segment (64-bit glibc):
//
//	pthread_rwlock_t rwlock;   // 56 bytes, writer-owned, never touched here
//	u32_t  buf_size;
//	u32_t  buf_index;
//	bool   running;            // 1 byte + 3 bytes padding
//	u32_t  rate;
//	time_t updated;            // 8 bytes, aligned
//	s16_t  buffer[16384];
//
// The layout is a fixed contract dictated by the writer; the header is
// validated before any sample data is trusted.
const (
	visBufSamples = 16384

	offBufSize  = 56
	offBufIndex = 60
	offRunning  = 64
	offRate     = 68
	offUpdated  = 72
	offBuffer   = 80

	segmentSize = offBuffer + visBufSamples*2

	minRate = 8000
	maxRate = 384000
)

const (
	shmDir    = "/dev/shm"
	shmPrefix = "squeezelite-"

	// How often to re-scan for a segment while none is mapped, and how long
	// without progress before remapping an existing one.
	rediscoverEvery = time.Second
	staleAfter      = 5 * time.Second
)

// ShmSource reads PCM snapshots from the player's shared-memory segment.
// All access is read-only; the writer's rwlock is never acquired, so a
// crashed writer can never block us. Torn reads are detected by re-checking
// the header after copying and are discarded, never surfaced.
type ShmSource struct {
	dir  string // segment directory, /dev/shm outside tests
	path string
	data []byte // live mapping, nil while the segment is absent

	lastSeen     int64  // updated stamp of the last accepted snapshot
	lastIndex    uint32 // buf_index of the last accepted snapshot
	lastProgress time.Time
	lastScan     time.Time

	tornReads   uint64
	badHeaders  uint64
	headerWarns uint64 // throttles malformed-metadata logging

	scratch []int16 // reusable linearized ring copy
	block   Block   // reusable block header
}

var _ Source = (*ShmSource)(nil)

// NewShmSource prepares a reader. The segment does not need to exist yet;
// Poll discovers and maps it when the player appears.
func NewShmSource() *ShmSource {
	return &ShmSource{
		dir:          shmDir,
		lastIndex:    ^uint32(0),
		lastProgress: time.Now(),
		scratch:      make([]int16, visBufSamples),
	}
}

// findSegment locates the newest squeezelite segment in dir.
func findSegment(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var best string
	var bestTime time.Time
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), shmPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best = filepath.Join(dir, e.Name())
			bestTime = info.ModTime()
		}
	}
	if best == "" {
		return "", os.ErrNotExist
	}
	return best, nil
}

// mapSegment opens and maps the segment read-only.
func (s *ShmSource) mapSegment(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() < segmentSize {
		return fmt.Errorf("segment %s too small: %d < %d", path, info.Size(), segmentSize)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, segmentSize, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmap %s: %w", path, err)
	}

	s.path = path
	s.data = data
	s.lastProgress = time.Now()
	applog.Infof("source: mapped %s (%d bytes)", path, segmentSize)
	return nil
}

// unmap drops the current mapping, if any.
func (s *ShmSource) unmap() {
	if s.data != nil {
		_ = unix.Munmap(s.data)
		s.data = nil
		applog.Infof("source: unmapped %s", s.path)
	}
}

// ensureMapped maps the segment when absent, rate-limited so an idle player
// does not cause a directory scan on every poll tick.
func (s *ShmSource) ensureMapped(now time.Time) bool {
	if s.data != nil {
		return true
	}
	if now.Sub(s.lastScan) < rediscoverEvery {
		return false
	}
	s.lastScan = now

	path, err := findSegment(s.dir)
	if err != nil {
		return false // player idle; not an error
	}
	if err := s.mapSegment(path); err != nil {
		applog.Warnf("source: %v", err)
		return false
	}
	return true
}

type shmHeader struct {
	size    uint32
	index   uint32
	running bool
	rate    uint32
	updated int64
}

// readHeader reads the metadata fields from the mapping. The copy may race
// with the writer; callers must treat it as a candidate to be re-validated.
func (s *ShmSource) readHeader() shmHeader {
	d := s.data
	return shmHeader{
		size:    binary.LittleEndian.Uint32(d[offBufSize:]),
		index:   binary.LittleEndian.Uint32(d[offBufIndex:]),
		running: d[offRunning] != 0,
		rate:    binary.LittleEndian.Uint32(d[offRate:]),
		updated: int64(binary.LittleEndian.Uint64(d[offUpdated:])),
	}
}

// headerLooksGood applies the sanity bounds from the segment contract.
func headerLooksGood(h shmHeader) bool {
	return h.size >= 1 && h.size <= visBufSamples &&
		h.index < h.size &&
		h.rate >= minRate && h.rate <= maxRate
}

// Poll returns the latest unseen snapshot, linearized oldest to newest, or
// (nil, nil) when the segment is absent, unchanged, torn or malformed.
// The returned block's sample buffer is valid until the next Poll.
func (s *ShmSource) Poll() (*Block, error) {
	now := time.Now()
	if !s.ensureMapped(now) {
		return nil, nil
	}

	h := s.readHeader()
	if !headerLooksGood(h) {
		s.badHeaders++
		if s.headerWarns < 3 || s.badHeaders%1000 == 0 {
			s.headerWarns++
			applog.Warnf("source: malformed segment header (size=%d idx=%d rate=%d), skipping poll",
				h.size, h.index, h.rate)
		}
		s.remapIfStale(now)
		return nil, nil
	}

	// New data if either the stamp or the write index advanced.
	if (h.updated == 0 || h.updated == s.lastSeen) && h.index == s.lastIndex {
		s.remapIfStale(now)
		return nil, nil
	}

	size := int(h.size)
	idx := int(h.index) % size
	s.copyRing(idx, size)

	// Double-check: if the writer advanced while we copied, the snapshot may
	// straddle an update. Discard it; the next poll gets a clean one.
	h2 := s.readHeader()
	if h2.updated != h.updated || h2.index != h.index {
		s.tornReads++
		return nil, nil
	}

	s.lastSeen = h.updated
	s.lastIndex = h.index
	s.lastProgress = now

	s.block = Block{
		SampleRate: int(h.rate),
		Channels:   2, // squeezelite always interleaves stereo
		Frames:     size / 2,
		Playing:    h.running,
		Timestamp:  h.updated,
		Samples:    s.scratch[:size],
	}
	return &s.block, nil
}

// copyRing linearizes the sample ring into scratch, oldest sample first.
func (s *ShmSource) copyRing(idx, size int) {
	d := s.data[offBuffer:]
	out := s.scratch[:size]
	n := 0
	for i := idx; i < size; i++ {
		out[n] = int16(binary.LittleEndian.Uint16(d[i*2:]))
		n++
	}
	for i := 0; i < idx; i++ {
		out[n] = int16(binary.LittleEndian.Uint16(d[i*2:]))
		n++
	}
}

// remapIfStale handles a restarted or vanished writer: when no snapshot has
// been accepted for a while, drop the mapping so the next poll rediscovers.
func (s *ShmSource) remapIfStale(now time.Time) {
	if now.Sub(s.lastProgress) < staleAfter {
		return
	}
	s.lastProgress = now
	if _, err := os.Stat(s.path); err != nil {
		applog.Infof("source: segment %s disappeared", s.path)
		s.unmap()
		return
	}
	// Segment still exists but is not progressing; remap in case the writer
	// recreated it in place.
	s.unmap()
}

// TornReads reports how many snapshots were discarded due to concurrent
// writer updates. Diagnostics only.
func (s *ShmSource) TornReads() uint64 { return s.tornReads }

// Close releases the mapping.
func (s *ShmSource) Close() error {
	s.unmap()
	return nil
}
