// SPDX-License-Identifier: MIT
// Package player polls a Lyrion/LMS-compatible server for playback state.
// The result is only a gate: the analysis loop idles while nothing plays.
// Failures always degrade to "not playing" and are never fatal.
package player

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	applog "vizmon/internal/log"
)

// Gate reports whether the player is currently playing.
type Gate interface {
	Playing() bool
}

// AlwaysPlaying is the gate used when no server is configured; the shared
// memory segment's own running flag still applies downstream.
type AlwaysPlaying struct{}

func (AlwaysPlaying) Playing() bool { return true }

// Poller asks the server's jsonrpc endpoint for the player mode at a fixed
// interval and caches the answer atomically for lock-free reads.
type Poller struct {
	url      string
	playerID string
	interval time.Duration
	client   *http.Client

	playing atomic.Bool
	failed  atomic.Bool // suppresses repeated failure logging
}

var _ Gate = (*Poller)(nil)

// NewPoller creates a poller for host:port. playerID selects which player's
// mode to query; empty means the first known player.
func NewPoller(host string, port int, playerID string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{
		url:      fmt.Sprintf("http://%s:%d/jsonrpc.js", host, port),
		playerID: playerID,
		interval: interval,
		client:   &http.Client{Timeout: 3 * time.Second},
	}
}

// Playing returns the most recent cached answer.
func (p *Poller) Playing() bool { return p.playing.Load() }

// Run polls until the context is cancelled. Call in its own goroutine.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

type rpcRequest struct {
	ID     int    `json:"id"`
	Method string `json:"method"`
	Params [2]any `json:"params"`
}

type rpcResponse struct {
	Result struct {
		Mode string `json:"_mode"`
	} `json:"result"`
}

// refresh performs one status query and updates the cached gate.
func (p *Poller) refresh(ctx context.Context) {
	req := rpcRequest{
		ID:     1,
		Method: "slim.request",
		Params: [2]any{p.playerID, []string{"mode", "?"}},
	}
	body, err := json.Marshal(req)
	if err != nil {
		p.fail(err)
		return
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		p.fail(err)
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.fail(err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.fail(fmt.Errorf("status %d", resp.StatusCode))
		return
	}

	var parsed rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		p.fail(err)
		return
	}

	if p.failed.Swap(false) {
		applog.Infof("player: server reachable again")
	}
	p.playing.Store(parsed.Result.Mode == "play")
}

// fail marks the gate closed and logs the first failure of a streak.
func (p *Poller) fail(err error) {
	p.playing.Store(false)
	if !p.failed.Swap(true) {
		applog.Warnf("player: status poll failed: %v (assuming stopped)", err)
	}
}
