package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide negotiation/heartbeat counter.
var Stats = &stats{}

type stats struct {
	CandidatesRelayed atomic.Int64 // candidates (including end-of-candidates) handed to the peer agent
	CandidateFailures atomic.Int64 // relays the peer agent rejected
	HeartbeatsSent    atomic.Int64 // counter values written to the send channel
	HeartbeatsRecv    atomic.Int64 // counter values read from the receive channel
}

func (s *stats) AddCandidate()     { s.CandidatesRelayed.Add(1) }
func (s *stats) AddCandidateFail() { s.CandidateFailures.Add(1) }
func (s *stats) AddSent()          { s.HeartbeatsSent.Add(1) }
func (s *stats) AddRecv()          { s.HeartbeatsRecv.Add(1) }

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs counter deltas every
// interval while anything changed. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var prev snapshot
		for {
			select {
			case <-ticker.C:
				cur := takeSnapshot()
				if cur != prev {
					pterm.DefaultLogger.Info(formatStats(cur.sub(prev)))
				}
				prev = cur

			case <-ctx.Done():
				return
			}
		}
	}()
}

type snapshot struct {
	relayed, failed, sent, recv int64
}

func takeSnapshot() snapshot {
	return snapshot{
		relayed: Stats.CandidatesRelayed.Load(),
		failed:  Stats.CandidateFailures.Load(),
		sent:    Stats.HeartbeatsSent.Load(),
		recv:    Stats.HeartbeatsRecv.Load(),
	}
}

func (s snapshot) sub(o snapshot) snapshot {
	return snapshot{
		relayed: s.relayed - o.relayed,
		failed:  s.failed - o.failed,
		sent:    s.sent - o.sent,
		recv:    s.recv - o.recv,
	}
}

// formatStats returns a fixed-width line for the logger.
func formatStats(d snapshot) string {
	return fmt.Sprintf("ICE: %3d relayed %2d failed | Heartbeat: %3d↑ %3d↓",
		d.relayed,
		d.failed,
		d.sent,
		d.recv,
	)
}
