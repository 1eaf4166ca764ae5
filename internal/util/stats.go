package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Stats is the process-wide session traffic counter. The transport feeds it
// on every frame written or read; the reporter summarizes it periodically.
var Stats = &stats{}

type stats struct {
	MsgsSent  atomic.Int64 // messages written to the peer since process start
	MsgsRecv  atomic.Int64 // messages decoded from the peer since process start
	BytesSent atomic.Int64 // frame bytes written to the peer
	BytesRecv atomic.Int64 // frame bytes read from the peer
}

func (s *stats) AddSent(n int) { s.MsgsSent.Add(1); s.BytesSent.Add(int64(n)) }
func (s *stats) AddRecv(n int) { s.MsgsRecv.Add(1); s.BytesRecv.Add(int64(n)) }

// StartStatsReporter launches a goroutine that logs session traffic every
// 30 seconds while there is activity. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	log := Logger("stats")

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		var prevSent, prevRecv int64
		for {
			select {
			case <-ticker.C:
				sent := Stats.BytesSent.Load()
				recv := Stats.BytesRecv.Load()

				if sent != prevSent || recv != prevRecv {
					log.Info().
						Str("sent", formatBytes(float64(sent))).
						Str("recv", formatBytes(float64(recv))).
						Int64("msgs_sent", Stats.MsgsSent.Load()).
						Int64("msgs_recv", Stats.MsgsRecv.Load()).
						Msg("session traffic")
				}

				prevSent = sent
				prevRecv = recv

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB"}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b float64) string {
	unitIdx := 0
	for b > 999 && unitIdx < len(byteUnits)-1 {
		b /= 1024
		unitIdx++
	}
	return fmt.Sprintf("%.1f %s", b, byteUnits[unitIdx])
}
