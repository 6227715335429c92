package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Collector tracks one transfer's byte counters using lock-free atomics.
// The engine writes, presenters read; neither side blocks the other.
type Collector struct {
	bytesCopied atomic.Int64
	bytesTotal  atomic.Int64
	sparseBytes atomic.Int64
	startTime   time.Time

	// Ring buffer of per-second byte deltas, written only by the
	// presenter's Tick, not by the engine.
	mu         sync.Mutex
	throughput [ringSize]int64
	ringIdx    int
	ringCount  int
	lastBytes  int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// SetTotal records the transfer's total byte count, known once the source
// length is resolved.
func (c *Collector) SetTotal(n int64) { c.bytesTotal.Store(n) }

// AddCopied atomically advances the copied-byte counter.
func (c *Collector) AddCopied(n int64) { c.bytesCopied.Add(n) }

// AddSparse records bytes satisfied by a hole rather than a device read.
func (c *Collector) AddSparse(n int64) { c.sparseBytes.Add(n) }

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	BytesCopied int64
	BytesTotal  int64
	SparseBytes int64
	Elapsed     time.Duration
}

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		BytesCopied: c.bytesCopied.Load(),
		BytesTotal:  c.bytesTotal.Load(),
		SparseBytes: c.sparseBytes.Load(),
		Elapsed:     c.Elapsed(),
	}
}

// Percent returns completion as 0..100, or 0 when the total is unknown.
func (c *Collector) Percent() float64 {
	total := c.bytesTotal.Load()
	if total <= 0 {
		return 0
	}
	pct := float64(c.bytesCopied.Load()) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Tick snapshots the byte delta into the ring buffer. Called 1/sec by the
// presenter.
func (c *Collector) Tick() {
	current := c.bytesCopied.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.throughput[c.ringIdx] = current - c.lastBytes
	c.lastBytes = current
	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average bytes/sec over the last n seconds of samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := seconds
	if count > c.ringCount {
		count = c.ringCount
	}
	if count == 0 {
		return 0
	}
	var sum int64
	for i := 0; i < count; i++ {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += c.throughput[idx]
	}
	return float64(sum) / float64(count)
}

// ETA estimates remaining time based on rolling speed and remaining bytes.
func (c *Collector) ETA() time.Duration {
	speed := c.RollingSpeed(10)
	if speed <= 0 {
		return 0
	}
	remaining := c.bytesTotal.Load() - c.bytesCopied.Load()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining)/speed) * time.Second
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf("copied=%d total=%d sparse=%d elapsed=%s",
		s.BytesCopied, s.BytesTotal, s.SparseBytes, s.Elapsed.Round(time.Millisecond))
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
