package supervisor

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig shapes the delay between retries.
type BackoffConfig struct {
	// Initial is the delay before the first retry.
	Initial time.Duration

	// Max caps the delay before jitter is applied.
	Max time.Duration

	// Multiplier grows the delay per attempt. 1 keeps it flat.
	Multiplier float64

	// JitterPct is the width of the jitter window as a fraction of the
	// delay. 0.4 spreads delays over ±20%.
	JitterPct float64
}

// DefaultBackoffConfig returns the delays used by -retry-backoff and
// -retry-max when they are left at their defaults.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    250 * time.Millisecond,
		Max:        5 * time.Second,
		Multiplier: 1.7,
		JitterPct:  0.4,
	}
}

// Backoff hands out retry delays. It is not safe for concurrent use.
type Backoff struct {
	config   BackoffConfig
	attempts int
	rng      *rand.Rand
}

// NewBackoff returns a Backoff whose jitter is drawn from seed, so equal
// seeds yield equal delay sequences.
func NewBackoff(seed int64, cfg BackoffConfig) *Backoff {
	return &Backoff{
		config: cfg,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Next returns the delay for the current attempt and advances to the next.
func (b *Backoff) Next() time.Duration {
	d := b.Calculate()
	b.attempts++
	return d
}

// Calculate returns the delay for the current attempt without advancing.
func (b *Backoff) Calculate() time.Duration {
	base := b.config.base(max(b.attempts, 0))
	return b.jitter(base)
}

// base is Initial*Multiplier^attempt, capped at Max.
func (c BackoffConfig) base(attempt int) float64 {
	d := float64(c.Initial) * math.Pow(c.Multiplier, float64(attempt))
	return math.Min(d, float64(c.Max))
}

func (b *Backoff) jitter(d float64) time.Duration {
	if b.config.JitterPct > 0 {
		window := d * b.config.JitterPct
		d += window * (b.rng.Float64() - 0.5)
	}
	return time.Duration(math.Max(d, 0))
}

// Reset starts the sequence over after a successful run.
func (b *Backoff) Reset() {
	b.attempts = 0
}

// Attempts reports how many delays Next has handed out since the last Reset.
func (b *Backoff) Attempts() int {
	return b.attempts
}
