package governor

import (
	"context"

	"golang.org/x/time/rate"
)

// Governor is a token-bucket rate limiter consulted before every I/O
// chunk. The bucket holds one second of budget so short bursts are
// smoothed without breaching the per-second ceiling. A nil or
// unlimited Governor admits everything immediately.
type Governor struct {
	limiter *rate.Limiter
	burst   int
}

// New creates a Governor enforcing bytesPerSec. A rate of zero or less
// means unlimited.
func New(bytesPerSec int64) *Governor {
	if bytesPerSec <= 0 {
		return &Governor{}
	}
	burst := int(bytesPerSec)
	return &Governor{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
		burst:   burst,
	}
}

// Limited reports whether a rate is being enforced
func (g *Governor) Limited() bool {
	return g != nil && g.limiter != nil
}

// WaitN blocks until n bytes of budget are available or ctx is done.
// Requests larger than the bucket are taken in bucket-sized slices, so
// a block size above the one-second budget still flows, just slower.
func (g *Governor) WaitN(ctx context.Context, n int) error {
	if !g.Limited() || n <= 0 {
		return nil
	}
	for n > 0 {
		take := n
		if take > g.burst {
			take = g.burst
		}
		if err := g.limiter.WaitN(ctx, take); err != nil {
			return err
		}
		n -= take
	}
	return nil
}

// Rate returns the configured limit in bytes per second, 0 if unlimited
func (g *Governor) Rate() int64 {
	if !g.Limited() {
		return 0
	}
	return int64(g.limiter.Limit())
}
