package limitio

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

type Reader struct {
	ctx     context.Context
	source  io.Reader
	limiter *rate.Limiter
}

// NewReader returns a reader that implements io.Reader with rate limiting.
// Waiting for the rate limiter stops when the context is cancelled.
func NewReader(ctx context.Context, r io.Reader) *Reader {
	return &Reader{
		ctx:    ctx,
		source: r,
	}
}

// SetRateLimit sets rate limit (bytes/sec) to the reader. A limit of zero or less disables it.
func (s *Reader) SetRateLimit(bytesPerSec float64, burst int) {
	if bytesPerSec <= 0 {
		s.limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	s.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// Read bytes into p.
func (s *Reader) Read(p []byte) (int, error) {
	if err := s.ctx.Err(); err != nil {
		return 0, err
	}
	if s.limiter == nil {
		return s.source.Read(p)
	}
	// never read more than a burst at a time
	if len(p) > s.limiter.Burst() {
		p = p[:s.limiter.Burst()]
	}
	n, err := s.source.Read(p)
	if n > 0 {
		// then wait for the tokens to allow the time needed for reading it
		if waitErr := s.limiter.WaitN(s.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}
