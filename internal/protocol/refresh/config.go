package refresh

import (
	"io"
	"math/big"

	"github.com/cggmp21/keyrefresh/internal/crypto/safeprime"
)

// DefaultSecurityBits is the protocol's S parameter (spec 3): safe primes
// are 4*S bits each and rho is S/8 bytes. 256 matches the security level
// the rest of the pack's ZK proofs (zk/prm, zk/mod) are tuned for.
const DefaultSecurityBits = 256

// Tracer lets a caller observe round transitions without this package
// importing a logging framework (spec 6's optional tracer parameter), the
// same "no logging dependency in library code" posture the teacher's own
// protocol packages hold to.
type Tracer interface {
	Trace(event string, fields ...any)
}

// Config configures a single refresh session. Built by folding Options over
// the defaults NewStateMachine applies.
type Config struct {
	SecurityBits int
	Primes       *safeprime.PregeneratedPrimes
	Tracer       Tracer
	Rand         io.Reader
}

// Option customizes a Config passed to NewStateMachine.
type Option func(*Config)

// WithSecurityBits overrides the default security parameter S.
func WithSecurityBits(bits int) Option {
	return func(c *Config) { c.SecurityBits = bits }
}

// WithPregeneratedPrimes supplies safe primes generated ahead of time
// (spec 6, 9), skipping the in-session prime search entirely.
func WithPregeneratedPrimes(p *safeprime.PregeneratedPrimes) Option {
	return func(c *Config) { c.Primes = p }
}

// WithTracer attaches an observer for round transitions.
func WithTracer(t Tracer) Option {
	return func(c *Config) { c.Tracer = t }
}

// WithRand overrides the randomness source (default crypto/rand.Reader).
func WithRand(r io.Reader) Option {
	return func(c *Config) { c.Rand = r }
}

// primes returns this session's two safe-prime factors: the pregenerated
// pair if the caller supplied one (spec 9), or a freshly generated pair of
// 4*SecurityBits-bit safe primes otherwise.
func (c *Config) primes(random io.Reader) (p, q *big.Int, err error) {
	if c.Primes != nil {
		return c.Primes.P, c.Primes.Q, nil
	}
	pair, err := safeprime.GeneratePair(random, 4*c.SecurityBits)
	if err != nil {
		return nil, nil, err
	}
	return pair.P, pair.Q, nil
}
