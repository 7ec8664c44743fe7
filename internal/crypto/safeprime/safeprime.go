// Package safeprime generates safe primes (p = 2q+1, both prime) for the
// Paillier modulus and Ring-Pedersen setup used by the key-refresh protocol.
// Safe-prime search dominates the protocol's wall time, so callers are
// expected to dispatch Generate to a worker goroutine rather than call it
// from a cooperative task (see internal/protocol/refresh's scheduling model).
package safeprime

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
)

// Pair holds two independently generated safe primes of equal bit length,
// ready to form a Paillier modulus N = p*q.
type Pair struct {
	P, Q *big.Int
}

// Generate searches for a safe prime of the requested bit length: a prime p
// such that (p-1)/2 is also prime. random should be a cryptographically
// secure source independent of any caller-owned RNG, since the search may
// run on a worker that outlives its spawner (spec 9's "Pregenerated primes").
func Generate(random io.Reader, bits int) (*big.Int, error) {
	if bits < 8 {
		return nil, errors.New("safeprime: bits must be at least 8")
	}

	for {
		q, err := rand.Prime(random, bits-1)
		if err != nil {
			return nil, err
		}

		p := new(big.Int).Lsh(q, 1)
		p.Add(p, big.NewInt(1))

		if p.BitLen() != bits {
			continue
		}

		if p.ProbablyPrime(20) {
			return p, nil
		}
	}
}

// GeneratePair generates two distinct safe primes of the requested bit
// length, suitable as the two factors of a Paillier-Blum modulus.
func GeneratePair(random io.Reader, bits int) (*Pair, error) {
	p, err := Generate(random, bits)
	if err != nil {
		return nil, err
	}

	for {
		q, err := Generate(random, bits)
		if err != nil {
			return nil, err
		}
		if p.Cmp(q) != 0 {
			return &Pair{P: p, Q: q}, nil
		}
	}
}

// PregeneratedPrimes is a convenience wrapper that amortizes the cost of safe
// prime generation across sessions (spec 6, 9): a caller can pregenerate
// primes ahead of a session and pass them to refresh.NewStateMachine through
// the refresh.WithPregeneratedPrimes option instead of paying the generation
// cost inline.
type PregeneratedPrimes struct {
	P, Q *big.Int
}

// GeneratePregeneratedPrimes produces a fresh PregeneratedPrimes value, each
// factor 4*securityBits bits long as required by spec 3's KeyShare.p/q
// invariant. Named distinctly from Generate/GeneratePair to avoid confusing
// a single safe prime with a ready-to-use factor pair.
func GeneratePregeneratedPrimes(random io.Reader, securityBits int) (*PregeneratedPrimes, error) {
	pair, err := GeneratePair(random, 4*securityBits)
	if err != nil {
		return nil, err
	}
	return &PregeneratedPrimes{P: pair.P, Q: pair.Q}, nil
}
