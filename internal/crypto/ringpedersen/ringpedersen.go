// Package ringpedersen derives the (N, s, t) commitment parameters used as
// the base for Pi_prm, Pi_mod and Pi_fac, and the secret exponent lambda
// that proves they were built correctly.
package ringpedersen

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
)

var one = big.NewInt(1)

// Params is the public Ring-Pedersen setup (N, s, t) belonging to one party.
// gcd(s, N) == gcd(t, N) == 1 is an invariant of every Params produced by
// Generate; callers that receive one over the wire must re-check it (spec
// 4.4 predicate 3).
type Params struct {
	N, S, T *big.Int
}

// Setup bundles the public Params with the secret lambda needed to produce
// a Pi_prm proof of well-formedness.
type Setup struct {
	Params *Params
	Lambda *big.Int
	Phi    *big.Int // phi(N), needed by Pi_prm's prover (it computes exponents mod phi(N))
}

// Generate derives (N, s, t, lambda) from two safe primes p, q, following
// spec 4.2: N = p*q, r sampled from (Z/N)*, t = r^2 mod N, lambda sampled
// from [0, phi(N)), s = t^lambda mod N.
func Generate(random io.Reader, p, q *big.Int) (*Setup, error) {
	if p == nil || q == nil {
		return nil, errors.New("ringpedersen: p and q must not be nil")
	}

	n := new(big.Int).Mul(p, q)
	pMinus1 := new(big.Int).Sub(p, one)
	qMinus1 := new(big.Int).Sub(q, one)
	phi := new(big.Int).Mul(pMinus1, qMinus1)

	r, err := sampleUnit(random, n)
	if err != nil {
		return nil, err
	}

	t := new(big.Int).Exp(r, big.NewInt(2), n)

	lambda, err := rand.Int(random, phi)
	if err != nil {
		return nil, err
	}

	s := new(big.Int).Exp(t, lambda, n)

	return &Setup{
		Params: &Params{N: n, S: s, T: t},
		Lambda: lambda,
		Phi:    phi,
	}, nil
}

// sampleUnit draws a uniformly random element of (Z/N)*, retrying on the
// (negligible-probability) event of a non-unit draw.
func sampleUnit(random io.Reader, n *big.Int) (*big.Int, error) {
	for {
		r, err := rand.Int(random, n)
		if err != nil {
			return nil, err
		}
		if r.Sign() == 0 {
			continue
		}
		if new(big.Int).GCD(nil, nil, r, n).Cmp(one) == 0 {
			return r, nil
		}
	}
}

// Validate checks the data-independent well-formedness predicate from spec
// 4.4 #3 that every verifier must run before trusting a peer's Params:
// gcd(s, N) == gcd(t, N) == 1, and N is at least minBits bits long.
func (p *Params) Validate(minBits int) error {
	if p == nil || p.N == nil || p.S == nil || p.T == nil {
		return errors.New("ringpedersen: incomplete parameters")
	}
	if p.N.BitLen() < minBits {
		return errors.New("ringpedersen: modulus too small")
	}
	if new(big.Int).GCD(nil, nil, p.S, p.N).Cmp(one) != 0 {
		return errors.New("ringpedersen: gcd(s, N) != 1")
	}
	if new(big.Int).GCD(nil, nil, p.T, p.N).Cmp(one) != 0 {
		return errors.New("ringpedersen: gcd(t, N) != 1")
	}
	return nil
}
