// Package fac implements Pi_fac, the zero-knowledge proof that a Paillier
// modulus N = p*q has no small factor, bound to a specific recipient's
// Ring-Pedersen parameters (N_hat, s, t) the way spec 4.5's transport step
// requires: each recipient gets its own proof, committed against its own
// Ring-Pedersen setup, rather than one proof shared across all recipients.
//
// This follows the real protocol's Pedersen-commitment-and-open structure
// (field names P, Q, A, B, z1, z2, w1, w2 match other_examples'
// getamis-alice NewNoSmallFactorMessage and TheSDEs-mpc-lib-go's zkfac),
// including the R/T commitments and the Q^z1*t^v check that ties the
// committed p, q back to the actual modulus N = p*q: Q^p*t^(sigma-nu*p)
// collapses to s^N*t^sigma = R, so a prover who opens P, Q to values that
// don't multiply to N fails that check even though the individual P, Q
// openings (checks 1 and 2 below) would otherwise pass.
package fac

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
	"math/big"

	"github.com/cggmp21/keyrefresh/internal/crypto/ringpedersen"
)

var one = big.NewInt(1)

// ChallengeBits bounds the Fiat-Shamir challenge so the response size
// check in Verify stays meaningful: a prover who doesn't know a
// small-enough p, q can't produce a z1/z2 of the expected size for every
// possible challenge value.
const ChallengeBits = 128

// SecurityShift is the statistical slack added to the expected bit-length
// bound when sampling the proof's masking values (matches the usual
// l+epsilon convention from the range-proof literature).
const SecurityShift = 80

// Proof is a Pi_fac transcript bound to one recipient's Ring-Pedersen
// parameters.
type Proof struct {
	P, Q   *big.Int // Pedersen commitments to p, q
	A, B   *big.Int // sigma-protocol commitments for p, q
	R      *big.Int // s^n * t^sigma mod nHat, ties the proof to the actual modulus n
	T      *big.Int // Q^alpha * t^r mod nHat, the sigma-protocol commitment for the R check
	Z1, Z2 *big.Int // responses for p, q
	W1, W2 *big.Int // responses for the P, Q commitment randomness
	V      *big.Int // response for the R/T check
}

// Prove builds a Pi_fac proof that n = p*q has factors of at most
// expectedBits bits each, committed against the recipient's Ring-Pedersen
// params.
func Prove(random io.Reader, sid []byte, recipient *ringpedersen.Params, n, p, q *big.Int, expectedBits int) (*Proof, error) {
	if recipient == nil || recipient.N == nil || recipient.S == nil || recipient.T == nil {
		return nil, errors.New("fac: incomplete recipient parameters")
	}
	if n == nil || p == nil || q == nil {
		return nil, errors.New("fac: n, p, q must not be nil")
	}
	if expectedBits <= 0 {
		return nil, errors.New("fac: expectedBits must be positive")
	}

	nHat := recipient.N
	s, t := recipient.S, recipient.T

	maskBound := new(big.Int).Lsh(one, uint(expectedBits+SecurityShift))
	blindBound := new(big.Int).Mul(maskBound, nHat)
	// sigma masks nu*p (nu up to blindBound, p up to 2^expectedBits); n is
	// itself at least 2^expectedBits, so scaling by n gives ample statistical
	// cover for that product.
	sigmaBound := new(big.Int).Mul(blindBound, n)
	rBound := new(big.Int).Lsh(sigmaBound, uint(ChallengeBits+SecurityShift))

	mu, err := rand.Int(random, blindBound)
	if err != nil {
		return nil, err
	}
	nu, err := rand.Int(random, blindBound)
	if err != nil {
		return nil, err
	}
	sigma, err := rand.Int(random, sigmaBound)
	if err != nil {
		return nil, err
	}

	P := pedersenCommit(s, t, p, mu, nHat)
	Q := pedersenCommit(s, t, q, nu, nHat)
	R := pedersenCommit(s, t, n, sigma, nHat)

	alpha, err := rand.Int(random, maskBound)
	if err != nil {
		return nil, err
	}
	beta, err := rand.Int(random, maskBound)
	if err != nil {
		return nil, err
	}
	x, err := rand.Int(random, blindBound)
	if err != nil {
		return nil, err
	}
	y, err := rand.Int(random, blindBound)
	if err != nil {
		return nil, err
	}
	r, err := rand.Int(random, rBound)
	if err != nil {
		return nil, err
	}

	A := pedersenCommit(s, t, alpha, x, nHat)
	B := pedersenCommit(s, t, beta, y, nHat)
	T := new(big.Int).Exp(Q, alpha, nHat)
	T.Mul(T, new(big.Int).Exp(t, r, nHat))
	T.Mod(T, nHat)

	e := challenge(sid, n, recipient, P, Q, A, B, R, T)

	z1 := new(big.Int).Mul(e, p)
	z1.Add(z1, alpha)
	z2 := new(big.Int).Mul(e, q)
	z2.Add(z2, beta)
	w1 := new(big.Int).Mul(e, mu)
	w1.Add(w1, x)
	w2 := new(big.Int).Mul(e, nu)
	w2.Add(w2, y)

	// sigmaHat = sigma - nu*p (plain integer arithmetic, may be negative):
	// Q^p * t^sigmaHat collapses to s^n * t^sigma = R regardless of sign,
	// which is exactly what ties the P/Q openings to n = p*q in Verify.
	sigmaHat := new(big.Int).Mul(nu, p)
	sigmaHat.Sub(sigma, sigmaHat)
	v := new(big.Int).Mul(e, sigmaHat)
	v.Add(v, r)

	return &Proof{P: P, Q: Q, A: A, B: B, R: R, T: T, Z1: z1, Z2: z2, W1: w1, W2: w2, V: v}, nil
}

// Verify checks the proof against public n and the recipient's Ring-Pedersen
// params, and the same expectedBits bound used to build it.
func (pf *Proof) Verify(sid []byte, recipient *ringpedersen.Params, n *big.Int, expectedBits int) bool {
	if pf == nil || recipient == nil || recipient.N == nil || recipient.S == nil || recipient.T == nil {
		return false
	}
	if pf.P == nil || pf.Q == nil || pf.A == nil || pf.B == nil || pf.R == nil || pf.T == nil ||
		pf.Z1 == nil || pf.Z2 == nil || pf.W1 == nil || pf.W2 == nil || pf.V == nil {
		return false
	}

	nHat := recipient.N
	s, t := recipient.S, recipient.T

	e := challenge(sid, n, recipient, pf.P, pf.Q, pf.A, pf.B, pf.R, pf.T)

	// Check 1: s^z1 * t^w1 =? A * P^e (knowledge of p inside P)
	lhs1 := pedersenCommit(s, t, pf.Z1, pf.W1, nHat)
	rhs1 := new(big.Int).Exp(pf.P, e, nHat)
	rhs1.Mul(rhs1, pf.A)
	rhs1.Mod(rhs1, nHat)
	if lhs1.Cmp(rhs1) != 0 {
		return false
	}

	// Check 2: s^z2 * t^w2 =? B * Q^e (knowledge of q inside Q)
	lhs2 := pedersenCommit(s, t, pf.Z2, pf.W2, nHat)
	rhs2 := new(big.Int).Exp(pf.Q, e, nHat)
	rhs2.Mul(rhs2, pf.B)
	rhs2.Mod(rhs2, nHat)
	if lhs2.Cmp(rhs2) != 0 {
		return false
	}

	// Check 3: Q^z1 * t^v =? T * R^e (ties P's p and Q's q to n = p*q: an
	// honest prover's z1 = alpha + e*p and v = r + e*(sigma - nu*p) make
	// Q^z1*t^v collapse to T*(Q^p*t^(sigma-nu*p))^e = T*(s^n*t^sigma)^e =
	// T*R^e; a prover whose P, Q openings don't multiply to n cannot
	// satisfy this for a Fiat-Shamir-bound e).
	lhs3 := new(big.Int).Exp(pf.Q, pf.Z1, nHat)
	lhs3.Mul(lhs3, new(big.Int).Exp(t, pf.V, nHat))
	lhs3.Mod(lhs3, nHat)
	rhs3 := new(big.Int).Exp(pf.R, e, nHat)
	rhs3.Mul(rhs3, pf.T)
	rhs3.Mod(rhs3, nHat)
	if lhs3.Cmp(rhs3) != 0 {
		return false
	}

	// Loose sanity bound on the response size: a prover committed to a much
	// larger p or q would need z1/z2 far outside this range for a
	// ChallengeBits-sized e.
	maxZ := new(big.Int).Lsh(one, uint(expectedBits+SecurityShift+ChallengeBits+1))
	if pf.Z1.Sign() < 0 || pf.Z1.Cmp(maxZ) >= 0 {
		return false
	}
	if pf.Z2.Sign() < 0 || pf.Z2.Cmp(maxZ) >= 0 {
		return false
	}

	return true
}

func pedersenCommit(s, t, value, randomness, modulus *big.Int) *big.Int {
	c := new(big.Int).Exp(s, value, modulus)
	r := new(big.Int).Exp(t, randomness, modulus)
	c.Mul(c, r)
	return c.Mod(c, modulus)
}

// challenge derives a ChallengeBits-sized Fiat-Shamir value from the proof's
// public inputs and commitments.
func challenge(sid []byte, n *big.Int, recipient *ringpedersen.Params, P, Q, A, B, R, T *big.Int) *big.Int {
	h := sha256.New()
	h.Write(sid)
	h.Write(n.Bytes())
	h.Write(recipient.N.Bytes())
	h.Write(recipient.S.Bytes())
	h.Write(recipient.T.Bytes())
	h.Write(P.Bytes())
	h.Write(Q.Bytes())
	h.Write(A.Bytes())
	h.Write(B.Bytes())
	h.Write(R.Bytes())
	h.Write(T.Bytes())

	e := new(big.Int).SetBytes(h.Sum(nil))
	bound := new(big.Int).Lsh(one, ChallengeBits)
	return e.Mod(e, bound)
}
