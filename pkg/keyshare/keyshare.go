// Package keyshare holds the data model the refresh protocol consumes and
// produces (spec 3): an IncompleteKeyShare coming in, a full KeyShare going
// out. It also adapts the teacher's Feldman-VSS keygen output into the
// purely additive n-of-n model the refresh protocol operates on.
package keyshare

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/cggmp21/keyrefresh/internal/crypto/curves"
	"github.com/cggmp21/keyrefresh/internal/protocol/keygen"
	"github.com/cggmp21/keyrefresh/pkg/tss"
)

var one = big.NewInt(1)

// IncompleteKeyShare is the refresh protocol's input (spec 3): this party's
// additive share of an existing ECDSA secret key, plus every party's public
// commitment to its own share.
type IncompleteKeyShare struct {
	Index int // 0 <= Index < N
	N     int // number of parties, N <= 65535

	SharedPublicKeyX, SharedPublicKeyY *big.Int

	RID []byte // randomness identifier, opaque fixed-length byte string

	// PublicSharesX/Y[k] is party k's commitment to its additive share;
	// G*X == PublicSharesX/Y[Index] and the sum over k equals the shared
	// public key.
	PublicSharesX, PublicSharesY []*big.Int

	X *big.Int // this party's additive scalar share
}

// Validate checks the invariants spec 3 attaches to IncompleteKeyShare:
// G*x = public_shares[i] and sum(public_shares) = shared_public_key.
func (s *IncompleteKeyShare) Validate(curve curves.Curve) error {
	if s == nil {
		return errors.New("keyshare: nil incomplete share")
	}
	if s.N <= 0 || s.N > 65535 {
		return fmt.Errorf("keyshare: n=%d out of range", s.N)
	}
	if s.Index < 0 || s.Index >= s.N {
		return fmt.Errorf("keyshare: index %d out of range for n=%d", s.Index, s.N)
	}
	if len(s.PublicSharesX) != s.N || len(s.PublicSharesY) != s.N {
		return errors.New("keyshare: public_shares length mismatch")
	}
	if s.X == nil || s.SharedPublicKeyX == nil || s.SharedPublicKeyY == nil {
		return errors.New("keyshare: incomplete fields")
	}

	gx, gy := curve.ScalarBaseMult(s.X)
	if gx.Cmp(s.PublicSharesX[s.Index]) != 0 || gy.Cmp(s.PublicSharesY[s.Index]) != 0 {
		return errors.New("keyshare: G*x != public_shares[i]")
	}

	var sumX, sumY *big.Int
	for k := 0; k < s.N; k++ {
		if sumX == nil {
			sumX, sumY = s.PublicSharesX[k], s.PublicSharesY[k]
			continue
		}
		sumX, sumY = curve.Add(sumX, sumY, s.PublicSharesX[k], s.PublicSharesY[k])
	}
	if sumX.Cmp(s.SharedPublicKeyX) != 0 || sumY.Cmp(s.SharedPublicKeyY) != 0 {
		return errors.New("keyshare: sum(public_shares) != shared_public_key")
	}
	return nil
}

// PartyAux is one party's auxiliary material (spec 3): a Paillier modulus,
// Ring-Pedersen base, and El-Gamal public key.
type PartyAux struct {
	N    *big.Int // Paillier modulus, = p*q
	S, T *big.Int // Ring-Pedersen base, gcd(S,N) == gcd(T,N) == 1

	YX, YY *big.Int // El-Gamal public key Y = G*y
}

// Validate checks the per-party invariants spec 4.6 requires of every entry
// in the parties table: gcd(s,N) == gcd(t,N) == 1.
func (a *PartyAux) Validate() error {
	if a == nil || a.N == nil || a.S == nil || a.T == nil || a.YX == nil || a.YY == nil {
		return errors.New("keyshare: incomplete party aux")
	}
	if new(big.Int).GCD(nil, nil, a.S, a.N).Cmp(one) != 0 {
		return errors.New("keyshare: gcd(s,N) != 1")
	}
	if new(big.Int).GCD(nil, nil, a.T, a.N).Cmp(one) != 0 {
		return errors.New("keyshare: gcd(t,N) != 1")
	}
	return nil
}

// KeyShare is the refresh protocol's output (spec 3): an IncompleteKeyShare
// plus this party's own safe primes, El-Gamal secret, and the full
// auxiliary table for every party.
type KeyShare struct {
	IncompleteKeyShare

	P, Q *big.Int // secret safe primes, N == P*Q
	Y    *big.Int // El-Gamal secret scalar

	Parties []PartyAux // indexed by party id, len == N
}

// Validate runs every invariant spec 4.6 requires before a freshly-refreshed
// KeyShare is handed to the caller. A failure here is an internal bug (spec
// 7.3), not a peer abort: by the time this runs, every peer's contribution
// has already passed per-message verification.
func (k *KeyShare) Validate(curve curves.Curve) error {
	if err := k.IncompleteKeyShare.Validate(curve); err != nil {
		return err
	}
	if k.P == nil || k.Q == nil || k.Y == nil {
		return errors.New("keyshare: missing secret material")
	}
	if len(k.Parties) != k.N {
		return errors.New("keyshare: parties table length mismatch")
	}

	n := new(big.Int).Mul(k.P, k.Q)
	if n.Cmp(k.Parties[k.Index].N) != 0 {
		return errors.New("keyshare: N_i != p*q")
	}

	yx, yy := curve.ScalarBaseMult(k.Y)
	if yx.Cmp(k.Parties[k.Index].YX) != 0 || yy.Cmp(k.Parties[k.Index].YY) != 0 {
		return errors.New("keyshare: G*y != Y_i")
	}

	for i := range k.Parties {
		if err := k.Parties[i].Validate(); err != nil {
			return fmt.Errorf("keyshare: party %d: %w", i, err)
		}
	}
	return nil
}

// Zeroize clears the secret material an owning scope must not retain past
// its lifetime (spec 9): p, q, y, and the additive share x. Parties/public
// data is left intact since it is not secret.
func (k *KeyShare) Zeroize() {
	zero(k.P)
	zero(k.Q)
	zero(k.Y)
	zero(k.X)
}

func zero(x *big.Int) {
	if x == nil {
		return
	}
	words := x.Bits()
	for i := range words {
		words[i] = 0
	}
	x.SetInt64(0)
}

// FromKeygenOutput adapts the teacher's Feldman-VSS keygen.LocalPartySaveData
// (a t-of-n scheme) into the additive n-of-n IncompleteKeyShare the refresh
// protocol operates on.
//
// The adaptation is a real, not approximate, equivalence: evaluating a
// degree-t polynomial F at n >= t+1 distinct points and combining the
// results with Lagrange coefficients for the full n-party set recovers
// F(0). Multiplying each party's Shamir share x_i = F(i) by its own
// Lagrange coefficient lambda_i (for that same full n-set) before summing
// therefore reduces the t-of-n scheme to a plain n-of-n additive scheme:
// sum_i (lambda_i * x_i) = F(0) = sk, with each term lambda_i*x_i held
// locally by party i. The same weighting is what sign's round_1.go
// (calcLagrangeCoeffs) applies to x_i before signing; keygen's round_4.go
// applies no Lagrange weights (it checks each X_j against the Feldman
// commitments). This function turns the weighting into a reusable per-party
// share transform.
//
// allData must contain every party's LocalPartySaveData, ordered the same
// way as parties: refresh's IncompleteKeyShare.PublicSharesX/Y is public
// data (each entry is G*x_k for a party k), so building it requires every
// party's own public share X_k = allData[k].XiX/XiY, not just the caller's.
// In a deployed system these come from the keygen transcript every party
// already holds; only the secret Xi of allData[selfIndex] is used to derive
// a scalar, every other entry is used solely for its public coordinates.
func FromKeygenOutput(curve curves.Curve, allData []*keygen.LocalPartySaveData, parties []tss.PartyID, self tss.PartyID) (*IncompleteKeyShare, error) {
	n := len(parties)
	if n == 0 || n > 65535 {
		return nil, fmt.Errorf("keyshare: invalid party count %d", n)
	}
	if len(allData) != n {
		return nil, fmt.Errorf("keyshare: allData length %d does not match party count %d", len(allData), n)
	}

	order := curve.Params().N

	selfIndex := -1
	xCoord := make([]*big.Int, n)
	for i, p := range parties {
		xCoord[i] = big.NewInt(int64(i + 1))
		if p.ID() == self.ID() {
			selfIndex = i
		}
	}
	if selfIndex < 0 {
		return nil, errors.New("keyshare: local party not found in party list")
	}
	if allData[selfIndex] == nil {
		return nil, errors.New("keyshare: nil keygen output for local party")
	}

	pubX := make([]*big.Int, n)
	pubY := make([]*big.Int, n)
	var localX *big.Int
	for k := 0; k < n; k++ {
		if allData[k] == nil {
			return nil, fmt.Errorf("keyshare: nil keygen output for party %d", k)
		}
		lambda := lagrangeCoefficientAtZero(xCoord, k, order)
		pubX[k], pubY[k] = curve.ScalarMult(allData[k].XiX, allData[k].XiY, lambda)
		if k == selfIndex {
			localX = new(big.Int).Mul(lambda, allData[k].Xi)
			localX.Mod(localX, order)
		}
	}

	return &IncompleteKeyShare{
		Index:            selfIndex,
		N:                n,
		SharedPublicKeyX: allData[selfIndex].PublicKeyX,
		SharedPublicKeyY: allData[selfIndex].PublicKeyY,
		RID:              nil,
		PublicSharesX:    pubX,
		PublicSharesY:    pubY,
		X:                localX,
	}, nil
}

// lagrangeCoefficientAtZero computes lambda_i = prod_{k != i} x_k / (x_k -
// x_i) mod order, the Lagrange basis coefficient for reconstructing F(0)
// from the full point set xCoord.
func lagrangeCoefficientAtZero(xCoord []*big.Int, i int, order *big.Int) *big.Int {
	num := big.NewInt(1)
	den := big.NewInt(1)

	xi := xCoord[i]
	for k, xk := range xCoord {
		if k == i {
			continue
		}
		num.Mul(num, xk)
		num.Mod(num, order)

		diff := new(big.Int).Sub(xk, xi)
		diff.Mod(diff, order)
		den.Mul(den, diff)
		den.Mod(den, order)
	}

	denInv := new(big.Int).ModInverse(den, order)
	lambda := new(big.Int).Mul(num, denInv)
	return lambda.Mod(lambda, order)
}
