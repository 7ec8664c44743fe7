package refresh

import "math/big"

// zeroizeTransient clears secret scratch material that never leaves this
// package: the sub-shares (xs, consumed into delta and the per-peer
// ciphertexts), the Schnorr nonces (tau_B, tau_A), and the Ring-Pedersen
// secret exponent lambda. p, q and y are deliberately left untouched: they
// are handed to the caller unchanged inside the returned KeyShare, and
// zeroizing them here would corrupt that output out from under the caller.
// keyshare.KeyShare.Zeroize is the caller's own lifecycle hook for those.
func (s *state) zeroizeTransient() {
	for _, x := range s.xs {
		zero(x)
	}
	zero(s.tauB)
	for _, x := range s.tauA {
		zero(x)
	}
	if s.rp != nil {
		zero(s.rp.Lambda)
	}
}

func zero(x *big.Int) {
	if x == nil {
		return
	}
	words := x.Bits()
	for i := range words {
		words[i] = 0
	}
}
