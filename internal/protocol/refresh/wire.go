package refresh

import (
	"math/big"

	"github.com/cggmp21/keyrefresh/internal/crypto/commitment"
	"github.com/cggmp21/keyrefresh/internal/crypto/zk/fac"
	"github.com/cggmp21/keyrefresh/internal/crypto/zk/mod"
	"github.com/cggmp21/keyrefresh/internal/crypto/zk/prm"
)

// pointWire is the wire representation of an elliptic curve point: a plain
// affine coordinate pair, the same convention keygen's LocalPartySaveData
// already uses for ECDSAPubX/Y and XiX/XiY.
type pointWire struct {
	X, Y *big.Int
}

// round1Payload is R1's wire schema (spec 6): a single 32-byte commitment.
type round1Payload struct {
	Commitment []byte
}

// round2Payload is R2's wire schema (spec 6): the cleartext opening of
// round 1's commitment, plus the opening nonce.
type round2Payload struct {
	Xs   []pointWire // length n
	A    []pointWire // length n-1, ordered by peerOrder(n, sender)
	Y    pointWire
	B    pointWire
	N    *big.Int
	S    *big.Int
	T    *big.Int
	Prm  *prm.Proof
	Rho  []byte
	Salt []byte // u_i, HashCommit's opening nonce
}

// round3Payload is R3's wire schema (spec 6): the unicast proof-and-share
// bundle one party sends a single recipient. Schnorr responses only carry
// the sigma-protocol's s value: the commitment R they're checked against
// (B or the recipient's A-list slot) was already revealed in round 2, so
// resending it would be redundant and would let a sender substitute a
// different R without the round 1/2 commitment catching it.
type round3Payload struct {
	Mod    *mod.Proof
	Fac    *fac.Proof
	PiYS   *big.Int   // pi_Y's response s = tau_B + challenge_i * y
	CShare *big.Int   // Paillier ciphertext of xs[recipient] under recipient's key
	PsiS   []*big.Int // psi_i^{j,k}'s responses, k = 0..n-1
}

// commitParts lays out, in the fixed field order spec 4.2 requires every
// verifier to reproduce exactly, every quantity round 2 will reveal: the
// session/author salt, Xs, the A-list, Y, B, the Ring-Pedersen triple, the
// Pi_prm proof, and rho_i. Spec 4.1 requires every commitment to be salted
// by sid, n, and the committing party's index j, and spec 4.2 defines
// V_i = HashCommit(sid, n, i, Xs, A-list, Y, N, s, t, rho_i) explicitly;
// sidSalt is sidFor(sid, n, j) (the same per-author salt every other proof
// in this package threads through), so passing it as the first committed
// part binds V_i to one session and one author exactly as spec 4.1
// requires: messages from a different session, or a different party's
// message replayed under this party's index, change the salt and so can
// never decommit to a valid opening. The remaining fields are spec 6's full
// R2 payload; this function commits to all of it since spec 4.2's own
// contract ("every quantity that will be revealed in round 2 MUST appear
// under V_i") is binding beyond the shorthand list in 4.2's prose.
func commitParts(sidSalt []byte, xs, aList []pointWire, y, b pointWire, n, s, t *big.Int, proof *prm.Proof, rho []byte) [][]byte {
	parts := make([][]byte, 0, 1+2*len(xs)+2*len(aList)+4+2+2*len(proof.A)+1)
	parts = append(parts, sidSalt)
	for _, p := range xs {
		parts = append(parts, commitment.IntToBytes(p.X), commitment.IntToBytes(p.Y))
	}
	for _, p := range aList {
		parts = append(parts, commitment.IntToBytes(p.X), commitment.IntToBytes(p.Y))
	}
	parts = append(parts,
		commitment.IntToBytes(y.X), commitment.IntToBytes(y.Y),
		commitment.IntToBytes(b.X), commitment.IntToBytes(b.Y),
		commitment.IntToBytes(n), commitment.IntToBytes(s), commitment.IntToBytes(t),
	)
	for _, a := range proof.A {
		parts = append(parts, commitment.IntToBytes(a))
	}
	for _, z := range proof.Z {
		parts = append(parts, commitment.IntToBytes(z))
	}
	parts = append(parts, rho)
	return parts
}

// aListFor builds the A-list entries for state s in peerOrder, the order
// every peer is expected to reproduce when looking up s's slot for them.
func aListFor(s *state) []pointWire {
	order := peerOrder(s.n, s.selfIndex)
	out := make([]pointWire, len(order))
	for idx, j := range order {
		out[idx] = s.aByPeer[j]
	}
	return out
}
