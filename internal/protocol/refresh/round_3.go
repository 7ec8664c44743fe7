package refresh

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/cggmp21/keyrefresh/internal/crypto/commitment"
	"github.com/cggmp21/keyrefresh/internal/crypto/paillier"
	"github.com/cggmp21/keyrefresh/internal/crypto/ringpedersen"
	"github.com/cggmp21/keyrefresh/internal/crypto/zk/fac"
	"github.com/cggmp21/keyrefresh/internal/crypto/zk/mod"
	"github.com/cggmp21/keyrefresh/internal/crypto/zk/schnorr"
	"github.com/cggmp21/keyrefresh/pkg/tss"
)

// round3 verifies every peer's round 2 opening against its round 1
// commitment (spec 4.4), then sends each peer a unicast bundle of proofs
// and an encrypted sub-share (spec 4.5).
func (s *state) round3() (tss.StateMachine, []tss.Message, error) {
	random := s.cfg.Rand
	// N = p*q, each factor exactly 4*S bits: the product's bit length is
	// 8*S or 8*S-1 depending on carry, so the lower bound allows for that.
	minNBits := 8*s.cfg.SecurityBits - 1
	factorBits := 4 * s.cfg.SecurityBits

	culprits := map[int]Culprit{}
	for j, payload := range s.peerOpen {
		if len(payload.Xs) != s.n || len(payload.A) != s.n-1 {
			culprits[j] = Culprit{PartyIndex: j}
			continue
		}
		if payload.N == nil || payload.S == nil || payload.T == nil ||
			payload.Y.X == nil || payload.Y.Y == nil || payload.B.X == nil || payload.B.Y == nil ||
			payload.Prm == nil {
			culprits[j] = Culprit{PartyIndex: j}
		}
	}
	if len(culprits) > 0 {
		return nil, nil, newAbort(InvalidDataSize, culprits)
	}

	// Ring-Pedersen well-formedness (gcd predicates, modulus size, pi_prm):
	// a malformed or dishonestly-built setup is rejected as a single
	// predicate, spec 4.4 #3, rather than splitting pi_prm into its own
	// abort reason.
	culprits = map[int]Culprit{}
	for j, payload := range s.peerOpen {
		params := &ringpedersen.Params{N: payload.N, S: payload.S, T: payload.T}
		if err := params.Validate(minNBits); err != nil {
			culprits[j] = Culprit{PartyIndex: j}
			continue
		}
		if !payload.Prm.Verify(sidFor(s.sid, s.n, j), params) {
			culprits[j] = Culprit{PartyIndex: j}
		}
	}
	if len(culprits) > 0 {
		return nil, nil, newAbort(InvalidRingPedersenParameters, culprits)
	}

	culprits = map[int]Culprit{}
	for j, payload := range s.peerOpen {
		parts := commitParts(sidFor(s.sid, s.n, j), payload.Xs, payload.A, payload.Y, payload.B, payload.N, payload.S, payload.T, payload.Prm, payload.Rho)
		if err := commitment.VerifyCommit(s.peerCommit[j], payload.Salt, parts...); err != nil {
			culprits[j] = Culprit{
				PartyIndex:    j,
				CommitmentRef: fmt.Sprintf("round1:%d", j),
				OpeningRef:    fmt.Sprintf("round2:%d", j),
			}
		}
	}
	if len(culprits) > 0 {
		return nil, nil, newAbort(InvalidDecommitment, culprits)
	}

	// Each party's own n sub-shares must sum to zero: redistributing them
	// preserves the shared secret key (spec 4.2, 4.4).
	culprits = map[int]Culprit{}
	for j, payload := range s.peerOpen {
		var sumX, sumY *big.Int
		for k := 0; k < s.n; k++ {
			if sumX == nil {
				sumX, sumY = payload.Xs[k].X, payload.Xs[k].Y
				continue
			}
			sumX, sumY = s.curve.Add(sumX, sumY, payload.Xs[k].X, payload.Xs[k].Y)
		}
		if sumX.Sign() != 0 || sumY.Sign() != 0 {
			culprits[j] = Culprit{PartyIndex: j}
		}
	}
	if len(culprits) > 0 {
		return nil, nil, newAbort(InvalidX, culprits)
	}

	rhoParts := make([][]byte, 0, s.n)
	rhoParts = append(rhoParts, s.rho)
	for _, payload := range s.peerOpen {
		rhoParts = append(rhoParts, payload.Rho)
	}
	combined, err := xorRho(rhoParts)
	if err != nil {
		return nil, nil, fmt.Errorf("refresh: combining rho: %w", err)
	}
	s.combinedRho = combined

	var outMsgs []tss.Message
	sidSelf := sidFor(s.sid, s.n, s.selfIndex)
	for _, j := range peerOrder(s.n, s.selfIndex) {
		peer := s.peerOpen[j]

		modProof, err := mod.Prove(random, sidSelf, s.pk.N, s.p, s.q)
		if err != nil {
			return nil, nil, fmt.Errorf("refresh: proving pi_mod for party %d: %w", j, err)
		}

		recipientParams := &ringpedersen.Params{N: peer.N, S: peer.S, T: peer.T}
		facProof, err := fac.Prove(random, sidSelf, recipientParams, s.pk.N, s.p, s.q, factorBits)
		if err != nil {
			return nil, nil, fmt.Errorf("refresh: proving pi_fac for party %d: %w", j, err)
		}

		challengeJ := challengeForParty(s.tag, j, s.combinedRho)

		piY, err := schnorr.ReplayNonce(s.tauB, s.y, challengeJ)
		if err != nil {
			return nil, nil, fmt.Errorf("refresh: proving pi_Y for party %d: %w", j, err)
		}

		peerPub := &paillier.PublicKey{N: peer.N, N2: new(big.Int).Mul(peer.N, peer.N)}
		r, err := rand.Int(random, peer.N)
		if err != nil {
			return nil, nil, fmt.Errorf("refresh: sampling paillier nonce for party %d: %w", j, err)
		}
		if r.Sign() == 0 {
			r = big.NewInt(1)
		}
		cshare, err := peerPub.EncryptWithR(s.xs[j], r)
		if err != nil {
			return nil, nil, fmt.Errorf("refresh: encrypting share for party %d: %w", j, err)
		}

		psiS := make([]*big.Int, s.n)
		for k := 0; k < s.n; k++ {
			psi, err := schnorr.ReplayNonce(s.tauA[j], s.xs[k], challengeJ)
			if err != nil {
				return nil, nil, fmt.Errorf("refresh: proving psi[%d][%d]: %w", j, k, err)
			}
			psiS[k] = psi.S
		}

		data, err := json.Marshal(round3Payload{
			Mod:    modProof,
			Fac:    facProof,
			PiYS:   piY.S,
			CShare: cshare,
			PsiS:   psiS,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("refresh: marshaling round 3 payload for party %d: %w", j, err)
		}

		outMsgs = append(outMsgs, &RefreshMessage{
			FromParty:  s.params.PartyID,
			ToParties:  []tss.PartyID{s.params.Parties[j]},
			IsBcast:    false,
			Data:       data,
			TypeString: msgTypeR3,
			RoundNum:   3,
		})
	}

	s.round = 3
	return s, outMsgs, nil
}
