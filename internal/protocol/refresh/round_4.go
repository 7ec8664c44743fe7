package refresh

import (
	"fmt"
	"math/big"

	"github.com/cggmp21/keyrefresh/internal/crypto/curves"
	"github.com/cggmp21/keyrefresh/internal/crypto/zk/schnorr"
	"github.com/cggmp21/keyrefresh/pkg/keyshare"
	"github.com/cggmp21/keyrefresh/pkg/tss"
)

// round4 is purely local: verify every proof and encrypted sub-share
// received in round 3, combine them into this party's refreshed additive
// share, and assemble the full KeyShare (spec 4.5, 4.6). No message is
// sent; the returned state is terminal.
func (s *state) round4() (tss.StateMachine, []tss.Message, error) {
	order := s.curve.Params().N
	factorBits := 4 * s.cfg.SecurityBits
	challengeSelf := challengeForParty(s.tag, s.selfIndex, s.combinedRho)

	culprits := map[int]Culprit{}
	for i, payload := range s.peer3 {
		if payload.Mod == nil || payload.Fac == nil || payload.PiYS == nil || payload.CShare == nil || len(payload.PsiS) != s.n {
			culprits[i] = Culprit{PartyIndex: i}
		}
	}
	if len(culprits) > 0 {
		return nil, nil, newAbort(InvalidDataSize, culprits)
	}

	culprits = map[int]Culprit{}
	for i, payload := range s.peer3 {
		if !payload.Mod.Verify(sidFor(s.sid, s.n, i), s.peerOpen[i].N) {
			culprits[i] = Culprit{PartyIndex: i}
		}
	}
	if len(culprits) > 0 {
		return nil, nil, newAbort(InvalidModProof, culprits)
	}

	culprits = map[int]Culprit{}
	for i, payload := range s.peer3 {
		if !payload.Fac.Verify(sidFor(s.sid, s.n, i), s.rp.Params, s.peerOpen[i].N, factorBits) {
			culprits[i] = Culprit{PartyIndex: i}
		}
	}
	if len(culprits) > 0 {
		return nil, nil, newAbort(InvalidFacProof, culprits)
	}

	culprits = map[int]Culprit{}
	for i, payload := range s.peer3 {
		peerOpen := s.peerOpen[i]

		piY := &schnorr.Proof{R: curves.PointToJacobian(peerOpen.B.X, peerOpen.B.Y), S: payload.PiYS}
		if !piY.VerifyWithChallenge(curves.PointToJacobian(peerOpen.Y.X, peerOpen.Y.Y), challengeSelf) {
			culprits[i] = Culprit{PartyIndex: i}
			continue
		}

		slot := slotFor(i, s.selfIndex)
		if slot < 0 || slot >= len(peerOpen.A) {
			culprits[i] = Culprit{PartyIndex: i}
			continue
		}
		rJac := curves.PointToJacobian(peerOpen.A[slot].X, peerOpen.A[slot].Y)

		bad := false
		for k := 0; k < s.n; k++ {
			psi := &schnorr.Proof{R: rJac, S: payload.PsiS[k]}
			target := curves.PointToJacobian(peerOpen.Xs[k].X, peerOpen.Xs[k].Y)
			if !psi.VerifyWithChallenge(target, challengeSelf) {
				bad = true
				break
			}
		}
		if bad {
			culprits[i] = Culprit{PartyIndex: i}
		}
	}
	if len(culprits) > 0 {
		return nil, nil, newAbort(InvalidSchnorrProof, culprits)
	}

	delta := big.NewInt(0)
	culprits = map[int]Culprit{}
	for i, payload := range s.peer3 {
		share, err := s.pk.Decrypt(payload.CShare)
		if err != nil {
			culprits[i] = Culprit{PartyIndex: i}
			continue
		}
		expectX, expectY := s.curve.ScalarBaseMult(share)
		want := s.peerOpen[i].Xs[s.selfIndex]
		if expectX.Cmp(want.X) != 0 || expectY.Cmp(want.Y) != 0 {
			culprits[i] = Culprit{PartyIndex: i}
			continue
		}
		delta.Add(delta, share)
	}
	if len(culprits) > 0 {
		return nil, nil, newAbort(InvalidXShare, culprits)
	}
	delta.Add(delta, s.xs[s.selfIndex])
	delta.Mod(delta, order)

	newX := new(big.Int).Add(s.incoming.X, delta)
	newX.Mod(newX, order)

	pubX := make([]*big.Int, s.n)
	pubY := make([]*big.Int, s.n)
	parties := make([]keyshare.PartyAux, s.n)
	for k := 0; k < s.n; k++ {
		sumX, sumY := s.Xs[k].X, s.Xs[k].Y
		for i, payload := range s.peerOpen {
			sumX, sumY = s.curve.Add(sumX, sumY, payload.Xs[k].X, payload.Xs[k].Y)
		}
		pubX[k], pubY[k] = s.curve.Add(s.incoming.PublicSharesX[k], s.incoming.PublicSharesY[k], sumX, sumY)

		if k == s.selfIndex {
			parties[k] = keyshare.PartyAux{N: s.pk.N, S: s.rp.Params.S, T: s.rp.Params.T, YX: s.bigY.X, YY: s.bigY.Y}
		} else {
			peerOpen := s.peerOpen[k]
			parties[k] = keyshare.PartyAux{N: peerOpen.N, S: peerOpen.S, T: peerOpen.T, YX: peerOpen.Y.X, YY: peerOpen.Y.Y}
		}
	}

	result := &keyshare.KeyShare{
		IncompleteKeyShare: keyshare.IncompleteKeyShare{
			Index:            s.selfIndex,
			N:                s.n,
			SharedPublicKeyX: s.incoming.SharedPublicKeyX,
			SharedPublicKeyY: s.incoming.SharedPublicKeyY,
			RID:              s.combinedRho,
			PublicSharesX:    pubX,
			PublicSharesY:    pubY,
			X:                newX,
		},
		P:       s.p,
		Q:       s.q,
		Y:       s.y,
		Parties: parties,
	}

	if err := result.Validate(s.curve); err != nil {
		return nil, nil, fmt.Errorf("refresh: internal error assembling refreshed key share: %w", err)
	}

	s.zeroizeTransient()
	s.round = 4
	return &finishedState{result: result}, nil, nil
}
