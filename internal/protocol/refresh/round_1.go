package refresh

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	"github.com/cggmp21/keyrefresh/internal/crypto/commitment"
	"github.com/cggmp21/keyrefresh/internal/crypto/paillier"
	"github.com/cggmp21/keyrefresh/internal/crypto/ringpedersen"
	"github.com/cggmp21/keyrefresh/internal/crypto/zk/prm"
	"github.com/cggmp21/keyrefresh/pkg/tss"
)

// round1 builds this party's fresh auxiliary material (Paillier key,
// Ring-Pedersen setup, El-Gamal key, per-peer Schnorr nonces, sum-zero
// sub-shares, rho_i) and broadcasts a single hash commitment to all of it
// (spec 4.2).
func (s *state) round1() (tss.StateMachine, []tss.Message, error) {
	random := s.cfg.Rand

	p, q, err := s.cfg.primes(random)
	if err != nil {
		return nil, nil, fmt.Errorf("refresh: generating safe primes: %w", err)
	}
	s.p, s.q = p, q

	pk, err := paillier.GenerateKeyFromPrimes(p, q)
	if err != nil {
		return nil, nil, fmt.Errorf("refresh: building paillier key: %w", err)
	}
	s.pk = pk

	rp, err := ringpedersen.Generate(random, p, q)
	if err != nil {
		return nil, nil, fmt.Errorf("refresh: building ring-pedersen setup: %w", err)
	}
	s.rp = rp

	prmProof, err := prm.Prove(random, sidFor(s.sid, s.n, s.selfIndex), rp)
	if err != nil {
		return nil, nil, fmt.Errorf("refresh: proving pi_prm: %w", err)
	}
	s.prmProof = prmProof

	y, err := s.curve.NewScalar()
	if err != nil {
		return nil, nil, fmt.Errorf("refresh: sampling y: %w", err)
	}
	s.y = y
	yx, yy := s.curve.ScalarBaseMult(y)
	s.bigY = pointWire{yx, yy}

	tauB, err := s.curve.NewScalar()
	if err != nil {
		return nil, nil, fmt.Errorf("refresh: sampling tau_B: %w", err)
	}
	s.tauB = tauB
	bx, by := s.curve.ScalarBaseMult(tauB)
	s.bigB = pointWire{bx, by}

	for _, j := range peerOrder(s.n, s.selfIndex) {
		tauAj, err := s.curve.NewScalar()
		if err != nil {
			return nil, nil, fmt.Errorf("refresh: sampling tau_A[%d]: %w", j, err)
		}
		s.tauA[j] = tauAj
		ax, ay := s.curve.ScalarBaseMult(tauAj)
		s.aByPeer[j] = pointWire{ax, ay}
	}

	// xs[k] is this party's contribution routed to party k; the n values
	// must sum to zero so that redistributing them preserves the shared
	// secret key (spec 4.2). One slot is fixed to the negated sum of the
	// rest; which slot makes no difference, so the party's own successor
	// index is as good a choice as any.
	order := s.curve.Params().N
	balance := (s.selfIndex + 1) % s.n
	xs := make([]*big.Int, s.n)
	sum := big.NewInt(0)
	for k := 0; k < s.n; k++ {
		if k == balance {
			continue
		}
		xk, err := s.curve.NewScalar()
		if err != nil {
			return nil, nil, fmt.Errorf("refresh: sampling xs[%d]: %w", k, err)
		}
		xs[k] = xk
		sum.Add(sum, xk)
	}
	sum.Mod(sum, order)
	balanceVal := new(big.Int).Neg(sum)
	balanceVal.Mod(balanceVal, order)
	xs[balance] = balanceVal
	s.xs = xs

	s.Xs = make([]pointWire, s.n)
	for k := 0; k < s.n; k++ {
		px, py := s.curve.ScalarBaseMult(xs[k])
		s.Xs[k] = pointWire{px, py}
	}

	rho := make([]byte, s.cfg.SecurityBits/8)
	if _, err := io.ReadFull(random, rho); err != nil {
		return nil, nil, fmt.Errorf("refresh: sampling rho: %w", err)
	}
	s.rho = rho

	parts := commitParts(sidFor(s.sid, s.n, s.selfIndex), s.Xs, aListFor(s), s.bigY, s.bigB, s.pk.N, s.rp.Params.S, s.rp.Params.T, s.prmProof, s.rho)
	c, salt, err := commitment.HashCommit(parts...)
	if err != nil {
		return nil, nil, fmt.Errorf("refresh: committing round 1 payload: %w", err)
	}
	s.commitment = c
	s.salt = salt

	data, err := json.Marshal(round1Payload{Commitment: c})
	if err != nil {
		return nil, nil, fmt.Errorf("refresh: marshaling round 1 payload: %w", err)
	}

	msg := &RefreshMessage{
		FromParty:  s.params.PartyID,
		ToParties:  nil,
		IsBcast:    true,
		Data:       data,
		TypeString: msgTypeR1,
		RoundNum:   1,
	}

	s.round = 1
	return s, []tss.Message{msg}, nil
}
