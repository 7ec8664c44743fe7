package refresh

import (
	"encoding/json"
	"fmt"

	"github.com/cggmp21/keyrefresh/pkg/tss"
)

// round2 opens round 1's commitment: every field committed to is revealed
// in the clear, along with the commitment's salt (spec 4.2, 4.3).
func (s *state) round2() (tss.StateMachine, []tss.Message, error) {
	payload := round2Payload{
		Xs:   s.Xs,
		A:    aListFor(s),
		Y:    s.bigY,
		B:    s.bigB,
		N:    s.pk.N,
		S:    s.rp.Params.S,
		T:    s.rp.Params.T,
		Prm:  s.prmProof,
		Rho:  s.rho,
		Salt: s.salt,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("refresh: marshaling round 2 payload: %w", err)
	}

	msg := &RefreshMessage{
		FromParty:  s.params.PartyID,
		ToParties:  nil,
		IsBcast:    true,
		Data:       data,
		TypeString: msgTypeR2,
		RoundNum:   2,
	}

	s.round = 2
	return s, []tss.Message{msg}, nil
}
