package refresh

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/cggmp21/keyrefresh/internal/crypto/curves"
	"github.com/cggmp21/keyrefresh/internal/crypto/paillier"
	"github.com/cggmp21/keyrefresh/internal/crypto/ringpedersen"
	"github.com/cggmp21/keyrefresh/internal/crypto/zk/prm"
	"github.com/cggmp21/keyrefresh/pkg/keyshare"
	"github.com/cggmp21/keyrefresh/pkg/tss"
)

// state drives the refresh protocol's rounds (spec 6): round 1 commits,
// round 2 opens, round 3 transports per-recipient proofs and encrypted
// sub-shares, round 4 is purely local (verify everything, combine, done).
type state struct {
	params *tss.Parameters
	cfg    Config
	curve  curves.Curve

	incoming *keyshare.IncompleteKeyShare

	n         int
	selfIndex int
	partyIdx  map[string]int

	sid []byte
	tag []byte

	round int

	p, q       *big.Int
	pk         *paillier.PrivateKey
	rp         *ringpedersen.Setup
	prmProof   *prm.Proof
	y          *big.Int
	bigY       pointWire
	tauB       *big.Int
	bigB       pointWire
	tauA       map[int]*big.Int
	aByPeer    map[int]pointWire
	xs         []*big.Int
	Xs         []pointWire
	rho        []byte
	commitment []byte
	salt       []byte

	peerCommit map[int][]byte
	peerOpen   map[int]*round2Payload
	peer3      map[int]*round3Payload

	combinedRho []byte
}

// NewStateMachine starts a Key Refresh session for the local party,
// immediately producing round 1's broadcast commitment.
func NewStateMachine(params *tss.Parameters, incoming *keyshare.IncompleteKeyShare, opts ...Option) (tss.StateMachine, []tss.Message, error) {
	if params == nil {
		return nil, nil, errors.New("refresh: nil parameters")
	}
	curve := curves.NewSecp256k1()
	if err := incoming.Validate(curve); err != nil {
		return nil, nil, fmt.Errorf("refresh: invalid incoming key share: %w", err)
	}

	n := len(params.Parties)
	if n != incoming.N {
		return nil, nil, fmt.Errorf("refresh: party count %d does not match incoming share's %d", n, incoming.N)
	}

	partyIdx := make(map[string]int, n)
	selfIndex := -1
	for i, p := range params.Parties {
		partyIdx[p.ID()] = i
		if p.ID() == params.PartyID.ID() {
			selfIndex = i
		}
	}
	if selfIndex < 0 {
		return nil, nil, errors.New("refresh: local party not present in parties list")
	}
	if selfIndex != incoming.Index {
		return nil, nil, fmt.Errorf("refresh: local index %d does not match incoming share's index %d", selfIndex, incoming.Index)
	}

	if len(params.SessionID) == 0 {
		return nil, nil, errors.New("refresh: empty session id")
	}
	sid := deriveSID(params.SessionID)
	tag, err := deriveTag(params.SessionID)
	if err != nil {
		return nil, nil, err
	}

	cfg := Config{SecurityBits: DefaultSecurityBits, Rand: rand.Reader}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Reader
	}

	s := &state{
		params:     params,
		cfg:        cfg,
		curve:      curve,
		incoming:   incoming,
		n:          n,
		selfIndex:  selfIndex,
		partyIdx:   partyIdx,
		sid:        sid,
		tag:        tag,
		tauA:       make(map[int]*big.Int),
		aByPeer:    make(map[int]pointWire),
		peerCommit: make(map[int][]byte),
		peerOpen:   make(map[int]*round2Payload),
		peer3:      make(map[int]*round3Payload),
	}

	if s.cfg.Tracer != nil {
		s.cfg.Tracer.Trace("refresh: starting round 1", "party", selfIndex, "n", n)
	}

	return s.round1()
}

// Update applies one incoming message, advancing to the next round once
// every peer's message for the current round has arrived.
func (s *state) Update(msg tss.Message) (tss.StateMachine, []tss.Message, error) {
	if msg == nil || msg.From() == nil {
		return nil, nil, errors.New("refresh: nil message or sender")
	}

	sender := msg.From().ID()
	if sender == s.params.PartyID.ID() {
		return s, nil, nil
	}
	senderIdx, ok := s.partyIdx[sender]
	if !ok {
		return nil, nil, fmt.Errorf("refresh: message from unknown party %s", sender)
	}

	switch msg.RoundNumber() {
	case 1:
		if s.round != 1 {
			return nil, nil, fmt.Errorf("refresh: unexpected round 1 message while in round %d", s.round)
		}
		if _, dup := s.peerCommit[senderIdx]; dup {
			return nil, nil, fmt.Errorf("refresh: duplicate round 1 message from party %d", senderIdx)
		}
		var payload round1Payload
		if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
			return nil, nil, fmt.Errorf("refresh: malformed round 1 payload from party %d: %w", senderIdx, err)
		}
		s.peerCommit[senderIdx] = payload.Commitment
		if len(s.peerCommit) == s.n-1 {
			if s.cfg.Tracer != nil {
				s.cfg.Tracer.Trace("refresh: starting round 2")
			}
			return s.round2()
		}
		return s, nil, nil

	case 2:
		if s.round != 2 {
			return nil, nil, fmt.Errorf("refresh: unexpected round 2 message while in round %d", s.round)
		}
		if _, dup := s.peerOpen[senderIdx]; dup {
			return nil, nil, fmt.Errorf("refresh: duplicate round 2 message from party %d", senderIdx)
		}
		var payload round2Payload
		if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
			return nil, nil, fmt.Errorf("refresh: malformed round 2 payload from party %d: %w", senderIdx, err)
		}
		s.peerOpen[senderIdx] = &payload
		if len(s.peerOpen) == s.n-1 {
			if s.cfg.Tracer != nil {
				s.cfg.Tracer.Trace("refresh: starting round 3")
			}
			return s.round3()
		}
		return s, nil, nil

	case 3:
		if s.round != 3 {
			return nil, nil, fmt.Errorf("refresh: unexpected round 3 message while in round %d", s.round)
		}
		if msg.IsBroadcast() {
			return nil, nil, fmt.Errorf("refresh: round 3 message from party %d must be unicast", senderIdx)
		}
		if _, dup := s.peer3[senderIdx]; dup {
			return nil, nil, fmt.Errorf("refresh: duplicate round 3 message from party %d", senderIdx)
		}
		var payload round3Payload
		if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
			return nil, nil, fmt.Errorf("refresh: malformed round 3 payload from party %d: %w", senderIdx, err)
		}
		s.peer3[senderIdx] = &payload
		if len(s.peer3) == s.n-1 {
			if s.cfg.Tracer != nil {
				s.cfg.Tracer.Trace("refresh: finalizing")
			}
			return s.round4()
		}
		return s, nil, nil

	default:
		return nil, nil, fmt.Errorf("refresh: unexpected round number %d", msg.RoundNumber())
	}
}

func (s *state) Result() interface{} { return nil }

func (s *state) Details() string { return fmt.Sprintf("Refresh Round %d", s.round) }

// finishedState is the terminal StateMachine returned once round 4
// completes: no further messages are expected, and Result carries the
// refreshed KeyShare.
type finishedState struct {
	result *keyshare.KeyShare
}

func (f *finishedState) Update(tss.Message) (tss.StateMachine, []tss.Message, error) {
	return nil, nil, tss.ErrProtocolDone
}

func (f *finishedState) Result() interface{} { return f.result }

func (f *finishedState) Details() string { return "Refresh done" }
