package refresh

import (
	"github.com/cggmp21/keyrefresh/pkg/tss"
)

// RefreshMessage is the concrete tss.Message implementation for every round
// of Key Refresh (spec 6): round 1 and round 2 are broadcast, round 3 is a
// distinct unicast payload per recipient.
type RefreshMessage struct {
	FromParty  tss.PartyID
	ToParties  []tss.PartyID
	IsBcast    bool
	Data       []byte
	TypeString string
	RoundNum   uint32
}

func (m *RefreshMessage) Type() string { return m.TypeString }

func (m *RefreshMessage) From() tss.PartyID { return m.FromParty }

func (m *RefreshMessage) To() []tss.PartyID { return m.ToParties }

func (m *RefreshMessage) IsBroadcast() bool { return m.IsBcast }

func (m *RefreshMessage) Payload() []byte { return m.Data }

func (m *RefreshMessage) RoundNumber() uint32 { return m.RoundNum }

const (
	msgTypeR1 = "RefreshR1Commit"
	msgTypeR2 = "RefreshR2Open"
	msgTypeR3 = "RefreshR3Transport"
)
