package keyshare

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cggmp21/keyrefresh/internal/crypto/curves"
	"github.com/cggmp21/keyrefresh/internal/protocol/keygen"
	"github.com/cggmp21/keyrefresh/pkg/tss"
)

type mockPartyID struct{ id string }

func (m *mockPartyID) ID() string      { return m.id }
func (m *mockPartyID) Moniker() string { return m.id }
func (m *mockPartyID) Key() []byte     { return []byte(m.id) }

func testParties(n int) []tss.PartyID {
	out := make([]tss.PartyID, n)
	for i := range out {
		out[i] = &mockPartyID{id: fmt.Sprintf("p%d", i)}
	}
	return out
}

// shamirShares builds a degree-(t-1) polynomial with the given secret as its
// constant term and evaluates it at x = 1..n, the same convention the
// teacher's keygen round_4.go uses for ShareID/XiX/XiY.
func shamirShares(order *big.Int, secret *big.Int, t, n int) []*big.Int {
	coeffs := make([]*big.Int, t)
	coeffs[0] = secret
	for i := 1; i < t; i++ {
		coeffs[i] = big.NewInt(int64(7*i + 3)) // deterministic, non-zero
	}

	shares := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		x := big.NewInt(int64(i + 1))
		acc := big.NewInt(0)
		xPow := big.NewInt(1)
		for _, c := range coeffs {
			term := new(big.Int).Mul(c, xPow)
			acc.Add(acc, term)
			xPow.Mul(xPow, x)
			xPow.Mod(xPow, order)
		}
		acc.Mod(acc, order)
		shares[i] = acc
	}
	return shares
}

// buildSaveData constructs n LocalPartySaveData values implementing a
// t-of-n Feldman-VSS scheme for a fixed secret, the input shape
// FromKeygenOutput adapts.
func buildSaveData(t *testing.T, curve curves.Curve, secret *big.Int, threshold, n int) []*keygen.LocalPartySaveData {
	order := curve.Params().N
	shares := shamirShares(order, secret, threshold+1, n)
	pubX, pubY := curve.ScalarBaseMult(secret)

	out := make([]*keygen.LocalPartySaveData, n)
	for i := 0; i < n; i++ {
		xiX, xiY := curve.ScalarBaseMult(shares[i])
		out[i] = &keygen.LocalPartySaveData{
			PublicKeyX: pubX,
			PublicKeyY: pubY,
			Xi:         shares[i],
			XiX:        xiX,
			XiY:        xiY,
		}
	}
	return out
}

func TestFromKeygenOutputReconstructsAdditiveShares(t *testing.T) {
	curve := curves.NewSecp256k1()
	order := curve.Params().N
	secret := big.NewInt(424242)
	n, threshold := 4, 2

	saveData := buildSaveData(t, curve, secret, threshold, n)
	parties := testParties(n)

	incomplete := make([]*IncompleteKeyShare, n)
	for i := 0; i < n; i++ {
		var err error
		incomplete[i], err = FromKeygenOutput(curve, saveData, parties, parties[i])
		require.NoError(t, err)
		require.NoError(t, incomplete[i].Validate(curve))
	}

	// Every party must agree on the shared public key and public shares.
	for i := 1; i < n; i++ {
		require.Equal(t, 0, incomplete[i].SharedPublicKeyX.Cmp(incomplete[0].SharedPublicKeyX))
		for k := 0; k < n; k++ {
			require.Equal(t, 0, incomplete[i].PublicSharesX[k].Cmp(incomplete[0].PublicSharesX[k]))
		}
	}

	// The additive shares must sum to the original Shamir secret.
	sum := big.NewInt(0)
	for i := 0; i < n; i++ {
		sum.Add(sum, incomplete[i].X)
	}
	sum.Mod(sum, order)
	require.Equal(t, 0, sum.Cmp(secret))
}

func TestIncompleteKeyShareValidateRejectsBadShare(t *testing.T) {
	curve := curves.NewSecp256k1()
	secret := big.NewInt(99)
	pubX, pubY := curve.ScalarBaseMult(secret)

	share := &IncompleteKeyShare{
		Index:            0,
		N:                1,
		SharedPublicKeyX: pubX,
		SharedPublicKeyY: pubY,
		PublicSharesX:    []*big.Int{pubX},
		PublicSharesY:    []*big.Int{pubY},
		X:                big.NewInt(100), // wrong: G*100 != pubX,pubY
	}
	require.Error(t, share.Validate(curve))
}

func TestKeyShareZeroize(t *testing.T) {
	k := &KeyShare{
		P: big.NewInt(1234567),
		Q: big.NewInt(7654321),
		Y: big.NewInt(42),
		IncompleteKeyShare: IncompleteKeyShare{
			X: big.NewInt(99),
		},
	}
	k.Zeroize()
	require.Equal(t, 0, k.P.Sign())
	require.Equal(t, 0, k.Q.Sign())
	require.Equal(t, 0, k.Y.Sign())
	require.Equal(t, 0, k.X.Sign())
}
