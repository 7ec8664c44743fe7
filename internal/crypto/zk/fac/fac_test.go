package fac

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cggmp21/keyrefresh/internal/crypto/ringpedersen"
)

func testRecipient(t *testing.T) *ringpedersen.Params {
	t.Helper()
	setup, err := ringpedersen.Generate(rand.Reader, big.NewInt(23), big.NewInt(167))
	require.NoError(t, err)
	return setup.Params
}

func TestProveVerify(t *testing.T) {
	recipient := testRecipient(t)
	p, q := big.NewInt(103), big.NewInt(127)
	n := new(big.Int).Mul(p, q)
	sid := []byte("test-sid")

	proof, err := Prove(rand.Reader, sid, recipient, n, p, q, 16)
	require.NoError(t, err)
	require.True(t, proof.Verify(sid, recipient, n, 16))
}

func TestVerifyRejectsWrongSID(t *testing.T) {
	recipient := testRecipient(t)
	p, q := big.NewInt(103), big.NewInt(127)
	n := new(big.Int).Mul(p, q)

	proof, err := Prove(rand.Reader, []byte("sid-a"), recipient, n, p, q, 16)
	require.NoError(t, err)
	require.False(t, proof.Verify([]byte("sid-b"), recipient, n, 16))
}

func TestVerifyRejectsTamperedResponse(t *testing.T) {
	recipient := testRecipient(t)
	p, q := big.NewInt(103), big.NewInt(127)
	n := new(big.Int).Mul(p, q)
	sid := []byte("test-sid")

	proof, err := Prove(rand.Reader, sid, recipient, n, p, q, 16)
	require.NoError(t, err)

	proof.Z1 = new(big.Int).Add(proof.Z1, big.NewInt(1))
	require.False(t, proof.Verify(sid, recipient, n, 16))
}

func TestProveRejectsIncompleteRecipient(t *testing.T) {
	_, err := Prove(rand.Reader, []byte("sid"), &ringpedersen.Params{}, big.NewInt(1), big.NewInt(1), big.NewInt(1), 16)
	require.Error(t, err)
}
