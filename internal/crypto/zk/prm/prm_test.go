package prm

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cggmp21/keyrefresh/internal/crypto/ringpedersen"
)

func testSetup(t *testing.T) *ringpedersen.Setup {
	t.Helper()
	// Safe primes 23 (=2*11+1), 47 (=2*23+1): small enough for Iterations=80
	// repetitions to run quickly in a unit test, large enough that phi(N) and
	// the modular exponentiations exercise the real code paths.
	setup, err := ringpedersen.Generate(rand.Reader, big.NewInt(23), big.NewInt(47))
	require.NoError(t, err)
	return setup
}

func TestProveVerify(t *testing.T) {
	setup := testSetup(t)
	sid := []byte("test-sid")

	proof, err := Prove(rand.Reader, sid, setup)
	require.NoError(t, err)
	require.Len(t, proof.A, Iterations)
	require.Len(t, proof.Z, Iterations)

	require.True(t, proof.Verify(sid, setup.Params))
}

func TestVerifyRejectsWrongSID(t *testing.T) {
	setup := testSetup(t)
	proof, err := Prove(rand.Reader, []byte("sid-a"), setup)
	require.NoError(t, err)

	require.False(t, proof.Verify([]byte("sid-b"), setup.Params))
}

func TestVerifyRejectsTamperedResponse(t *testing.T) {
	setup := testSetup(t)
	sid := []byte("test-sid")
	proof, err := Prove(rand.Reader, sid, setup)
	require.NoError(t, err)

	proof.Z[0] = new(big.Int).Add(proof.Z[0], big.NewInt(1))
	require.False(t, proof.Verify(sid, setup.Params))
}

func TestVerifyRejectsWrongIterationCount(t *testing.T) {
	setup := testSetup(t)
	proof := &Proof{A: []*big.Int{big.NewInt(1)}, Z: []*big.Int{big.NewInt(1)}}
	require.False(t, proof.Verify([]byte("sid"), setup.Params))
}
