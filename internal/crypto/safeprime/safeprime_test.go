package safeprime

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	p, err := Generate(rand.Reader, 32)
	require.NoError(t, err)
	require.Equal(t, 32, p.BitLen())
	require.True(t, p.ProbablyPrime(20))

	q := new(big.Int).Rsh(p, 1) // (p-1)/2
	require.True(t, q.ProbablyPrime(20))
}

func TestGeneratePair(t *testing.T) {
	pair, err := GeneratePair(rand.Reader, 32)
	require.NoError(t, err)
	require.NotEqual(t, 0, pair.P.Cmp(pair.Q))
	require.True(t, pair.P.ProbablyPrime(20))
	require.True(t, pair.Q.ProbablyPrime(20))
}

func TestGeneratePregeneratedPrimes(t *testing.T) {
	primes, err := GeneratePregeneratedPrimes(rand.Reader, 8)
	require.NoError(t, err)
	require.Equal(t, 32, primes.P.BitLen())
	require.Equal(t, 32, primes.Q.BitLen())
}

func TestGenerateRejectsTooFewBits(t *testing.T) {
	_, err := Generate(rand.Reader, 4)
	require.Error(t, err)
}
