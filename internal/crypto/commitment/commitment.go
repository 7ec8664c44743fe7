package commitment

import (
"crypto/rand"
"crypto/sha256"
"encoding/binary"
"errors"
"math/big"
)

// Commitment represents the output of a commitment scheme.
// C = H(salt || msg)
type Commitment struct {
	C []byte // The commitment value (hash)
	D []byte // The decommitment value (salt/randomness)
}

// New implements a simple SHA-256 based commitment scheme.
// It commits to a message `data` using a random `salt`.
// Returns the commitment hash C and the random salt D.
func New(data []byte) (*Commitment, error) {
	// 1. Generate random salt (32 bytes for security)
	salt := make([]byte, 32)
	_, err := rand.Read(salt)
	if err != nil {
		return nil, err
	}

	// 2. Compute C = SHA256(salt || data)
	// Note: The order (salt || data) or (data || salt) matters.
	// We use salt || data to prevent length extension attacks if data is variable length,
	// though SHA256 is resistant.
	hash := sha256.New()
	hash.Write(salt)
	hash.Write(data)
	c := hash.Sum(nil)

	return &Commitment{
		C: c,
		D: salt,
	}, nil
}

// Verify checks if the provided commitment C matches the message data and decommitment salt D.
func Verify(c []byte, d []byte, data []byte) bool {
	if len(c) != 32 || len(d) != 32 {
		return false
	}

	// Recompute hash
	hash := sha256.New()
	hash.Write(d)
	hash.Write(data)
	computedC := hash.Sum(nil)

	// Constant time comparison is preferred for security, though for public commitments
	// standard comparison is often acceptable. We use a plain string comparison here.
	// For high security, use subtle.ConstantTimeCompare.
	return string(computedC) == string(c)
}

// NewComplex commits to a list of big.Ints or other data structures by serializing them first.
// This is a helper for committing to protocol messages.
func NewComplex(parts ...[]byte) (*Commitment, error) {
	// Concatenate all parts
	var data []byte
	for _, p := range parts {
		data = append(data, p...)
	}
	return New(data)
}

// VerifyComplex verifies a commitment against a list of parts.
func VerifyComplex(c []byte, d []byte, parts ...[]byte) bool {
	var data []byte
	for _, p := range parts {
		data = append(data, p...)
	}
	return Verify(c, d, data)
}

// IntToBytes is a helper to convert big.Int to bytes for commitment.
func IntToBytes(i *big.Int) []byte {
	if i == nil {
		return []byte{}
	}
	return i.Bytes()
}

// HashCommit commits to an ordered list of fields, each framed with its
// length so that, unlike NewComplex's bare concatenation, no two distinct
// part sequences can hash to the same preimage by shifting bytes across a
// boundary. Round 1 of the refresh protocol commits this way: the order of
// fields in the hash is fixed by the caller and must match the order
// VerifyCommit is given in round 2 (spec 4.2).
func HashCommit(parts ...[]byte) (c, salt []byte, err error) {
	salt = make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, err
	}

	h := sha256.New()
	h.Write(salt)
	for _, p := range parts {
		var length [8]byte
		binary.BigEndian.PutUint64(length[:], uint64(len(p)))
		h.Write(length[:])
		h.Write(p)
	}
	return h.Sum(nil), salt, nil
}

// VerifyCommit checks a commitment produced by HashCommit. parts must be
// given in the same order used to build c.
func VerifyCommit(c, salt []byte, parts ...[]byte) error {
	if len(c) != sha256.Size || len(salt) != 32 {
		return errors.New("commitment: malformed commitment or salt")
	}

	h := sha256.New()
	h.Write(salt)
	for _, p := range parts {
		var length [8]byte
		binary.BigEndian.PutUint64(length[:], uint64(len(p)))
		h.Write(length[:])
		h.Write(p)
	}
	computed := h.Sum(nil)

	if string(computed) != string(c) {
		return errors.New("commitment: mismatch")
	}
	return nil
}
