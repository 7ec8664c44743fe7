package refresh

import (
	"fmt"
	"sort"
	"strings"
)

// AbortReason names why the protocol aborted due to another party's
// misbehavior (spec 7.1). Exactly one of these applies to any given abort.
type AbortReason string

const (
	InvalidDecommitment          AbortReason = "InvalidDecommitment"
	InvalidDataSize              AbortReason = "InvalidDataSize"
	InvalidRingPedersenParameters AbortReason = "InvalidRingPedersenParameters"
	InvalidX                     AbortReason = "InvalidX"
	InvalidSchnorrProof          AbortReason = "InvalidSchnorrProof"
	InvalidModProof              AbortReason = "InvalidModProof"
	InvalidFacProof              AbortReason = "InvalidFacProof"
	InvalidXShare                AbortReason = "InvalidXShare"
)

// Culprit names a party that failed a predicate, together with references
// to the two messages (commitment, opening) a later component would need to
// publish a cryptographic proof of guilt (spec 9's "Blame bookkeeping" —
// publishing itself is out of scope, but the references are preserved).
type Culprit struct {
	PartyIndex    int
	CommitmentRef string
	OpeningRef    string
}

// AbortError is returned when the protocol aborts because a peer violated a
// verification predicate (spec 7.1). It is distinct from a transport error
// (surfaced unchanged, never wrapped in AbortError) and from an internal
// bug (spec 7.3), so a caller can use errors.As to tell the three apart.
type AbortError struct {
	Reason   AbortReason
	Culprits []Culprit
}

func (e *AbortError) Error() string {
	ids := make([]string, len(e.Culprits))
	for i, c := range e.Culprits {
		ids[i] = fmt.Sprintf("%d", c.PartyIndex)
	}
	return fmt.Sprintf("refresh aborted: %s (culprits: %s)", e.Reason, strings.Join(ids, ","))
}

// newAbort builds an AbortError from a set of offending party indices,
// deduplicated and sorted for a deterministic culprit list regardless of
// map/slice iteration order.
func newAbort(reason AbortReason, culprits map[int]Culprit) *AbortError {
	indices := make([]int, 0, len(culprits))
	for idx := range culprits {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	out := make([]Culprit, len(indices))
	for i, idx := range indices {
		out[i] = culprits[idx]
	}
	return &AbortError{Reason: reason, Culprits: out}
}
