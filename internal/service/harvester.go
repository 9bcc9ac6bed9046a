package service

import (
	"math/big"

	"github.com/GhostQS/alphalend-supply/internal/domain/entity"
)

// CandidateSet is the set of field names considered amount-like for a
// protocol. The list is deliberately a superset of plausible names across
// protocol versions; false positives are expected and tolerated.
type CandidateSet map[string]struct{}

// NewCandidateSet builds a CandidateSet from a name list.
func NewCandidateSet(names []string) CandidateSet {
	set := make(CandidateSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// HarvestAmounts exhaustively walks a value tree and collects every
// occurrence of a candidate field whose value is an integer or an
// integer-looking string. When the same name occurs at several positions,
// the last visited occurrence wins; this is a documented heuristic
// inherited from the protocol adapters, not a correctness guarantee.
// Non-numeric values under candidate keys are silently skipped. The walk
// never fails: malformed shapes simply contribute nothing.
func HarvestAmounts(value entity.Value, candidates CandidateSet) map[string]*big.Int {
	out := make(map[string]*big.Int)
	harvest(value, candidates, out)
	return out
}

func harvest(value entity.Value, candidates CandidateSet, out map[string]*big.Int) {
	switch value.Kind() {
	case entity.KindSequence:
		for _, item := range value.Sequence() {
			harvest(item, candidates, out)
		}
	case entity.KindMapping:
		for _, key := range value.SortedKeys() {
			child, _ := value.Get(key)
			if _, isCandidate := candidates[key]; isCandidate {
				if amount, ok := child.AsBigInt(); ok {
					out[key] = amount
					continue
				}
			}
			harvest(child, candidates, out)
		}
	}
}
