// Package aggregate reduces multiple extraction candidates for one
// logical field into a single best value with a confidence score.
package aggregate

import (
	"github.com/MeKo-Tech/finvoice/internal/invoice"
)

// agreementBonusStep and agreementBonusCap shape the bonus awarded when
// several candidates agree on the same normalized value.
const (
	agreementBonusStep = 0.02
	agreementBonusCap  = 0.1
)

// FieldCandidate is one unverified extracted value for a field,
// produced by a single extraction pass. Candidates are ephemeral and
// never persisted individually.
type FieldCandidate struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// AggregatedField is the reduction of all candidates for one field.
type AggregatedField struct {
	Value       string  `json:"value"`
	Confidence  float64 `json:"confidence"`
	SourceCount int     `json:"source_count"`
}

type group struct {
	confidenceSum  float64
	count          int
	bestValue      string
	bestConfidence float64
}

// Aggregate combines candidate values for one logical field using
// confidence-weighted voting. Values are normalized before grouping so
// "$1,200.00" and "1200.0" collide; the winning group returns its
// original, non-normalized value. The reduction is commutative: the
// result does not depend on candidate order.
func Aggregate(candidates []FieldCandidate) AggregatedField {
	if len(candidates) == 0 {
		return AggregatedField{}
	}

	groups := make(map[string]*group)
	for _, cand := range candidates {
		key := normalize(cand.Value)
		g, ok := groups[key]
		if !ok {
			g = &group{bestValue: cand.Value, bestConfidence: cand.Confidence}
			groups[key] = g
		}
		g.confidenceSum += cand.Confidence
		g.count++
		// Track the strongest original spelling; tie-break on the value
		// itself so permutations of the input cannot change the result.
		if cand.Confidence > g.bestConfidence ||
			(cand.Confidence == g.bestConfidence && cand.Value < g.bestValue) {
			g.bestValue = cand.Value
			g.bestConfidence = cand.Confidence
		}
	}

	var winner *group
	var winnerKey string
	for key, g := range groups {
		if winner == nil || g.confidenceSum > winner.confidenceSum ||
			(g.confidenceSum == winner.confidenceSum && key < winnerKey) {
			winner = g
			winnerKey = key
		}
	}

	confidence := winner.confidenceSum / float64(len(candidates))
	if confidence > 1 {
		confidence = 1
	}
	if winner.count > 1 {
		bonus := float64(winner.count) * agreementBonusStep
		if bonus > agreementBonusCap {
			bonus = agreementBonusCap
		}
		confidence += bonus
		if confidence > 1 {
			confidence = 1
		}
	}

	return AggregatedField{
		Value:       winner.bestValue,
		Confidence:  confidence,
		SourceCount: winner.count,
	}
}

// normalize folds a candidate value for grouping: numeric-looking
// strings parse and re-stringify so formatting variants collide, all
// other values are case/whitespace folded.
func normalize(value string) string {
	if invoice.IsNumeric(value) {
		if d, ok := invoice.ParseAmount(value); ok {
			return d.String()
		}
	}
	return invoice.Fold(value)
}
