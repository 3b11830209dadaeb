package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil)
	assert.Equal(t, "", got.Value)
	assert.InDelta(t, 0.0, got.Confidence, 1e-9)
	assert.Equal(t, 0, got.SourceCount)
}

func TestAggregateSingleCandidateIdentity(t *testing.T) {
	got := Aggregate([]FieldCandidate{{Value: "ACME Corp", Confidence: 0.73}})
	assert.Equal(t, "ACME Corp", got.Value)
	assert.InDelta(t, 0.73, got.Confidence, 1e-9)
	assert.Equal(t, 1, got.SourceCount)
}

func TestAggregateNumericFormattingCollides(t *testing.T) {
	got := Aggregate([]FieldCandidate{
		{Value: "$1,200.00", Confidence: 0.5},
		{Value: "1200.0", Confidence: 0.4},
		{Value: "999.99", Confidence: 0.6},
	})
	// The two formattings of 1200 accumulate 0.9 > 0.6.
	assert.Equal(t, "$1,200.00", got.Value)
	assert.Equal(t, 2, got.SourceCount)
	// min(1, 0.9/3) + bonus min(0.1, 2*0.02)
	assert.InDelta(t, 0.3+0.04, got.Confidence, 1e-9)
}

func TestAggregateCaseInsensitiveGrouping(t *testing.T) {
	got := Aggregate([]FieldCandidate{
		{Value: "acme corp", Confidence: 0.3},
		{Value: "ACME Corp", Confidence: 0.6},
		{Value: "Globex", Confidence: 0.5},
	})
	// Grouped sum 0.9 beats Globex; strongest original spelling wins.
	assert.Equal(t, "ACME Corp", got.Value)
	assert.Equal(t, 2, got.SourceCount)
}

func TestAggregateAgreementBonusCapped(t *testing.T) {
	candidates := make([]FieldCandidate, 10)
	for i := range candidates {
		candidates[i] = FieldCandidate{Value: "42.00", Confidence: 1.0}
	}
	got := Aggregate(candidates)
	// Base min(1, 10/10)=1, bonus capped, final capped at 1.
	assert.InDelta(t, 1.0, got.Confidence, 1e-9)
	assert.Equal(t, 10, got.SourceCount)
}

func TestAggregateHighestSumWinsNotHighestCount(t *testing.T) {
	got := Aggregate([]FieldCandidate{
		{Value: "A", Confidence: 0.9},
		{Value: "b", Confidence: 0.2},
		{Value: "B", Confidence: 0.2},
		{Value: "b", Confidence: 0.2},
	})
	// "b" group sums to 0.6 over three sources; "A" still wins on 0.9.
	assert.Equal(t, "A", got.Value)
	assert.Equal(t, 1, got.SourceCount)
}
