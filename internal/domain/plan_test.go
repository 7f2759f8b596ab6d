package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDayPlan_NarrowRangeUsesOppositeBoundaryStops(t *testing.T) {
	// Range size 10 ≤ target 20 → natural ORB stops at opposite boundary.
	or := OpeningRange{High: 6860.00, Low: 6850.00}

	plan, err := BuildDayPlan("/ES", or, 20, 0.25)
	require.NoError(t, err)

	assert.Equal(t, 6860.00, plan.LongEntry)
	assert.Equal(t, 6850.00, plan.LongStop)
	assert.Equal(t, 6880.00, plan.LongTarget)

	assert.Equal(t, 6850.00, plan.ShortEntry)
	assert.Equal(t, 6860.00, plan.ShortStop)
	assert.Equal(t, 6830.00, plan.ShortTarget)
}

func TestBuildDayPlan_WideRangeUsesMidpointStops(t *testing.T) {
	// Range size 30 > target 20 → both stops at the midpoint (6865.0).
	or := OpeningRange{High: 6880, Low: 6850}

	plan, err := BuildDayPlan("/ES", or, 20, 0.25)
	require.NoError(t, err)

	assert.Equal(t, 6865.0, plan.LongStop)
	assert.Equal(t, 6865.0, plan.ShortStop)
}

func TestBuildDayPlan_StopRoundingIsConservative(t *testing.T) {
	// Size 25 > target 20 → midpoint stop at 6862.615 for both sides.
	// Long stop must round down (wider risk), short stop up.
	or := OpeningRange{High: 6875.12, Low: 6850.11}

	plan, err := BuildDayPlan("/ES", or, 20, 0.25)
	require.NoError(t, err)

	assert.InDelta(t, 6862.50, plan.LongStop, 1e-9)
	assert.InDelta(t, 6862.75, plan.ShortStop, 1e-9)

	// Entries and targets are not tick-rounded here.
	assert.Equal(t, 6875.12, plan.LongEntry)
	assert.InDelta(t, 6895.12, plan.LongTarget, 1e-9)
}

func TestBuildDayPlan_InvalidTickSize(t *testing.T) {
	_, err := BuildDayPlan("/ES", OpeningRange{High: 2, Low: 1}, 20, 0)
	assert.Error(t, err)
}

func TestStopTargetForEntry_MatchesPlanAtBoundaries(t *testing.T) {
	// The fill-time derivation and the plan builder must agree when the
	// fill lands exactly on the boundary.
	or := OpeningRange{High: 6880, Low: 6850}

	plan, err := BuildDayPlan("/ES", or, 20, 0.25)
	require.NoError(t, err)

	stop, target := StopTargetForEntry(SideLong, or.High, or, 20, 0.25)
	assert.Equal(t, plan.LongStop, stop)
	assert.Equal(t, plan.LongTarget, target)

	stop, target = StopTargetForEntry(SideShort, or.Low, or, 20, 0.25)
	assert.Equal(t, plan.ShortStop, stop)
	assert.Equal(t, plan.ShortTarget, target)
}

func TestStopTargetForEntry_BufferedFillKeepsRangeStop(t *testing.T) {
	// A buffered fill above the boundary moves the target with the entry
	// but the stop still comes from the range.
	or := OpeningRange{High: 6860, Low: 6850}

	stop, target := StopTargetForEntry(SideLong, 6860.25, or, 20, 0.25)
	assert.Equal(t, 6850.0, stop)
	assert.InDelta(t, 6880.25, target, 1e-9)
}
