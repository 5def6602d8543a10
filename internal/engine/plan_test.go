package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan(t *testing.T) {
	steps := Plan("# header\n/ac Touch <wait.2>\n/say hi\n/defaultwait 0.5\n/echo done\n/loop")
	require.Len(t, steps, 5)

	assert.Equal(t, Step{Index: 1, Kind: StepCommand, Source: "/ac Touch <wait.2>", Command: "/ac Touch ", Wait: 2 * time.Second, WaitSource: WaitFromTag}, steps[0])
	assert.Equal(t, Step{Index: 2, Kind: StepCommand, Source: "/say hi", Command: "/say hi", Wait: CommandFloor, WaitSource: WaitFromFloor}, steps[1])
	assert.Equal(t, Step{Index: 3, Kind: StepDefaultWait, Source: "/defaultwait 0.5", Wait: 500 * time.Millisecond}, steps[2])
	assert.Equal(t, Step{Index: 4, Kind: StepCommand, Source: "/echo done", Command: "/echo done", Wait: 500 * time.Millisecond, WaitSource: WaitFromDefault}, steps[3])
	assert.Equal(t, Step{Index: 5, Kind: StepLoop, Source: "/loop"}, steps[4])
}

func TestPlan_FastFloor(t *testing.T) {
	steps := Plan("/echo quick")
	require.Len(t, steps, 1)
	assert.Equal(t, FastCommandFloor, steps[0].Wait)
}

func TestPlan_Ignored(t *testing.T) {
	steps := Plan("/defaultwait soon\n/echo a <wait.99999999999999999999>")
	require.Len(t, steps, 2)

	assert.Equal(t, StepDefaultWait, steps[0].Kind)
	assert.True(t, steps[0].Ignored)

	assert.True(t, steps[1].Ignored, "an overflowing tag is dropped")
	assert.Equal(t, "/echo a ", steps[1].Command)
	assert.Equal(t, FastCommandFloor, steps[1].Wait)
	assert.Equal(t, WaitFromFloor, steps[1].WaitSource)
}

func TestPlan_Empty(t *testing.T) {
	assert.Empty(t, Plan("# nothing\n\n"))
}

func TestPlan_LinesAfterLoopUnreachable(t *testing.T) {
	steps := Plan("/echo a\n/loop\n/echo b\n/loop")
	require.Len(t, steps, 4)

	assert.False(t, steps[0].Unreachable)
	assert.False(t, steps[1].Unreachable, "the loop itself runs")
	assert.True(t, steps[2].Unreachable)
	assert.True(t, steps[3].Unreachable)
	assert.False(t, steps[2].Ignored)
}
