package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestBackgroundState_String 测试状态字符串
func TestBackgroundState_String(t *testing.T) {
	tests := []struct {
		state    BackgroundState
		expected string
	}{
		{StateForeground, "FOREGROUND"},
		{StateBackground, "BACKGROUND"},
		{StateDoze, "DOZE"},
		{StateLowMemory, "LOW_MEMORY"},
		{StateBatterySaver, "BATTERY_SAVER"},
		{BackgroundState(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.state.String())
	}
}

// TestParseBackgroundState 测试状态解析
func TestParseBackgroundState(t *testing.T) {
	st, ok := ParseBackgroundState("DOZE")
	assert.True(t, ok)
	assert.Equal(t, StateDoze, st)

	_, ok = ParseBackgroundState("sleeping")
	assert.False(t, ok)
}

// TestPriority_NiceValue 测试优先级到 nice 值映射
func TestPriority_NiceValue(t *testing.T) {
	assert.Equal(t, -10, PriorityCritical.NiceValue())
	assert.Equal(t, -5, PriorityHigh.NiceValue())
	assert.Equal(t, 0, PriorityNormal.NiceValue())
	assert.Equal(t, 5, PriorityLow.NiceValue())
	assert.Equal(t, 15, PriorityBackground.NiceValue())
	assert.Equal(t, 0, Priority(42).NiceValue())

	assert.True(t, PriorityBackground.Valid())
	assert.False(t, Priority(-1).Valid())

	t.Log("✅ nice 值映射正确")
}

// TestAllocatorStats_HitRatio 测试命中率
func TestAllocatorStats_HitRatio(t *testing.T) {
	assert.Zero(t, AllocatorStats{}.HitRatio())
	assert.InDelta(t, 0.75, AllocatorStats{PoolHits: 3, PoolMisses: 1}.HitRatio(), 1e-9)
}
