package capacity

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-mobiletun/config"
	"github.com/dep2p/go-mobiletun/pkg/types"
)

// TestStabilize_Example 测试典型移动端预算
func TestStabilize_Example(t *testing.T) {
	plan := Stabilize(types.CapacityRequest{
		MTU:               1400,
		MaxConnections:    2048,
		BufferPackets:     96,
		MemoryBudgetBytes: 16 << 20,
	})

	assert.Equal(t, 11983, PacketBudget(plan))
	assert.Equal(t, 1497, plan.EffectiveMaxConnections)
	assert.Equal(t, 8, plan.EffectiveBufferPackets)
	assert.Equal(t, int64(16_766_400), plan.EstimatedBufferBytes)
	assert.True(t, plan.Changed)

	assert.Equal(t, 2048, plan.RequestedMaxConnections)
	assert.Equal(t, 96, plan.RequestedBufferPackets)
	assert.Equal(t, int64(16<<20), plan.MemoryBudgetBytes)

	t.Log("✅ 16MiB/1400 规划正确")
}

// TestStabilize_WithinBudget 测试预算充足时保持请求值
func TestStabilize_WithinBudget(t *testing.T) {
	plan := Stabilize(types.CapacityRequest{
		MTU:               1500,
		MaxConnections:    256,
		BufferPackets:     32,
		MemoryBudgetBytes: 64 << 20,
	})

	assert.Equal(t, 256, plan.EffectiveMaxConnections)
	assert.Equal(t, 32, plan.EffectiveBufferPackets)
	assert.False(t, plan.Changed)
	assert.Equal(t, int64(256*32*1500), plan.EstimatedBufferBytes)
}

// TestStabilize_Defaults 测试零值输入被钳制
func TestStabilize_Defaults(t *testing.T) {
	plan := Stabilize(types.CapacityRequest{})

	assert.Equal(t, MinMTU, plan.MTU)
	assert.Equal(t, DefaultMemoryBudget, plan.EffectiveBudgetBytes)
	assert.Equal(t, int64(0), plan.MemoryBudgetBytes, "原始预算原样报告")
	assert.Equal(t, MinConnections, plan.EffectiveMaxConnections)
	assert.Equal(t, MinBufferPackets, plan.EffectiveBufferPackets)
	assert.True(t, plan.Changed)
}

// TestStabilize_FloorWins 测试预算低于下限时下限优先
func TestStabilize_FloorWins(t *testing.T) {
	// 4MiB / 65535 = 64 个包，低于 256 的下限
	plan := Stabilize(types.CapacityRequest{
		MTU:               70000,
		MaxConnections:    2048,
		BufferPackets:     96,
		MemoryBudgetBytes: 1,
	})

	assert.Equal(t, MaxMTU, plan.MTU)
	assert.Equal(t, MinMemoryBudget, plan.EffectiveBudgetBytes)
	assert.Equal(t, MinPacketBudget, PacketBudget(plan))
	assert.Equal(t, MinConnections, plan.EffectiveMaxConnections)
	assert.Equal(t, MinBufferPackets, plan.EffectiveBufferPackets)
}

// TestStabilize_ConnectionsShrinkFirst 测试先收缩连接数
func TestStabilize_ConnectionsShrinkFirst(t *testing.T) {
	// 16MiB / 1500 = 11184 个包；11184/8 = 1398 不影响 200 个连接
	plan := Stabilize(types.CapacityRequest{
		MTU:               1500,
		MaxConnections:    200,
		BufferPackets:     96,
		MemoryBudgetBytes: 16 << 20,
	})

	assert.Equal(t, 200, plan.EffectiveMaxConnections)
	assert.Equal(t, 11184/200, plan.EffectiveBufferPackets)
	assert.True(t, plan.Changed)
}

// TestStabilize_Bounds 随机输入下的不变量
func TestStabilize_Bounds(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 5000; i++ {
		req := types.CapacityRequest{
			MTU:               r.Intn(80000) - 1000,
			MaxConnections:    r.Intn(5000) - 100,
			BufferPackets:     r.Intn(200) - 10,
			MemoryBudgetBytes: r.Int63n(256<<20) - (1 << 20),
		}
		plan := Stabilize(req)

		require.GreaterOrEqual(t, plan.EffectiveMaxConnections, MinConnections)
		require.LessOrEqual(t, plan.EffectiveMaxConnections, MaxConnections)
		require.GreaterOrEqual(t, plan.EffectiveBufferPackets, MinBufferPackets)
		require.LessOrEqual(t, plan.EffectiveBufferPackets, MaxBufferPackets)
		require.LessOrEqual(t, plan.EffectiveMaxConnections*plan.EffectiveBufferPackets, PacketBudget(plan), "req=%+v", req)
		require.Equal(t, int64(plan.EffectiveMaxConnections)*int64(plan.EffectiveBufferPackets)*int64(plan.MTU), plan.EstimatedBufferBytes)
	}
}

// TestAutoBudget 测试按总内存比例计算预算
func TestAutoBudget(t *testing.T) {
	prev := totalMemory
	defer func() { totalMemory = prev }()

	totalMemory = func() uint64 { return 4 << 30 }
	assert.Equal(t, int64(4<<30)/100, AutoBudget(0.01))
	assert.Zero(t, AutoBudget(0))
	assert.Zero(t, AutoBudget(1.5))

	totalMemory = func() uint64 { return 0 }
	assert.Zero(t, AutoBudget(0.5))
}

// TestRequestFromConfig 测试配置转换
func TestRequestFromConfig(t *testing.T) {
	prev := totalMemory
	defer func() { totalMemory = prev }()
	totalMemory = func() uint64 { return 2 << 30 }

	cfg := config.DefaultCapacityConfig()
	cfg.MemoryBudget = 0
	cfg.AutoBudgetFraction = 0.01

	req := RequestFromConfig(cfg)
	assert.Equal(t, int64(2<<30)/100, req.MemoryBudgetBytes)
	assert.Equal(t, cfg.MTU, req.MTU)

	cfg.MemoryBudget = 8 << 20
	assert.Equal(t, int64(8<<20), RequestFromConfig(cfg).MemoryBudgetBytes)
}
