package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

// TestNewConfig 测试创建默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)

	// 验证默认配置有效
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, 8, cfg.Pool.MaxConnections)
	assert.Equal(t, 16, cfg.Pool.BatchSize)
	assert.Equal(t, 10*time.Millisecond, cfg.Pool.FlushTimeout.Duration())
	assert.Equal(t, 8192, cfg.Pool.MaxEntryBytes)
	assert.Equal(t, 64, cfg.Lifecycle.MaxProcesses)
	assert.Equal(t, 8, cfg.Lifecycle.MaxCallbacks)
	assert.Equal(t, 100*time.Millisecond, cfg.Lifecycle.PollInterval.Duration())
	assert.Equal(t, uint64(100), cfg.Lifecycle.LowMemoryThresholdMB)
	assert.Equal(t, 32, cfg.Signal.MaxRegistrations)

	t.Log("✅ NewConfig 测试通过")
}

// TestConfig_ValidateCollectsAll 测试验证返回全部问题
func TestConfig_ValidateCollectsAll(t *testing.T) {
	cfg := NewConfig()
	cfg.Pool.BatchSize = 0
	cfg.Lifecycle.PollInterval = 0
	cfg.Log.Level = "chatty"

	err := cfg.Validate()
	require.Error(t, err)
	errs := multierr.Errors(err)
	assert.Len(t, errs, 3)
	assert.Contains(t, errs[0].Error(), "pool:")

	assert.Len(t, Problems(cfg), 3)
	assert.ErrorIs(t, ValidateAll(nil), ErrNilConfig)
}

// TestFromJSON 测试从 JSON 加载
func TestFromJSON(t *testing.T) {
	data := []byte(`{
		"pool": {"flush_timeout": "25ms", "evict_on_close": true},
		"capacity": {"mtu": 1400, "memory_budget": "32MiB"},
		"lifecycle": {"poll_interval": 50000000}
	}`)

	cfg, err := FromJSON(data)
	require.NoError(t, err)

	assert.Equal(t, 25*time.Millisecond, cfg.Pool.FlushTimeout.Duration())
	assert.True(t, cfg.Pool.EvictOnClose)
	assert.Equal(t, 16, cfg.Pool.BatchSize, "未出现的字段保留默认值")
	assert.Equal(t, 1400, cfg.Capacity.MTU)
	assert.Equal(t, int64(32<<20), cfg.Capacity.MemoryBudget.Bytes())
	assert.Equal(t, 50*time.Millisecond, cfg.Lifecycle.PollInterval.Duration())

	out, err := ToJSON(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"flush_timeout": "25ms"`)

	_, err = FromJSON([]byte(`{"pool": {"flush_timeout": "soon"}}`))
	assert.Error(t, err)
}

// TestFromYAML 测试从 YAML 加载
func TestFromYAML(t *testing.T) {
	data := []byte(`
pool:
  max_connections: 4
  flush_timeout: 5ms
capacity:
  memory_budget: 8MiB
watchdog:
  mode: system
  frequency: 2s
`)

	cfg, err := FromYAML(data)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Pool.MaxConnections)
	assert.Equal(t, 5*time.Millisecond, cfg.Pool.FlushTimeout.Duration())
	assert.Equal(t, ByteSize(8<<20), cfg.Capacity.MemoryBudget)
	assert.Equal(t, WatchdogSystem, cfg.Watchdog.Mode)
	assert.True(t, cfg.Watchdog.Enabled())
	assert.NoError(t, cfg.Validate())
}

// TestLoadFile 测试按扩展名加载
func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "mobiletun.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"log": {"level": "debug"}}`), 0o600))
	cfg, err := LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)

	yamlPath := filepath.Join(dir, "mobiletun.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("log:\n  format: json\n"), 0o600))
	cfg, err = LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)

	_, err = LoadFile(filepath.Join(dir, "mobiletun.toml"))
	assert.Error(t, err)
}

// TestByteSize 测试字节数解析与格式化
func TestByteSize(t *testing.T) {
	b, err := ParseByteSize("16MiB")
	require.NoError(t, err)
	assert.Equal(t, ByteSize(16<<20), b)
	assert.Equal(t, "16MiB", b.String())

	_, err = ParseByteSize("lots")
	assert.Error(t, err)
}

// TestApplyPreset 测试预设
func TestApplyPreset(t *testing.T) {
	t.Run("lowmem", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, ApplyPreset(cfg, "lowmem"))
		assert.Equal(t, 32, cfg.Capacity.MaxConnections)
		assert.Equal(t, ByteSize(4<<20), cfg.Capacity.MemoryBudget)
		assert.Equal(t, WatchdogHeap, cfg.Watchdog.Mode)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("ios", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, ApplyPreset(cfg, "ios"))
		assert.Equal(t, 1400, cfg.Capacity.MTU)
		assert.Equal(t, ByteSize(48<<20), cfg.Watchdog.Limit)
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, ApplyPreset(NewConfig(), "server"))
		assert.ErrorIs(t, ApplyPreset(nil, "mobile"), ErrNilConfig)
	})
}

// TestConfig_CapacityLimits 测试固定容量表的上限
func TestConfig_CapacityLimits(t *testing.T) {
	pool := DefaultPoolConfig()
	pool.MaxConnections = PoolCapacity
	assert.NoError(t, pool.Validate())
	pool.MaxConnections = PoolCapacity + 1
	assert.Error(t, pool.Validate())

	lc := DefaultLifecycleConfig()
	lc.MaxProcesses = ProcessTableCapacity + 1
	assert.Error(t, lc.Validate())
	lc = DefaultLifecycleConfig()
	lc.MaxCallbacks = CallbackTableCapacity + 1
	assert.Error(t, lc.Validate())

	sig := DefaultSignalConfig()
	assert.Equal(t, SignalTableCapacity, sig.MaxRegistrations)
	sig.MaxRegistrations = 64
	assert.Error(t, sig.Validate())

	cfg := NewConfig()
	cfg.Pool.MaxConnections = 16
	cfg.Lifecycle.MaxProcesses = 128
	assert.Len(t, Problems(cfg), 2)

	t.Log("✅ 容量上限验证正确")
}

// TestWatchdogConfig_Validate 测试看门狗配置验证
func TestWatchdogConfig_Validate(t *testing.T) {
	cfg := DefaultWatchdogConfig()
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.Enabled())

	cfg.Mode = WatchdogHeap
	cfg.Watermarks = []float64{0.9, 0.5}
	assert.Error(t, cfg.Validate())

	cfg.Watermarks = []float64{0.5, 1.2}
	assert.Error(t, cfg.Validate())

	cfg.Mode = "adaptive"
	assert.Error(t, cfg.Validate())
}

// TestCloneConfig 测试深拷贝
func TestCloneConfig(t *testing.T) {
	cfg := NewConfig()
	cloned := CloneConfig(cfg)
	cloned.Watchdog.Watermarks[0] = 0.1
	cloned.Pool.BatchSize = 1

	assert.Equal(t, 0.50, cfg.Watchdog.Watermarks[0])
	assert.Equal(t, 16, cfg.Pool.BatchSize)
	assert.Nil(t, CloneConfig(nil))
}
