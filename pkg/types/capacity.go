package types

// CapacityRequest 容量规划输入
//
// 所有字段都可能越界或为零，稳定器会将其钳制到安全范围。
type CapacityRequest struct {
	// MTU 隧道 MTU
	MTU int `json:"mtu"`

	// MaxConnections 请求的最大连接数
	MaxConnections int `json:"max_connections"`

	// BufferPackets 请求的每连接缓冲包数
	BufferPackets int `json:"buffer_packets"`

	// MemoryBudgetBytes 内存预算（字节），非正数使用默认值
	MemoryBudgetBytes int64 `json:"memory_budget_bytes"`
}

// CapacityPlan 容量规划结果
type CapacityPlan struct {
	// RequestedMaxConnections 请求的最大连接数（原值）
	RequestedMaxConnections int `json:"requested_max_connections"`

	// RequestedBufferPackets 请求的缓冲包数（原值）
	RequestedBufferPackets int `json:"requested_buffer_packets"`

	// MemoryBudgetBytes 请求的内存预算（原值）
	MemoryBudgetBytes int64 `json:"memory_budget_bytes"`

	// EffectiveMaxConnections 生效的最大连接数
	EffectiveMaxConnections int `json:"effective_max_connections"`

	// EffectiveBufferPackets 生效的每连接缓冲包数
	EffectiveBufferPackets int `json:"effective_buffer_packets"`

	// EstimatedBufferBytes 预估缓冲区占用 = 连接数 × 缓冲包数 × MTU
	EstimatedBufferBytes int64 `json:"estimated_buffer_bytes"`

	// Changed 任一维度与请求值不同
	Changed bool `json:"changed"`

	// MTU 钳制后的 MTU
	MTU int `json:"mtu"`

	// EffectiveBudgetBytes 钳制后的内存预算
	EffectiveBudgetBytes int64 `json:"effective_budget_bytes"`
}

// Tuning 按网络探测评分选出的调优档案
type Tuning struct {
	Profile       string `json:"profile"`
	TCPSendBuffer int    `json:"tcp_snd_buf"`
	TCPWindow     int    `json:"tcp_wnd"`
	SocksBuffer   int    `json:"socks_buf"`
	UDPGWMaxConn  int    `json:"udpgw_max_conn"`
	UDPGWBufSize  int    `json:"udpgw_buf_size"`
	DNSPermCache  int    `json:"pdnsd_perm_cache"`
	DNSTimeoutSec int    `json:"pdnsd_timeout"`
	DNSVerbosity  int    `json:"pdnsd_verbosity"`
}
