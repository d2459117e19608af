package capacity

import "github.com/dep2p/go-mobiletun/pkg/types"

// 调优档案名称
const (
	ProfileThroughput = "throughput"
	ProfileBalanced   = "balanced"
	ProfileLatency    = "latency"
)

// TuningForScore 按网络探测评分选择调优档案
//
//   - score >= 75: throughput
//   - score >= 45: balanced
//   - score >= 0:  latency
//   - score < 0（探测缺失或无效）: balanced
func TuningForScore(score int) types.Tuning {
	switch {
	case score >= 75:
		return types.Tuning{
			Profile:       ProfileThroughput,
			TCPSendBuffer: 65535,
			TCPWindow:     65535,
			SocksBuffer:   131072,
			UDPGWMaxConn:  1024,
			UDPGWBufSize:  64,
			DNSPermCache:  4096,
			DNSTimeoutSec: 8,
			DNSVerbosity:  1,
		}
	case score >= 45, score < 0:
		return types.Tuning{
			Profile:       ProfileBalanced,
			TCPSendBuffer: 65535,
			TCPWindow:     65535,
			SocksBuffer:   65536,
			UDPGWMaxConn:  512,
			UDPGWBufSize:  32,
			DNSPermCache:  2048,
			DNSTimeoutSec: 10,
			DNSVerbosity:  2,
		}
	default:
		return types.Tuning{
			Profile:       ProfileLatency,
			TCPSendBuffer: 32768,
			TCPWindow:     32768,
			SocksBuffer:   65536,
			UDPGWMaxConn:  256,
			UDPGWBufSize:  16,
			DNSPermCache:  2048,
			DNSTimeoutSec: 5,
			DNSVerbosity:  1,
		}
	}
}

// RequestForTuning 用档案的 udpgw 参数构造容量规划请求
func RequestForTuning(t types.Tuning, mtu int, budget int64) types.CapacityRequest {
	return types.CapacityRequest{
		MTU:               mtu,
		MaxConnections:    t.UDPGWMaxConn,
		BufferPackets:     t.UDPGWBufSize,
		MemoryBudgetBytes: budget,
	}
}
