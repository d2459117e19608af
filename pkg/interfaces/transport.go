package interfaces

// Transport 不透明传输的四个入口
//
// 签名与运行时解析到的原始入口一致，返回值采用整数约定：
//   - Connect 返回句柄，<0 表示失败
//   - Send 返回接受的字节数，<0 表示失败
//   - Receive 返回读取的字节数，<0 表示失败
//
// 连接池批量器实现同一接口，可直接替换原始入口。
type Transport interface {
	// Connect 建立到 server:port 的连接
	Connect(server string, port int, auth string) int

	// Send 在句柄上发送数据，返回后不得继续持有 data
	Send(handle int, data []byte) int

	// Receive 从句柄读取数据到 buf
	Receive(handle int, buf []byte) int

	// Close 关闭句柄
	Close(handle int)
}

// PooledTransport 带连接池与批量发送的传输
type PooledTransport interface {
	Transport

	// Release 将句柄标记为空闲以便复用，不调用底层关闭
	Release(handle int)

	// Flush 立即刷新句柄上待发送的批次，返回底层发送结果
	Flush(handle int) int

	// FlushAll 刷新所有连接的批次，返回失败的连接数
	FlushAll() int

	// Available 底层入口是否完整可用
	Available() bool
}
