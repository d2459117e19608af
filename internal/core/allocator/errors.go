package allocator

import "errors"

var (
	// ErrInvalidBlockSize 块大小非法
	ErrInvalidBlockSize = errors.New("allocator: block size must be positive")

	// ErrInvalidPrealloc 预分配数量非法
	ErrInvalidPrealloc = errors.New("allocator: prealloc must be non-negative")

	// ErrPreallocFailed 预分配时堆分配失败
	ErrPreallocFailed = errors.New("allocator: prealloc heap allocation failed")
)
