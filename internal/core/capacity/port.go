package capacity

import (
	"fmt"
	"strings"
)

const (
	minPort = 1024
	maxPort = 65535
)

// SelectPort 在端口范围内选择本地端口
//
// rangeText 形如 "20000-50000"，两端钳制到 [1024, 65535]，逆序时交换。
// 无法解析时返回钳制后的 preferred。preferred 不在范围内时取范围中点，
// 再按 seed 在范围内旋转，使不同实例分散到不同端口。
func SelectPort(rangeText string, preferred, seed int) int {
	preferred = clamp(preferred, minPort, maxPort)

	var start, end int
	if _, err := fmt.Sscanf(strings.TrimSpace(rangeText), "%d-%d", &start, &end); err != nil {
		return preferred
	}

	start = clamp(start, minPort, maxPort)
	end = clamp(end, minPort, maxPort)
	if start > end {
		start, end = end, start
	}

	if preferred < start || preferred > end {
		preferred = start + (end-start)/2
	}

	width := end - start + 1
	if width <= 1 {
		return start
	}

	offset := seed % width
	if offset < 0 {
		offset += width
	}
	return start + (preferred-start+offset)%width
}
