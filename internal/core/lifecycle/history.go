package lifecycle

import (
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-mobiletun/pkg/types"
)

// shutdownHistory 最近的优雅关闭记录，按 pid 去重
type shutdownHistory struct {
	cache *lru.Cache[int, types.ShutdownRecord]
}

func newShutdownHistory(size int) (*shutdownHistory, error) {
	cache, err := lru.New[int, types.ShutdownRecord](size)
	if err != nil {
		return nil, err
	}
	return &shutdownHistory{cache: cache}, nil
}

func (h *shutdownHistory) add(rec types.ShutdownRecord) {
	h.cache.Add(rec.PID, rec)
}

func (h *shutdownHistory) get(pid int) (types.ShutdownRecord, bool) {
	return h.cache.Peek(pid)
}

// records 返回按时间升序排列的记录
func (h *shutdownHistory) records() []types.ShutdownRecord {
	out := h.cache.Values()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].At.Before(out[j].At)
	})
	return out
}
