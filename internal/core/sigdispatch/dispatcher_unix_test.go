//go:build unix

package sigdispatch

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/dep2p/go-mobiletun/config"
)

// TestDispatcher_OSDelivery 测试真实 OS 信号经分发协程到达回调
func TestDispatcher_OSDelivery(t *testing.T) {
	d := New(config.DefaultSignalConfig())
	defer d.Close()

	got := make(chan int, 1)
	require.NoError(t, d.Register(int(unix.SIGUSR1), func(signum int) {
		got <- signum
	}))

	require.NoError(t, unix.Kill(os.Getpid(), unix.SIGUSR1))

	select {
	case signum := <-got:
		require.Equal(t, int(unix.SIGUSR1), signum)
	case <-time.After(2 * time.Second):
		t.Fatal("SIGUSR1 未送达")
	}

	require.NoError(t, d.Unregister(int(unix.SIGUSR1)))
	t.Log("✅ OS 信号分发正常")
}
