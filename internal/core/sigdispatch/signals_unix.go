//go:build unix

package sigdispatch

import "golang.org/x/sys/unix"

// uncatchable 不能安装处理函数的信号
func uncatchable(signum int) bool {
	return signum == int(unix.SIGKILL) || signum == int(unix.SIGSTOP)
}
