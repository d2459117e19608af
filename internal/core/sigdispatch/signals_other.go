//go:build !unix

package sigdispatch

import "syscall"

func uncatchable(signum int) bool {
	return signum == int(syscall.SIGKILL)
}
