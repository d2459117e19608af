//go:build !unix

package lifecycle

// osController 不支持进程控制的平台
type osController struct{}

func (osController) Terminate(int) error { return ErrUnsupported }
func (osController) Kill(int) error { return ErrUnsupported }
func (osController) WaitNonBlocking(int) (bool, error) { return false, ErrUnsupported }
func (osController) Wait(int) error { return ErrUnsupported }
func (osController) SetPriority(int, int) error { return ErrUnsupported }
