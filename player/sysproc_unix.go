//go:build !windows

package player

import (
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/vesper-player/vesper/where"
)

func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid: true,
	}
}

func killProcess(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	// the whole group, mpv may fork helpers
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	return cmd.Process.Kill()
}

func newEndpoint() (string, error) {
	random := make([]byte, 4)
	if _, err := rand.Read(random); err != nil {
		return "", err
	}

	return filepath.Join(where.Temp(), fmt.Sprintf("ipc-%x.sock", random)), nil
}

func dialEndpoint(endpoint string) (io.ReadWriteCloser, error) {
	return net.DialTimeout("unix", endpoint, time.Second)
}

func removeEndpoint(endpoint string) {
	_ = os.Remove(endpoint)
}
