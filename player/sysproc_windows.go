//go:build windows

package player

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
)

const createNoWindow = 0x08000000

func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: createNoWindow}
}

func killProcess(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

func newEndpoint() (string, error) {
	random := make([]byte, 4)
	if _, err := rand.Read(random); err != nil {
		return "", err
	}

	return fmt.Sprintf(`\\.\pipe\vesper-%x`, random), nil
}

// dialEndpoint opens the named pipe mpv serves its IPC on.
func dialEndpoint(endpoint string) (io.ReadWriteCloser, error) {
	return os.OpenFile(endpoint, os.O_RDWR, 0)
}

func removeEndpoint(string) {}
