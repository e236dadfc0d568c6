//go:build !unix

package process

import (
	"os"
	"os/exec"
)

func setProcessGroup(*exec.Cmd) {}

func ownsGroup(*exec.Cmd) bool { return false }

func killGroup(p *os.Process) error {
	return p.Kill()
}
