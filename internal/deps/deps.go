package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Requirement defines an external dependency tonearm relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := resolveBinary(cmd)
		if err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckFFmpeg reports whether the configured ffmpeg binary can be executed.
// An explicit path is checked directly; a bare name resolves through PATH.
func CheckFFmpeg(binary string) Status {
	status := CheckBinaries([]Requirement{{
		Name:        "FFmpeg",
		Command:     binary,
		Description: "Used for loudness analysis, encoding, and tagging",
	}})
	return status[0]
}

func resolveBinary(command string) (string, error) {
	if strings.ContainsRune(command, os.PathSeparator) {
		info, err := os.Stat(command)
		if err != nil {
			return "", err
		}
		if !isExecutable(info) {
			return "", fmt.Errorf("%s is not executable", command)
		}
		abs, err := filepath.Abs(command)
		if err != nil {
			return "", err
		}
		return abs, nil
	}
	return exec.LookPath(command)
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
