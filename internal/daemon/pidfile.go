package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const pidFilename = "procgate.pid"

// ErrAlreadyRunning is returned by WritePID when a live process owns the
// PID file.
var ErrAlreadyRunning = errors.New("procgate is already running")

// WritePID claims dataDir/procgate.pid for the current process. A file left
// behind by a dead process is replaced; one held by a live process is not.
func WritePID(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory for PID file: %w", err)
	}

	if pid, err := ReadPID(dataDir); err == nil && pid != os.Getpid() && isProcessAlive(pid) {
		return fmt.Errorf("%w (PID %d, file %s)", ErrAlreadyRunning, pid, pidPath(dataDir))
	}

	tmp, err := os.CreateTemp(dataDir, pidFilename+".*")
	if err != nil {
		return fmt.Errorf("creating PID file: %w", err)
	}
	_, werr := tmp.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing PID file: %w", err)
	}
	if err := os.Rename(tmp.Name(), pidPath(dataDir)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("installing PID file: %w", err)
	}
	return nil
}

// ReadPID returns the PID recorded in dataDir.
func ReadPID(dataDir string) (int, error) {
	data, err := os.ReadFile(pidPath(dataDir))
	if err != nil {
		return 0, fmt.Errorf("reading PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("PID file %s holds %q, not a process id", pidPath(dataDir), strings.TrimSpace(string(data)))
	}
	return pid, nil
}

// RemovePID deletes the PID file. A missing file is not an error.
func RemovePID(dataDir string) error {
	if err := os.Remove(pidPath(dataDir)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing PID file: %w", err)
	}
	return nil
}

// releasePID removes the PID file only if it still names this process.
func releasePID(dataDir string) error {
	pid, err := ReadPID(dataDir)
	if err != nil || pid != os.Getpid() {
		return nil
	}
	return RemovePID(dataDir)
}

// IsRunning reports whether the PID file names a live process.
func IsRunning(dataDir string) bool {
	pid, err := ReadPID(dataDir)
	return err == nil && isProcessAlive(pid)
}

// isProcessAlive tests pid with signal 0. EPERM means the process exists
// but belongs to another user.
func isProcessAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

func pidPath(dataDir string) string {
	return filepath.Join(dataDir, pidFilename)
}
