package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// PollInterval is how long Lock sleeps between attempts on a live lock.
var PollInterval = 200 * time.Millisecond

// Lock takes an exclusive lock on target by linking target+".lock" into
// place, fully written, holding a timestamp, our PID and a token. A lock
// whose PID is dead is treated as stale and removed. Lock waits for live
// holders until ctx is done. The returned unlock only removes the lock file
// while it still holds our token.
func Lock(ctx context.Context, target string) (func() error, error) {
	lockFile := target + ".lock"

	if err := os.MkdirAll(filepath.Dir(lockFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent dir for lock: %w", err)
	}

	content := []byte(fmt.Sprintf("%s %d %s", time.Now().Format(time.RFC3339), os.Getpid(), uuid.NewString()))

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("waiting for lock %s: %w", lockFile, err)
		}

		err := createLock(lockFile, content)
		if err == nil {
			return func() error {
				return removeIfOwned(lockFile, content)
			}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}

		held, err := os.ReadFile(lockFile)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read lock %s: %w", lockFile, err)
		}
		if !holderAlive(held) {
			// Dead holder or garbage content: nobody can ever release it.
			removeIfOwned(lockFile, held)
			continue
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for lock %s: %w", lockFile, ctx.Err())
		case <-time.After(PollInterval):
		}
	}
}

// createLock writes content to a temp file and hard links it to lockFile,
// so the lock never exists half written. It fails with an os.ErrExist error
// while another holder has the lock.
func createLock(lockFile string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(lockFile), filepath.Base(lockFile)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to lock file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write to lock file: %w", err)
	}
	return os.Link(tmp.Name(), lockFile)
}

// removeIfOwned removes lockFile when its content still equals content.
func removeIfOwned(lockFile string, content []byte) error {
	current, err := os.ReadFile(lockFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !bytes.Equal(current, content) {
		return nil
	}
	if err := os.Remove(lockFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func holderAlive(content []byte) bool {
	pid, err := parseLockPid(content)
	return err == nil && isPidAlive(pid)
}

func parseLockPid(content []byte) (int, error) {
	parts := strings.Fields(string(content))
	if len(parts) < 2 {
		return 0, fmt.Errorf("malformed lock content %q", content)
	}
	return strconv.Atoi(parts[1])
}

func isPidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	if errors.Is(err, syscall.ESRCH) || errors.Is(err, os.ErrProcessDone) {
		return false
	}
	// EPERM: the process exists but belongs to someone else.
	return true
}
