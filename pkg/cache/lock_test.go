package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

func TestLockSimple(t *testing.T) {
	target := filepath.Join(t.TempDir(), "objects")

	unlock, err := Lock(context.Background(), target)
	if err != nil {
		t.Fatalf("Failed to lock: %v", err)
	}
	if _, err := os.Stat(target + ".lock"); err != nil {
		t.Errorf("Lock file not created: %v", err)
	}
	if err := unlock(); err != nil {
		t.Errorf("Failed to unlock: %v", err)
	}
	if _, err := os.Stat(target + ".lock"); !os.IsNotExist(err) {
		t.Errorf("Lock file should be gone")
	}
}

func TestLockStale(t *testing.T) {
	target := filepath.Join(t.TempDir(), "stale")

	stalePid := 9999999
	for i := 32000; i < 60000; i++ {
		proc, _ := os.FindProcess(i)
		if err := proc.Signal(syscall.Signal(0)); err == syscall.ESRCH {
			stalePid = i
			break
		}
	}
	content := fmt.Sprintf("%s %d", time.Now().Format(time.RFC3339), stalePid)
	if err := os.WriteFile(target+".lock", []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	unlock, err := Lock(ctx, target)
	if err != nil {
		t.Fatalf("Failed to take over stale lock of pid %d: %v", stalePid, err)
	}
	unlock()
}

func TestLockGarbage(t *testing.T) {
	target := filepath.Join(t.TempDir(), "garbage")
	if err := os.WriteFile(target+".lock", []byte("nonsense"), 0644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	unlock, err := Lock(ctx, target)
	if err != nil {
		t.Fatalf("Failed to replace garbage lock: %v", err)
	}
	unlock()
}

func TestLockWaitCancelled(t *testing.T) {
	target := filepath.Join(t.TempDir(), "held")
	unlock, err := Lock(context.Background(), target)
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()

	// Our own PID is alive, so the second attempt must wait until the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if _, err := Lock(ctx, target); err == nil {
		t.Fatal("expected lock wait to be cancelled")
	}
}

func TestLockConcurrent(t *testing.T) {
	target := filepath.Join(t.TempDir(), "concurrent")
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		unlock, err := Lock(ctx, target)
		if err != nil {
			t.Errorf("G1 failed to lock: %v", err)
			return
		}
		time.Sleep(500 * time.Millisecond)
		unlock()
	}()

	go func() {
		defer wg.Done()
		time.Sleep(100 * time.Millisecond)
		start := time.Now()
		unlock, err := Lock(ctx, target)
		if err != nil {
			t.Errorf("G2 failed to lock: %v", err)
			return
		}
		if d := time.Since(start); d < 300*time.Millisecond {
			t.Errorf("G2 acquired lock too fast (%v), expected waiting for G1", d)
		}
		unlock()
	}()

	wg.Wait()
}

func TestLockSingleHolder(t *testing.T) {
	target := filepath.Join(t.TempDir(), "objects")
	saved := PollInterval
	PollInterval = time.Millisecond
	defer func() { PollInterval = saved }()

	var holders, overlaps atomic.Int32
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				unlock, err := Lock(context.Background(), target)
				if err != nil {
					t.Errorf("Failed to lock: %v", err)
					return
				}
				if holders.Add(1) > 1 {
					overlaps.Add(1)
				}
				time.Sleep(50 * time.Microsecond)
				holders.Add(-1)
				if err := unlock(); err != nil {
					t.Errorf("Failed to unlock: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if n := overlaps.Load(); n != 0 {
		t.Errorf("Lock held by more than one goroutine %d times", n)
	}
	if _, err := os.Stat(target + ".lock"); !os.IsNotExist(err) {
		t.Errorf("Lock file should be gone")
	}
}

func TestUnlockKeepsSuccessorLock(t *testing.T) {
	target := filepath.Join(t.TempDir(), "handover")

	unlock, err := Lock(context.Background(), target)
	if err != nil {
		t.Fatal(err)
	}
	// Someone replaced our lock; unlocking must not remove theirs.
	successor := fmt.Sprintf("%s %d other", time.Now().Format(time.RFC3339), os.Getpid())
	if err := os.WriteFile(target+".lock", []byte(successor), 0644); err != nil {
		t.Fatal(err)
	}
	if err := unlock(); err != nil {
		t.Fatalf("Failed to unlock: %v", err)
	}
	got, err := os.ReadFile(target + ".lock")
	if err != nil {
		t.Fatalf("Successor lock removed: %v", err)
	}
	if string(got) != successor {
		t.Errorf("Successor lock changed: %q", got)
	}
}

func TestEnsure(t *testing.T) {
	target := filepath.Join(t.TempDir(), "archive.tar.gz")

	var calls atomic.Int32
	fn := func() error {
		calls.Add(1)
		time.Sleep(100 * time.Millisecond)
		return os.WriteFile(target, []byte("done"), 0644)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := Ensure(context.Background(), target, fn); err != nil {
				t.Errorf("Ensure failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("Expected fn to be called once, got %d", n)
	}
}
