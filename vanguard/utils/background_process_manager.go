package utils

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BackgroundProcessManager owns every long-running goroutine in the bot and
// gives shutdown a single choke point.
type BackgroundProcessManager struct {
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	processes map[string]*processInfo
	mu        sync.Mutex
}

type processInfo struct {
	name   string
	cancel context.CancelFunc
}

func NewBackgroundProcessManager() *BackgroundProcessManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &BackgroundProcessManager{
		ctx:       ctx,
		cancel:    cancel,
		processes: make(map[string]*processInfo),
	}
}

// StartProcess launches fn as a named background process. Starting a name
// that is already running stops the old instance first. Panics are recovered
// and logged so one broken process cannot take the bot down.
func (bpm *BackgroundProcessManager) StartProcess(name string, fn func(ctx context.Context)) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	if _, exists := bpm.processes[name]; exists {
		slog.Warn("Process already exists, stopping existing one", slog.String("name", name))
		bpm.stopProcessLocked(name)
	}

	processCtx, processCancel := context.WithCancel(bpm.ctx)
	bpm.processes[name] = &processInfo{name: name, cancel: processCancel}

	bpm.wg.Add(1)
	go func() {
		defer bpm.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Background process panic",
					slog.String("process", name),
					slog.Any("panic", r))
			}
		}()

		slog.Info("Starting background process", slog.String("process", name))
		fn(processCtx)
		slog.Info("Background process ended", slog.String("process", name))
	}()
}

// StopProcess cancels a single named process.
func (bpm *BackgroundProcessManager) StopProcess(name string) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	bpm.stopProcessLocked(name)
}

func (bpm *BackgroundProcessManager) stopProcessLocked(name string) {
	if process, exists := bpm.processes[name]; exists {
		process.cancel()
		delete(bpm.processes, name)
		slog.Info("Stopped background process", slog.String("process", name))
	}
}

// Shutdown cancels everything and waits up to timeout for the processes to
// drain.
func (bpm *BackgroundProcessManager) Shutdown(timeout time.Duration) error {
	bpm.mu.Lock()
	count := len(bpm.processes)
	bpm.mu.Unlock()

	slog.Info("Shutting down background processes", slog.Int("process_count", count))
	bpm.cancel()

	done := make(chan struct{})
	go func() {
		bpm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("All background processes stopped gracefully")
		return nil
	case <-time.After(timeout):
		slog.Warn("Timeout waiting for background processes to stop",
			slog.Duration("timeout", timeout))
		return context.DeadlineExceeded
	}
}

// Context returns the manager's root context.
func (bpm *BackgroundProcessManager) Context() context.Context {
	return bpm.ctx
}
