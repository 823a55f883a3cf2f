package commands

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/maksimkurb/keen-connectivity/src/internal/log"
)

// RunFunc is a long-running component loop. It returns nil on a clean exit.
type RunFunc func(ctx context.Context) error

// RunnerConfig configures a RestartableRunner.
type RunnerConfig struct {
	Name           string
	MaxRestarts    int           // 0 = unlimited restarts
	RestartBackoff time.Duration // default: 1s
	MaxBackoff     time.Duration // default: 30s
	StopTimeout    time.Duration // default: 30s
}

// RestartableRunner runs a component loop in its own goroutine and restarts
// it with exponential backoff when it fails or panics.
type RestartableRunner struct {
	cfg     RunnerConfig
	runFunc RunFunc

	mu           sync.RWMutex
	running      bool
	cancel       context.CancelFunc
	done         chan struct{}
	lastError    error
	restartCount int
}

// NewRestartableRunner creates a runner for runFunc.
func NewRestartableRunner(cfg RunnerConfig, runFunc RunFunc) *RestartableRunner {
	if cfg.RestartBackoff <= 0 {
		cfg.RestartBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.MaxBackoff < cfg.RestartBackoff {
		cfg.MaxBackoff = cfg.RestartBackoff
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 30 * time.Second
	}
	return &RestartableRunner{cfg: cfg, runFunc: runFunc}
}

// Name returns the runner name.
func (r *RestartableRunner) Name() string {
	return r.cfg.Name
}

// Start runs the loop in a goroutine until ctx is cancelled or Stop is called.
func (r *RestartableRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("%s is already running", r.cfg.Name)
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true
	r.restartCount = 0
	r.lastError = nil

	go r.runLoop(runCtx, r.done)
	return nil
}

// Stop cancels the loop and waits for it to return.
func (r *RestartableRunner) Stop() error {
	r.mu.RLock()
	cancel, done := r.cancel, r.done
	r.mu.RUnlock()

	if done == nil {
		return nil
	}
	cancel()

	timer := time.NewTimer(r.cfg.StopTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return fmt.Errorf("%s: timeout waiting for stop", r.cfg.Name)
	}
}

// Done is closed when the loop has returned for good. It is nil before Start.
func (r *RestartableRunner) Done() <-chan struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.done
}

// IsRunning reports whether the loop is still active.
func (r *RestartableRunner) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// LastError returns the error of the last run.
func (r *RestartableRunner) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastError
}

// RestartCount returns the number of restarts since Start.
func (r *RestartableRunner) RestartCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.restartCount
}

func (r *RestartableRunner) runLoop(ctx context.Context, done chan struct{}) {
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		close(done)
	}()

	backoff := r.cfg.RestartBackoff
	for {
		started := time.Now()
		err := r.runWithRecovery(ctx)

		r.mu.Lock()
		r.lastError = err
		r.mu.Unlock()

		if ctx.Err() != nil {
			log.Debugf("%s: stopped", r.cfg.Name)
			return
		}
		if err == nil {
			log.Infof("%s: exited cleanly", r.cfg.Name)
			return
		}

		r.mu.Lock()
		r.restartCount++
		restarts := r.restartCount
		r.mu.Unlock()

		if r.cfg.MaxRestarts > 0 && restarts > r.cfg.MaxRestarts {
			log.Errorf("%s: giving up after %d restarts, last error: %v", r.cfg.Name, r.cfg.MaxRestarts, err)
			return
		}

		// A run that outlived the longest backoff was healthy.
		if time.Since(started) > r.cfg.MaxBackoff {
			backoff = r.cfg.RestartBackoff
		}
		log.Errorf("%s: failed: %v, restarting in %v (restart #%d)", r.cfg.Name, err, backoff, restarts)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		backoff *= 2
		if backoff > r.cfg.MaxBackoff {
			backoff = r.cfg.MaxBackoff
		}
	}
}

func (r *RestartableRunner) runWithRecovery(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()
	return r.runFunc(ctx)
}
