/*
DESCRIPTION
  supervisor.go translates OS signals and an optional wall-clock timeout
  into context cancellation for a conversion run, and pings systemd's
  watchdog while the run is alive so an external supervisor can detect a
  wedged process even if it never receives a signal.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package cancel provides Supervisor, which turns SIGINT/SIGTERM and an
// optional timeout into context cancellation, and reports liveness to
// systemd's watchdog while active.
package cancel

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
)

// ExitTimeout is the exit code a caller should return when a run is
// terminated because its configured timeout elapsed, distinguishing a
// deliberate deadline from a signal-driven or error-driven exit.
const ExitTimeout = 99

// Supervisor owns a cancellable context for the lifetime of one
// conversion run.
type Supervisor struct {
	ctx     context.Context
	cancel  context.CancelFunc
	signals chan os.Signal

	watchdogStop chan struct{}
}

// New returns a Supervisor whose context is canceled on SIGINT, SIGTERM,
// or after timeout elapses (a zero timeout disables the deadline). The
// caller must call Stop when the run completes.
func New(timeout time.Duration) *Supervisor {
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	s := &Supervisor{
		ctx:     ctx,
		cancel:  cancel,
		signals: make(chan os.Signal, 1),
	}
	signal.Notify(s.signals, syscall.SIGINT, syscall.SIGTERM)
	go s.watchSignals()

	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		s.watchdogStop = make(chan struct{})
		go s.pingWatchdog(interval / 2)
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	return s
}

// Context returns the Supervisor's context, canceled on signal, timeout,
// or Stop.
func (s *Supervisor) Context() context.Context { return s.ctx }

// TimedOut reports whether the context was canceled because the
// configured timeout elapsed, as opposed to a signal or explicit Stop.
func (s *Supervisor) TimedOut() bool {
	return s.ctx.Err() == context.DeadlineExceeded
}

func (s *Supervisor) watchSignals() {
	select {
	case <-s.signals:
		s.cancel()
	case <-s.ctx.Done():
	}
}

func (s *Supervisor) pingWatchdog(interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		case <-s.watchdogStop:
			return
		case <-s.ctx.Done():
			return
		}
	}
}

// Stop releases the Supervisor's resources: it stops watching signals,
// stops the watchdog pinger and cancels the context if it has not
// already been canceled.
func (s *Supervisor) Stop() {
	signal.Stop(s.signals)
	if s.watchdogStop != nil {
		close(s.watchdogStop)
	}
	s.cancel()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
}
