package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stephly/internal/log"
)

// Scanner is implemented by services.ReminderScanner.
type Scanner interface {
	Scan(ctx context.Context) (int, error)
}

// ReminderLoop runs a Scanner on start and then every interval.
type ReminderLoop struct {
	scanner  Scanner
	interval time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReminderLoop(scanner Scanner, interval time.Duration, logger *log.Logger) *ReminderLoop {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReminderLoop{
		scanner:  scanner,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Start begins the loop. Returns an error if already running.
func (l *ReminderLoop) Start(ctx context.Context) error {
	if l.interval <= 0 {
		return fmt.Errorf("invalid reminder interval %v", l.interval)
	}
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("reminder loop is already running")
	}
	l.running = true
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	stopCh, doneCh := l.stopCh, l.doneCh
	l.mu.Unlock()

	go l.run(ctx, stopCh, doneCh)

	l.logger.InfoContext(ctx, "Reminder loop started", "interval", l.interval.String())
	return nil
}

// Stop signals the loop and waits for the current scan to finish.
func (l *ReminderLoop) Stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = false
	stopCh, doneCh := l.stopCh, l.doneCh
	l.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		l.logger.InfoContext(ctx, "Reminder loop stopped")
		return nil
	case <-ctx.Done():
		l.logger.WarnContext(ctx, "Reminder loop stop timed out")
		return ctx.Err()
	}
}

func (l *ReminderLoop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *ReminderLoop) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.scan(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.scan(ctx)
		}
	}
}

func (l *ReminderLoop) scan(ctx context.Context) {
	start := time.Now()
	n, err := l.scanner.Scan(ctx)
	if err != nil {
		l.logger.ErrorContext(ctx, "Reminder scan failed", log.FieldError, err)
		return
	}
	l.logger.InfoContext(ctx, "Reminder scan completed",
		"created", n,
		log.FieldDuration, time.Since(start).Milliseconds())
}
