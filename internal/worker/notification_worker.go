package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/notification"
	"github.com/spec-kit/helpdesk/internal/observability"
)

const (
	outcomeSent    = "sent"
	outcomeFailed  = "failed"
	outcomeDropped = "dropped"
)

// NotificationWorker drains a bounded queue of notifications into a sink on
// a single goroutine. Enqueueing never blocks.
type NotificationWorker struct {
	queue       chan notification.Notification
	sink        notification.Sink
	logger      *zap.Logger
	metrics     *observability.Metrics
	sendTimeout time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewNotificationWorker builds a worker. A non-positive queue size falls back to 1.
func NewNotificationWorker(
	sink notification.Sink,
	logger *zap.Logger,
	metrics *observability.Metrics,
	queueSize int,
	sendTimeout time.Duration,
) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		queue:       make(chan notification.Notification, queueSize),
		sink:        sink,
		logger:      logger,
		metrics:     metrics,
		sendTimeout: sendTimeout,
		stop:        make(chan struct{}),
	}
}

// Start launches the delivery loop. It returns immediately.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop delivers whatever is already queued and waits for the loop to exit.
func (w *NotificationWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	w.wg.Wait()
}

// Notify enqueues n and reports whether it was accepted. A full queue drops
// the notification.
func (w *NotificationWorker) Notify(n notification.Notification) bool {
	select {
	case w.queue <- n:
		return true
	default:
		w.metrics.RecordNotification(outcomeDropped)
		w.logger.Warn("notification queue full, dropping",
			zap.String("to", n.To),
			zap.String("subject", n.Subject))
		return false
	}
}

func (w *NotificationWorker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case n := <-w.queue:
			w.deliver(ctx, n)
		case <-w.stop:
			w.drain(ctx)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *NotificationWorker) drain(ctx context.Context) {
	for {
		select {
		case n := <-w.queue:
			w.deliver(ctx, n)
		default:
			return
		}
	}
}

func (w *NotificationWorker) deliver(ctx context.Context, n notification.Notification) {
	sendCtx := context.WithoutCancel(ctx)
	if w.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(sendCtx, w.sendTimeout)
		defer cancel()
	}
	if err := w.sink.Send(sendCtx, n); err != nil {
		w.metrics.RecordNotification(outcomeFailed)
		w.logger.Warn("notification delivery failed",
			zap.String("to", n.To),
			zap.String("subject", n.Subject),
			zap.Error(err))
		return
	}
	w.metrics.RecordNotification(outcomeSent)
}
