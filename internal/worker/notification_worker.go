package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-desk/internal/messaging"
)

// ErrQueueFull is returned when the outbound mail queue has no free slot.
var ErrQueueFull = errors.New("mail queue is full")

// ErrQueueClosed is returned by Send after Stop.
var ErrQueueClosed = errors.New("mail queue is closed")

// DeliveryRecorder receives the final outcome of each email.
type DeliveryRecorder interface {
	RecordNotification(kind string, ok bool)
}

// MailQueue delivers email on background goroutines so request handlers do
// not wait on the SMTP relay. It satisfies messaging.Mailer.
type MailQueue struct {
	next        messaging.Mailer
	jobs        chan messaging.Email
	workers     int
	sendTimeout time.Duration
	recorder    DeliveryRecorder
	logger      *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewMailQueue wraps next with a buffered queue of the given size. recorder
// may be nil.
func NewMailQueue(next messaging.Mailer, size, workers int, sendTimeout time.Duration, recorder DeliveryRecorder, logger *zap.Logger) *MailQueue {
	if size <= 0 {
		size = 64
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailQueue{
		next:        next,
		jobs:        make(chan messaging.Email, size),
		workers:     workers,
		sendTimeout: sendTimeout,
		recorder:    recorder,
		logger:      logger,
	}
}

// Start launches the delivery goroutines.
func (q *MailQueue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.run()
	}
}

// Send enqueues email without blocking. A rejected email is recorded as failed.
func (q *MailQueue) Send(_ context.Context, email messaging.Email) error {
	err := q.enqueue(email)
	if err != nil {
		q.record(email.Kind, false)
	}
	return err
}

func (q *MailQueue) enqueue(email messaging.Email) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- email:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new mail and waits for queued mail to be delivered.
func (q *MailQueue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *MailQueue) run() {
	defer q.wg.Done()
	for email := range q.jobs {
		q.deliver(email)
	}
}

func (q *MailQueue) deliver(email messaging.Email) {
	ctx := context.Background()
	if q.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.sendTimeout)
		defer cancel()
	}
	err := q.next.Send(ctx, email)
	q.record(email.Kind, err == nil)
	if err != nil {
		q.logger.Warn("email delivery failed", zap.String("to", email.To), zap.String("subject", email.Subject), zap.Error(err))
		return
	}
	q.logger.Debug("email delivered", zap.String("to", email.To))
}

func (q *MailQueue) record(kind string, ok bool) {
	if q.recorder != nil {
		q.recorder.RecordNotification(kind, ok)
	}
}
