package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repair-desk/internal/messaging"
)

type recordingMailer struct {
	mu    sync.Mutex
	sent  []string
	block chan struct{}
	err   error
}

func (m *recordingMailer) Send(_ context.Context, email messaging.Email) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, email.To)
	return m.err
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) RecordNotification(kind string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	outcome := "failed"
	if ok {
		outcome = "delivered"
	}
	r.counts[kind+"/"+outcome]++
}

func TestMailQueue_RecordsDeliveryNotEnqueue(t *testing.T) {
	mailer := &recordingMailer{block: make(chan struct{})}
	recorder := &countingRecorder{}
	q := NewMailQueue(mailer, 1, 1, time.Second, recorder, nil)

	require.NoError(t, q.Send(context.Background(), messaging.Email{Kind: "ticket.created", To: "a@x.test"}))
	assert.ErrorIs(t, q.Send(context.Background(), messaging.Email{Kind: "ticket.created", To: "b@x.test"}), ErrQueueFull)
	recorder.mu.Lock()
	assert.Equal(t, map[string]int{"ticket.created/failed": 1}, recorder.counts)
	recorder.mu.Unlock()

	q.Start()
	close(mailer.block)
	q.Stop()
	assert.Equal(t, map[string]int{"ticket.created/failed": 1, "ticket.created/delivered": 1}, recorder.counts)
}

func TestMailQueue_DeliversBeforeStopReturns(t *testing.T) {
	mailer := &recordingMailer{}
	q := NewMailQueue(mailer, 8, 2, time.Second, nil, nil)
	q.Start()

	for _, to := range []string{"a@x.test", "b@x.test", "c@x.test"} {
		require.NoError(t, q.Send(context.Background(), messaging.Email{To: to}))
	}
	q.Stop()

	assert.ElementsMatch(t, []string{"a@x.test", "b@x.test", "c@x.test"}, mailer.sent)
	assert.ErrorIs(t, q.Send(context.Background(), messaging.Email{To: "late@x.test"}), ErrQueueClosed)
	assert.NotPanics(t, q.Stop)
}

func TestMailQueue_FullQueueRejects(t *testing.T) {
	mailer := &recordingMailer{block: make(chan struct{})}
	q := NewMailQueue(mailer, 1, 1, 0, nil, nil)

	require.NoError(t, q.Send(context.Background(), messaging.Email{To: "a@x.test"}))
	assert.ErrorIs(t, q.Send(context.Background(), messaging.Email{To: "b@x.test"}), ErrQueueFull)

	q.Start()
	close(mailer.block)
	q.Stop()
	assert.Equal(t, []string{"a@x.test"}, mailer.sent)
}

func TestMailQueue_DeliveryErrorsAreSwallowed(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("relay down")}
	recorder := &countingRecorder{}
	q := NewMailQueue(mailer, 2, 1, time.Second, recorder, nil)
	q.Start()
	require.NoError(t, q.Send(context.Background(), messaging.Email{Kind: "ticket.created", To: "a@x.test"}))
	q.Stop()
	assert.Len(t, mailer.sent, 1)
	assert.Equal(t, map[string]int{"ticket.created/failed": 1}, recorder.counts)
}
