//go:build unit

package stream

import (
	"context"
	"sync"
	"testing"
	"time"

	"gitee.com/flycash/live-reminder-platform/internal/domain"

	"github.com/ecodeclub/mq-api/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPlanner 记录收敛回调，供断言消费结果
type recordingPlanner struct {
	mu          sync.Mutex
	rescheduled []rescheduledCall
	cancelled   []int64
}

type rescheduledCall struct {
	streamID int64
	newStart time.Time
}

func (r *recordingPlanner) PlanFor(_ context.Context, _ int64, _ []domain.LeadTime, _ []domain.Subscriber) (int64, error) {
	return 0, nil
}

func (r *recordingPlanner) OnRescheduled(_ context.Context, streamID int64, newStart time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rescheduled = append(r.rescheduled, rescheduledCall{streamID: streamID, newStart: newStart})
	return nil
}

func (r *recordingPlanner) OnCancelled(_ context.Context, streamID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, streamID)
	return 1, nil
}

func (r *recordingPlanner) rescheduledCalls() []rescheduledCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]rescheduledCall(nil), r.rescheduled...)
}

func (r *recordingPlanner) cancelledCalls() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.cancelled...)
}

func TestScheduleChangeConsumer(t *testing.T) {
	t.Parallel()

	q := memory.NewMQ()
	require.NoError(t, q.CreateTopic(t.Context(), RescheduledEventName, 1))
	require.NoError(t, q.CreateTopic(t.Context(), CancelledEventName, 1))

	svc := &recordingPlanner{}
	consumer, err := NewScheduleChangeConsumer(svc, q)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	consumer.Start(ctx)

	rescheduledProducer, err := NewRescheduledEventProducer(q)
	require.NoError(t, err)
	cancelledProducer, err := NewCancelledEventProducer(q)
	require.NoError(t, err)

	newStart := time.Date(2025, 6, 2, 20, 0, 0, 0, time.Local)
	require.NoError(t, rescheduledProducer.Produce(t.Context(), RescheduledEvent{
		EventID:      "evt-1",
		StreamID:     100,
		OldStartTime: newStart.Add(-2 * time.Hour).UnixMilli(),
		NewStartTime: newStart.UnixMilli(),
	}))
	require.NoError(t, cancelledProducer.Produce(t.Context(), CancelledEvent{
		EventID:  "evt-2",
		StreamID: 200,
	}))

	assert.Eventually(t, func() bool {
		return len(svc.rescheduledCalls()) == 1 && len(svc.cancelledCalls()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	calls := svc.rescheduledCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(100), calls[0].streamID)
	assert.Equal(t, newStart.UnixMilli(), calls[0].newStart.UnixMilli())
	assert.Equal(t, []int64{200}, svc.cancelledCalls())
}
