//go:build unit

package planner

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"gitee.com/flycash/live-reminder-platform/internal/domain"
	"gitee.com/flycash/live-reminder-platform/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStreamRepo 内存版直播仓储，只实现编排用到的读路径
type fakeStreamRepo struct {
	mu      sync.RWMutex
	streams map[int64]domain.Stream
}

func newFakeStreamRepo(streams ...domain.Stream) *fakeStreamRepo {
	repo := &fakeStreamRepo{streams: make(map[int64]domain.Stream)}
	for _, s := range streams {
		repo.streams[s.ID] = s
	}
	return repo
}

func (f *fakeStreamRepo) Create(_ context.Context, stream domain.Stream) (domain.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streams[stream.ID] = stream
	return stream, nil
}

func (f *fakeStreamRepo) GetByID(_ context.Context, id int64) (domain.Stream, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.streams[id]
	if !ok {
		return domain.Stream{}, fmt.Errorf("%w: id %d", errs.ErrStreamNotFound, id)
	}
	return s, nil
}

func (f *fakeStreamRepo) Reschedule(_ context.Context, id int64, newStart time.Time, version int, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.streams[id]
	if !ok || s.Version != version {
		return fmt.Errorf("%w: id %d", errs.ErrStreamVersionMismatch, id)
	}
	s.ScheduledStartTime = newStart
	s.Version++
	f.streams[id] = s
	return nil
}

func (f *fakeStreamRepo) CASStatus(_ context.Context, id int64, from, to domain.StreamStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.streams[id]
	if !ok || s.Status != from {
		return fmt.Errorf("%w: id %d", errs.ErrStreamVersionMismatch, id)
	}
	s.Status = to
	s.Version++
	f.streams[id] = s
	return nil
}

func (f *fakeStreamRepo) UpdateActualViewers(_ context.Context, id, viewers int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.streams[id]
	s.ActualViewers = viewers
	f.streams[id] = s
	return nil
}

// fakeReminderRepo 内存版提醒仓储，按 (用户, 直播, 提前量) 唯一键去重
type fakeReminderRepo struct {
	mu          sync.Mutex
	nextID      int64
	obligations map[string]domain.ReminderObligation

	resyncCalls []resyncCall
	cancelCalls []cancelAllCall
}

type resyncCall struct {
	streamID int64
	newStart time.Time
	now      time.Time
}

type cancelAllCall struct {
	streamID int64
	reason   string
}

func newFakeReminderRepo() *fakeReminderRepo {
	return &fakeReminderRepo{obligations: make(map[string]domain.ReminderObligation)}
}

func (f *fakeReminderRepo) key(userID, streamID int64, leadTime domain.LeadTime) string {
	return fmt.Sprintf("%d-%d-%s", userID, streamID, leadTime)
}

func (f *fakeReminderRepo) Create(_ context.Context, ob domain.ReminderObligation) (domain.ReminderObligation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := f.key(ob.UserID, ob.StreamID, ob.LeadTime)
	if _, ok := f.obligations[k]; ok {
		return domain.ReminderObligation{}, fmt.Errorf("%w: %s", errs.ErrObligationDuplicate, k)
	}
	f.nextID++
	ob.ID = f.nextID
	ob.Version = 1
	f.obligations[k] = ob
	return ob, nil
}

func (f *fakeReminderRepo) BatchCreate(_ context.Context, obs []domain.ReminderObligation) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var created int64
	for _, ob := range obs {
		k := f.key(ob.UserID, ob.StreamID, ob.LeadTime)
		if _, ok := f.obligations[k]; ok {
			continue
		}
		f.nextID++
		ob.ID = f.nextID
		ob.Version = 1
		f.obligations[k] = ob
		created++
	}
	return created, nil
}

func (f *fakeReminderRepo) GetByID(_ context.Context, id int64) (domain.ReminderObligation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ob := range f.obligations {
		if ob.ID == id {
			return ob, nil
		}
	}
	return domain.ReminderObligation{}, fmt.Errorf("%w: id %d", errs.ErrObligationNotFound, id)
}

func (f *fakeReminderRepo) GetByKey(_ context.Context, userID, streamID int64, leadTime domain.LeadTime) (domain.ReminderObligation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ob, ok := f.obligations[f.key(userID, streamID, leadTime)]
	if !ok {
		return domain.ReminderObligation{}, fmt.Errorf("%w", errs.ErrObligationNotFound)
	}
	return ob, nil
}

func (f *fakeReminderRepo) FindByStream(_ context.Context, streamID int64) ([]domain.ReminderObligation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []domain.ReminderObligation
	for _, ob := range f.obligations {
		if ob.StreamID == streamID {
			res = append(res, ob)
		}
	}
	return res, nil
}

func (f *fakeReminderRepo) FindDue(_ context.Context, now time.Time, grace time.Duration, limit int) ([]domain.ReminderObligation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []domain.ReminderObligation
	for _, ob := range f.obligations {
		if ob.Status != domain.ObligationStatusPending {
			continue
		}
		if ob.FireTime.After(now) || ob.FireTime.Before(now.Add(-grace)) {
			continue
		}
		if len(res) >= limit {
			break
		}
		res = append(res, ob)
	}
	return res, nil
}

func (f *fakeReminderRepo) Claim(_ context.Context, id int64, version int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, ob := range f.obligations {
		if ob.ID != id {
			continue
		}
		if ob.Version != version || ob.Status != domain.ObligationStatusPending {
			return fmt.Errorf("%w: id %d", errs.ErrObligationVersionMismatch, id)
		}
		ob.Status = domain.ObligationStatusSending
		ob.Version++
		f.obligations[k] = ob
		return nil
	}
	return fmt.Errorf("%w: id %d", errs.ErrObligationNotFound, id)
}

func (f *fakeReminderRepo) MarkSent(_ context.Context, id int64, attempts int8, sentTime time.Time) error {
	return f.finish(id, domain.ObligationStatusSent, attempts, "", sentTime)
}

func (f *fakeReminderRepo) MarkFailed(_ context.Context, id int64, attempts int8) error {
	return f.finish(id, domain.ObligationStatusFailed, attempts, "", time.Time{})
}

func (f *fakeReminderRepo) Cancel(_ context.Context, id int64, reason string) error {
	return f.finish(id, domain.ObligationStatusCanceled, 0, reason, time.Time{})
}

func (f *fakeReminderRepo) finish(id int64, status domain.ObligationStatus, attempts int8, reason string, sentTime time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, ob := range f.obligations {
		if ob.ID != id {
			continue
		}
		ob.Status = status
		if attempts > 0 {
			ob.Attempts = attempts
		}
		ob.CancelReason = reason
		ob.SentTime = sentTime
		ob.Version++
		f.obligations[k] = ob
		return nil
	}
	return fmt.Errorf("%w: id %d", errs.ErrObligationNotFound, id)
}

func (f *fakeReminderRepo) CancelAllPending(_ context.Context, streamID int64, reason string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls = append(f.cancelCalls, cancelAllCall{streamID: streamID, reason: reason})
	var cnt int64
	for k, ob := range f.obligations {
		if ob.StreamID != streamID || ob.Status != domain.ObligationStatusPending {
			continue
		}
		ob.Status = domain.ObligationStatusCanceled
		ob.CancelReason = reason
		ob.Version++
		f.obligations[k] = ob
		cnt++
	}
	return cnt, nil
}

func (f *fakeReminderRepo) MarkMissedWindowAsCanceled(_ context.Context, deadline time.Time, _ int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var cnt int64
	for k, ob := range f.obligations {
		if ob.Status != domain.ObligationStatusPending || !ob.FireTime.Before(deadline) {
			continue
		}
		ob.Status = domain.ObligationStatusCanceled
		ob.CancelReason = domain.CancelReasonMissedWindow
		ob.Version++
		f.obligations[k] = ob
		cnt++
	}
	return cnt, nil
}

func (f *fakeReminderRepo) MarkTimeoutSendingAsFailed(_ context.Context, _ time.Time, _ int) (int64, error) {
	return 0, nil
}

func (f *fakeReminderRepo) ResyncFireTimes(_ context.Context, streamID int64, newStart, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resyncCalls = append(f.resyncCalls, resyncCall{streamID: streamID, newStart: newStart, now: now})
	for k, ob := range f.obligations {
		if ob.StreamID != streamID || ob.Status != domain.ObligationStatusPending {
			continue
		}
		ob.FireTime = ob.LeadTime.FireTimeFor(newStart)
		if !ob.FireTime.After(now) {
			ob.Status = domain.ObligationStatusCanceled
			ob.CancelReason = domain.CancelReasonRescheduledToPast
		}
		ob.Version++
		f.obligations[k] = ob
	}
	return nil
}

func (f *fakeReminderRepo) all() []domain.ReminderObligation {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make([]domain.ReminderObligation, 0, len(f.obligations))
	for _, ob := range f.obligations {
		res = append(res, ob)
	}
	return res
}

func TestPlannerService_PlanFor(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local)
	start := now.Add(48 * time.Hour)

	subscribers := []domain.Subscriber{
		{UserID: 1, UserName: "阿珍", Receiver: "13800000001"},
		{UserID: 2, UserName: "阿强", Receiver: "13800000002"},
	}

	t.Run("全部提前量都在未来_创建订阅者乘提前量条提醒", func(t *testing.T) {
		t.Parallel()
		streamRepo := newFakeStreamRepo(domain.Stream{
			ID: 100, Status: domain.StreamStatusScheduled, ScheduledStartTime: start, Version: 1,
		})
		reminderRepo := newFakeReminderRepo()
		svc := NewServiceWithNowFunc(streamRepo, reminderRepo, func() time.Time { return now })

		created, err := svc.PlanFor(t.Context(), 100, nil, subscribers)
		require.NoError(t, err)
		assert.Equal(t, int64(6), created)

		for _, ob := range reminderRepo.all() {
			assert.Equal(t, domain.ObligationStatusPending, ob.Status)
			assert.Equal(t, ob.LeadTime.FireTimeFor(start), ob.FireTime)
		}
	})

	t.Run("开播在即_已过触发时间的提前量被跳过", func(t *testing.T) {
		t.Parallel()
		// 开播在 30 分钟后，24H 和 1H 的触发时间都已经过去
		streamRepo := newFakeStreamRepo(domain.Stream{
			ID: 101, Status: domain.StreamStatusScheduled, ScheduledStartTime: now.Add(30 * time.Minute), Version: 1,
		})
		reminderRepo := newFakeReminderRepo()
		svc := NewServiceWithNowFunc(streamRepo, reminderRepo, func() time.Time { return now })

		created, err := svc.PlanFor(t.Context(), 101, nil, subscribers)
		require.NoError(t, err)
		assert.Equal(t, int64(2), created)
		for _, ob := range reminderRepo.all() {
			assert.Equal(t, domain.LeadTimeFifteenMinutes, ob.LeadTime)
		}
	})

	t.Run("重复编排_唯一键冲突幂等跳过", func(t *testing.T) {
		t.Parallel()
		streamRepo := newFakeStreamRepo(domain.Stream{
			ID: 102, Status: domain.StreamStatusScheduled, ScheduledStartTime: start, Version: 1,
		})
		reminderRepo := newFakeReminderRepo()
		svc := NewServiceWithNowFunc(streamRepo, reminderRepo, func() time.Time { return now })

		created, err := svc.PlanFor(t.Context(), 102, nil, subscribers)
		require.NoError(t, err)
		assert.Equal(t, int64(6), created)

		// 加一个新订阅者再编排一次，只有新订阅者的提醒会被创建
		again, err := svc.PlanFor(t.Context(), 102, nil, append(subscribers, domain.Subscriber{
			UserID: 3, UserName: "阿花", Receiver: "13800000003",
		}))
		require.NoError(t, err)
		assert.Equal(t, int64(3), again)
		assert.Len(t, reminderRepo.all(), 9)
	})

	t.Run("指定提前量_只创建指定种类", func(t *testing.T) {
		t.Parallel()
		streamRepo := newFakeStreamRepo(domain.Stream{
			ID: 103, Status: domain.StreamStatusScheduled, ScheduledStartTime: start, Version: 1,
		})
		reminderRepo := newFakeReminderRepo()
		svc := NewServiceWithNowFunc(streamRepo, reminderRepo, func() time.Time { return now })

		created, err := svc.PlanFor(t.Context(), 103, []domain.LeadTime{domain.LeadTimeOneHour}, subscribers)
		require.NoError(t, err)
		assert.Equal(t, int64(2), created)
	})

	t.Run("直播不在排期状态_拒绝编排", func(t *testing.T) {
		t.Parallel()
		streamRepo := newFakeStreamRepo(domain.Stream{
			ID: 104, Status: domain.StreamStatusLive, ScheduledStartTime: start, Version: 1,
		})
		svc := NewServiceWithNowFunc(streamRepo, newFakeReminderRepo(), func() time.Time { return now })

		_, err := svc.PlanFor(t.Context(), 104, nil, subscribers)
		assert.ErrorIs(t, err, errs.ErrInvalidStreamState)
	})

	t.Run("直播不存在", func(t *testing.T) {
		t.Parallel()
		svc := NewServiceWithNowFunc(newFakeStreamRepo(), newFakeReminderRepo(), func() time.Time { return now })

		_, err := svc.PlanFor(t.Context(), 999, nil, subscribers)
		assert.ErrorIs(t, err, errs.ErrStreamNotFound)
	})

	t.Run("未知提前量_参数非法", func(t *testing.T) {
		t.Parallel()
		streamRepo := newFakeStreamRepo(domain.Stream{
			ID: 105, Status: domain.StreamStatusScheduled, ScheduledStartTime: start, Version: 1,
		})
		svc := NewServiceWithNowFunc(streamRepo, newFakeReminderRepo(), func() time.Time { return now })

		_, err := svc.PlanFor(t.Context(), 105, []domain.LeadTime{domain.LeadTime("3D")}, subscribers)
		assert.ErrorIs(t, err, errs.ErrInvalidParameter)
	})

	t.Run("订阅者为空_直接返回零", func(t *testing.T) {
		t.Parallel()
		svc := NewServiceWithNowFunc(newFakeStreamRepo(), newFakeReminderRepo(), func() time.Time { return now })

		created, err := svc.PlanFor(t.Context(), 100, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(0), created)
	})
}

func TestPlannerService_OnRescheduled(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local)
	streamRepo := newFakeStreamRepo(domain.Stream{
		ID: 200, Status: domain.StreamStatusScheduled, ScheduledStartTime: now.Add(48 * time.Hour), Version: 1,
	})
	reminderRepo := newFakeReminderRepo()
	svc := NewServiceWithNowFunc(streamRepo, reminderRepo, func() time.Time { return now })

	_, err := svc.PlanFor(t.Context(), 200, nil, []domain.Subscriber{
		{UserID: 1, UserName: "阿珍", Receiver: "13800000001"},
	})
	require.NoError(t, err)

	// 改期到 40 分钟后，24H 和 1H 的提醒重算后落在过去，应被取消
	newStart := now.Add(40 * time.Minute)
	require.NoError(t, svc.OnRescheduled(t.Context(), 200, newStart))
	require.Len(t, reminderRepo.resyncCalls, 1)
	assert.Equal(t, int64(200), reminderRepo.resyncCalls[0].streamID)

	for _, ob := range reminderRepo.all() {
		if ob.LeadTime == domain.LeadTimeFifteenMinutes {
			assert.Equal(t, domain.ObligationStatusPending, ob.Status)
			assert.Equal(t, newStart.Add(-15*time.Minute), ob.FireTime)
			continue
		}
		assert.Equal(t, domain.ObligationStatusCanceled, ob.Status)
		assert.Equal(t, domain.CancelReasonRescheduledToPast, ob.CancelReason)
	}
}

func TestPlannerService_OnCancelled(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local)
	streamRepo := newFakeStreamRepo(domain.Stream{
		ID: 300, Status: domain.StreamStatusScheduled, ScheduledStartTime: now.Add(48 * time.Hour), Version: 1,
	})
	reminderRepo := newFakeReminderRepo()
	svc := NewServiceWithNowFunc(streamRepo, reminderRepo, func() time.Time { return now })

	_, err := svc.PlanFor(t.Context(), 300, nil, []domain.Subscriber{
		{UserID: 1, UserName: "阿珍", Receiver: "13800000001"},
		{UserID: 2, UserName: "阿强", Receiver: "13800000002"},
	})
	require.NoError(t, err)

	cancelled, err := svc.OnCancelled(t.Context(), 300)
	require.NoError(t, err)
	assert.Equal(t, int64(6), cancelled)

	for _, ob := range reminderRepo.all() {
		assert.Equal(t, domain.ObligationStatusCanceled, ob.Status)
		assert.Equal(t, domain.CancelReasonStreamCanceled, ob.CancelReason)
	}

	// 已经全部取消后再次取消，幂等返回零
	cancelled, err = svc.OnCancelled(t.Context(), 300)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cancelled)
}
