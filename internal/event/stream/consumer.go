package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gitee.com/flycash/live-reminder-platform/internal/service/planner"
	"github.com/ecodeclub/mq-api"
	"github.com/gotomicro/ego/core/elog"
)

// ScheduleChangeConsumer 消费直播排期变更事件，驱动提醒收敛。
// 改期和取消在写库事务里已经处理过提醒，这里是给旁路订阅方
// （比如多活部署里没有执行写操作的实例）用的兜底收敛路径，
// ResyncFireTimes 和 CancelAllPending 都是幂等的，重复消费无害
type ScheduleChangeConsumer struct {
	svc         planner.Service
	rescheduled mq.Consumer
	cancelled   mq.Consumer
	logger      *elog.Component
}

func NewScheduleChangeConsumer(svc planner.Service, q mq.MQ) (*ScheduleChangeConsumer, error) {
	const groupID = "reminder-planner"
	rescheduled, err := q.Consumer(RescheduledEventName, groupID)
	if err != nil {
		return nil, err
	}
	cancelled, err := q.Consumer(CancelledEventName, groupID)
	if err != nil {
		return nil, err
	}
	return &ScheduleChangeConsumer{
		svc:         svc,
		rescheduled: rescheduled,
		cancelled:   cancelled,
		logger:      elog.DefaultLogger,
	}, nil
}

func (c *ScheduleChangeConsumer) Start(ctx context.Context) {
	go func() {
		for {
			if ctx.Err() != nil {
				return
			}
			er := c.ConsumeRescheduled(ctx)
			if er != nil {
				c.logger.Error("消费直播改期事件失败", elog.FieldErr(er))
			}
		}
	}()
	go func() {
		for {
			if ctx.Err() != nil {
				return
			}
			er := c.ConsumeCancelled(ctx)
			if er != nil {
				c.logger.Error("消费直播取消事件失败", elog.FieldErr(er))
			}
		}
	}()
}

func (c *ScheduleChangeConsumer) ConsumeRescheduled(ctx context.Context) error {
	msgCh, err := c.rescheduled.ConsumeChan(ctx)
	if err != nil {
		return fmt.Errorf("获取消息失败: %w", err)
	}

	var evt RescheduledEvent
	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return nil
			}
			if err = json.Unmarshal(msg.Value, &evt); err != nil {
				c.logger.Warn("解析消息失败",
					elog.FieldErr(err),
					elog.Any("msg", msg.Value))
				continue
			}
			err = c.svc.OnRescheduled(ctx, evt.StreamID, time.UnixMilli(evt.NewStartTime))
			if err != nil {
				c.logger.Warn("重算提醒触发时间失败",
					elog.FieldErr(err),
					elog.String("eventId", evt.EventID),
					elog.Int64("streamID", evt.StreamID))
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *ScheduleChangeConsumer) ConsumeCancelled(ctx context.Context) error {
	msgCh, err := c.cancelled.ConsumeChan(ctx)
	if err != nil {
		return fmt.Errorf("获取消息失败: %w", err)
	}

	var evt CancelledEvent
	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return nil
			}
			if err = json.Unmarshal(msg.Value, &evt); err != nil {
				c.logger.Warn("解析消息失败",
					elog.FieldErr(err),
					elog.Any("msg", msg.Value))
				continue
			}
			cancelled, er := c.svc.OnCancelled(ctx, evt.StreamID)
			if er != nil {
				c.logger.Warn("取消提醒失败",
					elog.FieldErr(er),
					elog.String("eventId", evt.EventID),
					elog.Int64("streamID", evt.StreamID))
				continue
			}
			c.logger.Info("直播取消，提醒已取消",
				elog.Int64("streamID", evt.StreamID),
				elog.Int64("cancelled", cancelled))
		case <-ctx.Done():
			return nil
		}
	}
}
