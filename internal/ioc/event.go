package ioc

import (
	streamevt "gitee.com/flycash/live-reminder-platform/internal/event/stream"
	"gitee.com/flycash/live-reminder-platform/internal/service/planner"
	"github.com/ecodeclub/mq-api"
)

func InitRescheduledEventProducer(q mq.MQ) streamevt.RescheduledEventProducer {
	p, err := streamevt.NewRescheduledEventProducer(q)
	if err != nil {
		panic(err)
	}
	return p
}

func InitCancelledEventProducer(q mq.MQ) streamevt.CancelledEventProducer {
	p, err := streamevt.NewCancelledEventProducer(q)
	if err != nil {
		panic(err)
	}
	return p
}

func InitScheduleChangeConsumer(svc planner.Service, q mq.MQ) *streamevt.ScheduleChangeConsumer {
	c, err := streamevt.NewScheduleChangeConsumer(svc, q)
	if err != nil {
		panic(err)
	}
	return c
}
