package stream

import (
	"context"

	"gitee.com/flycash/live-reminder-platform/internal/pkg/mqx"
	"github.com/ecodeclub/mq-api"
)

//go:generate mockgen -source=./producer.go -package=evtmocks -destination=../mocks/stream.mock.go -typed RescheduledEventProducer,CancelledEventProducer

type RescheduledEventProducer interface {
	Produce(ctx context.Context, evt RescheduledEvent) error
}

func NewRescheduledEventProducer(q mq.MQ) (RescheduledEventProducer, error) {
	return mqx.NewGeneralProducer[RescheduledEvent](q, RescheduledEventName)
}

type CancelledEventProducer interface {
	Produce(ctx context.Context, evt CancelledEvent) error
}

func NewCancelledEventProducer(q mq.MQ) (CancelledEventProducer, error) {
	return mqx.NewGeneralProducer[CancelledEvent](q, CancelledEventName)
}
