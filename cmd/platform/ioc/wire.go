//go:build wireinject

package ioc

import (
	"gitee.com/flycash/live-reminder-platform/internal/ioc"
	"gitee.com/flycash/live-reminder-platform/internal/repository"
	"gitee.com/flycash/live-reminder-platform/internal/repository/dao"
	"gitee.com/flycash/live-reminder-platform/internal/service/dispatcher"
	"gitee.com/flycash/live-reminder-platform/internal/service/planner"
	"gitee.com/flycash/live-reminder-platform/internal/service/stream"
	"gitee.com/flycash/live-reminder-platform/internal/service/template"
	streamweb "gitee.com/flycash/live-reminder-platform/internal/web/stream"
	templateweb "gitee.com/flycash/live-reminder-platform/internal/web/template"
	"github.com/google/wire"
)

var (
	BaseSet = wire.NewSet(
		ioc.InitDB,
		ioc.InitRedisClient,
		ioc.InitDistributedLock,
		ioc.InitIDGenerator,
		ioc.InitMQ,
		ioc.InitSmsClients,
		ioc.InitJwtAuth,
	)
	streamSvcSet = wire.NewSet(
		stream.NewRegistry,
		repository.NewStreamRepository,
		dao.NewStreamDAO,
		ioc.InitRegistryConfig,
		ioc.InitRescheduledEventProducer,
		ioc.InitCancelledEventProducer,
	)
	plannerSvcSet = wire.NewSet(
		planner.NewService,
		repository.NewReminderRepository,
		dao.NewReminderDAO,
		ioc.InitScheduleChangeConsumer,
	)
	templateSvcSet = wire.NewSet(
		template.NewService,
		repository.NewReminderTemplateRepository,
		dao.NewReminderTemplateDAO,
	)
	dispatcherSet = wire.NewSet(
		ioc.InitDispatcher,
		ioc.InitIdempotencyService,
		ioc.InitGatewayBuilder,
		ioc.InitRetryStrategyFactory,
		ioc.InitDispatchCycleTask,
		ioc.InitSendingTimeoutTask,
		ioc.InitTasks,
	)
	webSet = wire.NewSet(
		streamweb.NewHandler,
		templateweb.NewHandler,
		ioc.InitWebServer,
	)
)

func InitApp() *App {
	wire.Build(
		BaseSet,
		streamSvcSet,
		plannerSvcSet,
		templateSvcSet,
		dispatcherSet,
		webSet,
		wire.Struct(new(App), "*"),
	)
	return new(App)
}
