package ioc

import (
	"gitee.com/flycash/live-reminder-platform/internal/pkg/idempotent"
	"gitee.com/flycash/live-reminder-platform/internal/service/gateway"
	"gitee.com/flycash/live-reminder-platform/internal/service/gateway/console"
	idempotentgw "gitee.com/flycash/live-reminder-platform/internal/service/gateway/idempotent"
	gwmetrics "gitee.com/flycash/live-reminder-platform/internal/service/gateway/metrics"
	"gitee.com/flycash/live-reminder-platform/internal/service/gateway/sequential"
	"gitee.com/flycash/live-reminder-platform/internal/service/gateway/sms"
	"gitee.com/flycash/live-reminder-platform/internal/service/gateway/sms/client"
	gwtracing "gitee.com/flycash/live-reminder-platform/internal/service/gateway/tracing"
	"github.com/gotomicro/ego/core/econf"
	"github.com/redis/go-redis/v9"
)

// InitIdempotencyService 网关幂等前置检查用的布隆过滤器
func InitIdempotencyService(redisClient *redis.Client) idempotent.IdempotencyService {
	type Config struct {
		FilterName string  `yaml:"filterName"`
		Capacity   uint64  `yaml:"capacity"`
		ErrorRate  float64 `yaml:"errorRate"`
	}
	cfg := Config{
		FilterName: "reminder:sent",
		Capacity:   1_000_000,
		ErrorRate:  0.001,
	}
	_ = econf.UnmarshalKey("gateway.idempotent", &cfg)
	return idempotent.NewBloomService(redisClient, cfg.FilterName, cfg.Capacity, cfg.ErrorRate)
}

// InitGatewayBuilder 组装投递网关。每个网关都套上
// 指标、链路追踪和幂等检查装饰器，顺序选择器做故障转移
func InitGatewayBuilder(clients map[string]client.Client, idemSvc idempotent.IdempotencyService) gateway.Builder {
	type GatewayConfig struct {
		Name       string `yaml:"name"`
		SignName   string `yaml:"signName"`
		TemplateID string `yaml:"templateId"`
	}
	var cfgs []GatewayConfig
	if err := econf.UnmarshalKey("gateway.sms", &cfgs); err != nil {
		panic(err)
	}

	gateways := make([]gateway.Gateway, 0, len(cfgs)+1)
	for _, cfg := range cfgs {
		cli, ok := clients[cfg.Name]
		if !ok {
			continue
		}
		gateways = append(gateways, decorate(cfg.Name,
			sms.NewSMSGateway(cfg.Name, cfg.SignName, cfg.TemplateID, cli), idemSvc))
	}
	// 没配短信供应商就退化到控制台输出，本地联调用
	if len(gateways) == 0 {
		gateways = append(gateways, decorate("console", console.NewGateway(), idemSvc))
	}
	return sequential.NewSelectorBuilder(gateways)
}

func decorate(name string, g gateway.Gateway, idemSvc idempotent.IdempotencyService) gateway.Gateway {
	return idempotentgw.NewGateway(
		gwtracing.NewGateway(
			gwmetrics.NewGateway(name, g)), idemSvc)
}
