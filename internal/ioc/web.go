package ioc

import (
	"gitee.com/flycash/live-reminder-platform/internal/service/stream"
	streamweb "gitee.com/flycash/live-reminder-platform/internal/web/stream"
	templateweb "gitee.com/flycash/live-reminder-platform/internal/web/template"
	"github.com/gotomicro/ego/core/econf"
	"github.com/gotomicro/ego/server/egin"
)

func InitWebServer(
	streamHandler *streamweb.Handler,
	templateHandler *templateweb.Handler,
) *egin.Component {
	server := egin.Load("server.http").Build()
	streamHandler.PrivateRoutes(server.Engine)
	templateHandler.PrivateRoutes(server.Engine)
	return server
}

func InitRegistryConfig() stream.RegistryConfig {
	type Config struct {
		AllowPastStart bool `yaml:"allowPastStart"`
	}
	var cfg Config
	_ = econf.UnmarshalKey("registry", &cfg)
	return stream.RegistryConfig{AllowPastStart: cfg.AllowPastStart}
}
