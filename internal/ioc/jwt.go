package ioc

import (
	webjwt "gitee.com/flycash/live-reminder-platform/internal/web/jwt"
	"github.com/gotomicro/ego/core/econf"
)

func InitJwtAuth() *webjwt.JwtAuth {
	type Config struct {
		Key string `yaml:"key"`
	}
	var cfg Config
	if err := econf.UnmarshalKey("jwt", &cfg); err != nil {
		panic(err)
	}
	return webjwt.NewJwtAuth(cfg.Key)
}
