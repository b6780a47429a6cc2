package ioc

import (
	"gitee.com/flycash/live-reminder-platform/internal/repository/dao"
	"github.com/ego-component/egorm"
)

func InitDB() *egorm.Component {
	db := egorm.Load("mysql").Build()
	if err := db.AutoMigrate(
		&dao.Stream{},
		&dao.ReminderObligation{},
		&dao.ReminderTemplate{},
	); err != nil {
		panic(err)
	}
	return db
}
