package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/setting"
	logsvc "github.com/innocell/innocell/services/logger"
	"github.com/innocell/innocell/storage/cache"
	"github.com/innocell/innocell/storage/database"
	sqlxrepos "github.com/innocell/innocell/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	defer logger.Close()

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()

	// settings go through the service so that the cache is invalidated
	var settingsCache setting.Cache
	if rdb, err := cache.Connect(context.Background(), conf); err != nil {
		logger.Warn("redis unavailable, settings cache will expire on its own", err)
	} else if rdb != nil {
		settingsCache = cache.NewSettingsCache(rdb, conf.Redis.SettingsTTL)
	}

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		db:         db,
		usrRepo:    sqlxrepos.NewUserRepository(db),
		settingSvc: setting.NewService(sqlxrepos.NewSettingRepository(db), settingsCache, validate, logger),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed: " + err.Error())
		}
		db.Close()
		os.Exit(1)
	}
}
