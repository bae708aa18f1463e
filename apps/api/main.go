package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trezcool/umoja/apps/api/echo"
	"github.com/trezcool/umoja/core"
	"github.com/trezcool/umoja/core/record"
	"github.com/trezcool/umoja/core/session"
	"github.com/trezcool/umoja/core/syncer"
	"github.com/trezcool/umoja/services/logger"
	"github.com/trezcool/umoja/storage/local/badgerkv"
	"github.com/trezcool/umoja/storage/rowstore"
	"github.com/trezcool/umoja/storage/rowstore/dummy"
	"github.com/trezcool/umoja/storage/rowstore/postgrest"
	"github.com/trezcool/umoja/storage/rowstore/sqlxstore"
)

func main() {
	conf := core.Conf
	std := log.New(os.Stdout, conf.AppName+" : ", log.LstdFlags|log.Lshortfile)

	var logger core.Logger
	if conf.Debug || conf.RollbarToken == "" {
		logger = logsvc.NewConsoleLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	store, cleanup, err := openStore(conf)
	errAndDie(std, err)
	defer cleanup()

	kv, err := badgerkv.Open(conf.Local.Path, conf.TestMode)
	errAndDie(std, err)
	defer func() { _ = kv.Close() }()

	sessions := session.NewStore(kv, logger, conf.SecretKey)
	sessions.Load()

	svc := syncer.NewService(store, logger)
	if err = svc.Refresh(context.Background()); err != nil {
		// partial data is kept; the API exposes refresh as the retry affordance
		logger.Warn("initial sync incomplete", err)
	}

	app := echoapi.NewServer(&echoapi.Options{
		Addr:     conf.Server.Host + ":" + conf.Server.Port,
		Logger:   logger,
		Sync:     svc,
		Sessions: sessions,
	})

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Stop(ctx); err != nil {
			logger.Error("stopping server", err)
		}
	}()

	app.Start()
}

func openStore(conf *core.Config) (rowstore.Client, func(), error) {
	switch conf.Store.Backend {
	case "rest":
		return postgrest.NewClient(conf), func() {}, nil
	case "postgres":
		store, err := sqlxstore.Open(conf)
		if err != nil {
			return nil, nil, err
		}
		if err = store.Migrate(); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		if err = store.EnsureSettings(context.Background(), record.SettingsSentinelID); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return dummydb.New(), func() {}, nil
	}
}

func errAndDie(std *log.Logger, err error) {
	if err != nil {
		std.Fatal(err)
	}
}
