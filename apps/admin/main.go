package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/umoja/core"
	"github.com/trezcool/umoja/core/record"
	"github.com/trezcool/umoja/core/syncer"
	"github.com/trezcool/umoja/services/logger"
	"github.com/trezcool/umoja/storage/rowstore"
	"github.com/trezcool/umoja/storage/rowstore/dummy"
	"github.com/trezcool/umoja/storage/rowstore/postgrest"
	"github.com/trezcool/umoja/storage/rowstore/sqlxstore"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	store, cleanup, err := openStore(core.Conf)
	errAndDie(err)
	defer cleanup()

	cli := commandLine{
		sync: syncer.NewService(store, logsvc.NewConsoleLogger(logger)),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
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

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
