package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/academia/apps/di"
	"github.com/trezcool/academia/core"
	logsvc "github.com/trezcool/academia/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	ctx := context.Background()
	c, err := di.New(ctx, conf, logger, false)
	if err != nil {
		logger.Fatal("setting up dependencies", err)
	}

	cli := commandLine{c: c, out: os.Stdout}
	err = cli.run(ctx, os.Args)
	_ = c.Close()
	logger.Close()
	if err != nil {
		if err != errHelp {
			log.Printf("error: %s", err)
		}
		os.Exit(1)
	}
}
