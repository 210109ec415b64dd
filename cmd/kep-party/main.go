//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/markkurossi/kep/config"
	"github.com/markkurossi/kep/party"
	"go.uber.org/zap"
	"gopkg.in/urfave/cli.v1"
)

func main() {
	app := cli.NewApp()
	app.Name = "kep-party"
	app.Usage = "Run a kidney exchange computing party"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Value: "kep.toml",
			Usage: "topology configuration file",
		},
		cli.IntFlag{
			Name:  "id, i",
			Value: 0,
			Usage: "party ID",
		},
		cli.BoolFlag{
			Name:  "timing, t",
			Usage: "print timing report",
		},
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "verbose output",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	var logger *zap.Logger
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

func run(c *cli.Context) error {
	if c.NArg() != 0 {
		return errors.New("unexpected arguments")
	}
	logger, err := newLogger(c.Bool("verbose"))
	if err != nil {
		return err
	}
	defer logger.Sync()

	conf, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	params, err := conf.PartyParams(c.Int("id"), logger)
	if err != nil {
		return err
	}
	params.Timing = c.Bool("timing")

	p, err := party.New(params)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Warnf("close: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := p.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Party %d: %d providers matched\n", p.ID(), result.Providers)
	return nil
}
