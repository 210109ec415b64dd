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
	"github.com/markkurossi/kep/kep"
	"github.com/markkurossi/kep/provider"
	"go.uber.org/zap"
	"gopkg.in/urfave/cli.v1"
)

func main() {
	app := cli.NewApp()
	app.Name = "kep-provider"
	app.Usage = "Submit a donor-patient pair to the kidney exchange"
	app.ArgsUsage = "input-file"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Value: "kep.toml",
			Usage: "topology configuration file",
		},
		cli.IntFlag{
			Name:  "id, i",
			Value: 0,
			Usage: "provider identity",
		},
		cli.BoolFlag{
			Name:  "last, l",
			Usage: "provider has the highest identity",
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

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected one input file")
	}
	var logger *zap.Logger
	var err error
	if c.Bool("verbose") {
		logger, err = zap.NewDevelopment()
	} else {
		logger = zap.NewNop()
	}
	if err != nil {
		return err
	}
	defer logger.Sync()

	conf, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	record, err := kep.ReadRecordFile(c.Args().First())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := provider.Run(ctx, &provider.Params{
		ID:      c.Int("id"),
		Last:    c.Bool("last"),
		Parties: conf.ProviderAddrs(),
		Log:     logger.Sugar(),
	}, record)
	if err != nil {
		return err
	}
	fmt.Printf("donor: %d\npatient: %d\n", result.Donor, result.Patient)
	return nil
}
