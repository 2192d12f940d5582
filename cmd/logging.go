package cmd

import (
	"github.com/chazu/rayweave/pkg/log"
	"github.com/urfave/cli"
)

var logger = log.New("rayweave")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}
