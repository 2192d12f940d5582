package main

import (
	"os"

	"github.com/chazu/rayweave/cmd"
	"github.com/chazu/rayweave/pkg/log"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "rayweave"
	app.Usage = "shoot rays through CSG scenes"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = cmd.Commands()

	if err := app.Run(os.Args); err != nil {
		log.New("rayweave").Error(err)
		os.Exit(1)
	}
}
