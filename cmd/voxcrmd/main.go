package main

import (
	"flag"

	"go.uber.org/fx"

	"voxcrm/internal/daemon"
)

func main() {
	configFlag := flag.String("config", "", "path to config file (TOML)")
	flag.Parse()

	app := fx.New(
		daemon.Module(daemon.Params{ConfigPath: *configFlag}),
	)

	app.Run()
}
